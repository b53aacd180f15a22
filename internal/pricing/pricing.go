// Package pricing holds the credit package catalogue, duration tiers and
// bank transfer details for manual purchases.
package pricing

import "fmt"

// BankInfo is the destination account for manual transfers.
type BankInfo struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountHolder string `json:"account_holder"`
}

// Bank returns the transfer destination shown alongside packages.
func Bank() BankInfo {
	return BankInfo{
		BankName:      "BCA",
		AccountNumber: "5271332972",
		AccountHolder: "Silverius Daniel Wijono",
	}
}

// Package is a purchasable credit bundle. Prices are in IDR.
type Package struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Credits         int     `json:"credits"`
	Price           int     `json:"price"`
	PricePerCredit  float64 `json:"price_per_credit"`
	RetentionPeriod string  `json:"retention_period"`
	IsPopular       bool    `json:"is_popular"`
}

// packages is ordered cheapest first; order is what clients render.
var packages = []Package{
	{ID: "starter", Name: "Starter", Credits: 10, Price: 99000, PricePerCredit: 9900, RetentionPeriod: "1 bulan"},
	{ID: "value", Name: "Value", Credits: 30, Price: 249000, PricePerCredit: 8300, RetentionPeriod: "3 bulan", IsPopular: true},
	{ID: "pro", Name: "Pro", Credits: 60, Price: 449000, PricePerCredit: 7483, RetentionPeriod: "Selamanya"},
}

// Packages returns all purchasable packages.
func Packages() []Package {
	out := make([]Package, len(packages))
	copy(out, packages)
	return out
}

// PackageByID returns the package with the given id, or nil.
func PackageByID(id string) *Package {
	for i := range packages {
		if packages[i].ID == id {
			p := packages[i]
			return &p
		}
	}
	return nil
}

// Tier maps a maximum recording length to its credit cost and file ceiling.
type Tier struct {
	MaxMinutes      int `json:"max_minutes"`
	CreditsRequired int `json:"credits_required"`
	MaxFileMB       int `json:"max_file_mb"`
}

var tiers = []Tier{
	{MaxMinutes: 20, CreditsRequired: 1, MaxFileMB: 150},
	{MaxMinutes: 45, CreditsRequired: 2, MaxFileMB: 300},
	{MaxMinutes: 90, CreditsRequired: 3, MaxFileMB: 500},
}

// Tiers returns the duration tier table.
func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

// CreditsRequired returns the credit cost for a recording of the given
// length. Recordings beyond the last tier cost the maximum.
func CreditsRequired(durationMinutes int) int {
	for _, t := range tiers {
		if durationMinutes <= t.MaxMinutes {
			return t.CreditsRequired
		}
	}
	return tiers[len(tiers)-1].CreditsRequired
}

// MaxFileMB returns the file size ceiling for the expected duration.
func MaxFileMB(durationMinutes int) int {
	for _, t := range tiers {
		if durationMinutes <= t.MaxMinutes {
			return t.MaxFileMB
		}
	}
	return tiers[len(tiers)-1].MaxFileMB
}

// Free tier: reset weekly, evaluated lazily on balance reads.
const (
	FreeCreditsPerWeek     = 2
	FreeMaxDurationMinutes = 20
	FreeResetDays          = 7
)

// Max duration entitlements by highest approved package.
const (
	MaxDurationDefault = 20
	MaxDurationValue   = 45
	MaxDurationPro     = 90
)

// FormatPrice renders an IDR amount the way invoices do: "Rp 99.000".
func FormatPrice(amount int) string {
	s := fmt.Sprintf("%d", amount)
	n := len(s)
	if n <= 3 {
		return "Rp " + s
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, c)
	}
	return "Rp " + string(out)
}
