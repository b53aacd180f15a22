package dto

import (
	"time"

	"app/internal/pricing"
)

// BalanceResponse is the user-facing credit balance view.
type BalanceResponse struct {
	PaidCredits        int       `json:"paid_credits"`
	FreeCredits        int       `json:"free_credits"`
	TotalCredits       int       `json:"total_credits"`
	TotalPurchased     int       `json:"total_purchased"`
	TotalUsed          int       `json:"total_used"`
	FreeCreditsResetAt time.Time `json:"free_credits_reset_at"`
	MaxDuration        int       `json:"max_duration"`
}

// PackageDTO is a purchasable package with its display price.
type PackageDTO struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Credits         int     `json:"credits"`
	Price           int     `json:"price"`
	PriceFormatted  string  `json:"price_formatted"`
	PricePerCredit  float64 `json:"price_per_credit"`
	RetentionPeriod string  `json:"retention_period"`
	IsPopular       bool    `json:"is_popular"`
}

// PackagesResponse lists packages plus the transfer destination and the
// duration tier table.
type PackagesResponse struct {
	Packages      []PackageDTO     `json:"packages"`
	BankInfo      pricing.BankInfo `json:"bank_info"`
	DurationTiers []pricing.Tier   `json:"duration_tiers"`
}
