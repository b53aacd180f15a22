package service

import (
	"context"
	"testing"
	"time"

	"app/internal/logger"
	"app/internal/model"
)

// fakeCreditsRepo keeps the ledger in memory.
type fakeCreditsRepo struct {
	credits map[string]*model.UserCredits
	usage   []model.CreditUsage
}

func newFakeCreditsRepo() *fakeCreditsRepo {
	return &fakeCreditsRepo{credits: make(map[string]*model.UserCredits)}
}

func (f *fakeCreditsRepo) GetCredits(_ context.Context, userID string) (*model.UserCredits, error) {
	c, ok := f.credits[userID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCreditsRepo) CreateDefaultCredits(_ context.Context, userID string, freeCredits int) (*model.UserCredits, error) {
	if _, ok := f.credits[userID]; !ok {
		f.credits[userID] = &model.UserCredits{
			UserID:             userID,
			FreeCredits:        freeCredits,
			FreeCreditsResetAt: time.Now(),
			UpdatedAt:          time.Now(),
		}
	}
	cp := *f.credits[userID]
	return &cp, nil
}

func (f *fakeCreditsRepo) ResetFreeCredits(_ context.Context, userID string, freeCredits int) error {
	c := f.credits[userID]
	c.FreeCredits = freeCredits
	c.FreeCreditsResetAt = time.Now()
	return nil
}

func (f *fakeCreditsRepo) ApplyDeduction(_ context.Context, userID string, newFree, newBalance, creditsUsed int) error {
	c := f.credits[userID]
	c.FreeCredits = newFree
	c.Balance = newBalance
	c.TotalUsed += creditsUsed
	return nil
}

func (f *fakeCreditsRepo) AddPurchasedCredits(_ context.Context, userID string, credits int) error {
	c := f.credits[userID]
	c.Balance += credits
	c.TotalPurchased += credits
	return nil
}

func (f *fakeCreditsRepo) RecordUsage(_ context.Context, usage *model.CreditUsage) error {
	usage.ID = "usage-1"
	usage.CreatedAt = time.Now()
	f.usage = append(f.usage, *usage)
	return nil
}

// fakePurchaseRepo serves canned approved package IDs.
type fakePurchaseRepo struct {
	approved  map[string][]string
	purchases map[string]*model.CreditPurchase
	pending   []model.CreditPurchase
}

func newFakePurchaseRepo() *fakePurchaseRepo {
	return &fakePurchaseRepo{
		approved:  make(map[string][]string),
		purchases: make(map[string]*model.CreditPurchase),
	}
}

func (f *fakePurchaseRepo) Create(_ context.Context, p *model.CreditPurchase) error {
	p.ID = "purchase-" + p.PackageID
	p.CreatedAt = time.Now()
	f.purchases[p.ID] = p
	return nil
}

func (f *fakePurchaseRepo) GetByID(_ context.Context, id string) (*model.CreditPurchase, error) {
	p, ok := f.purchases[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakePurchaseRepo) ListPending(_ context.Context) ([]model.CreditPurchase, error) {
	return f.pending, nil
}

func (f *fakePurchaseRepo) ListByUser(_ context.Context, userID string) ([]model.CreditPurchase, error) {
	var out []model.CreditPurchase
	for _, p := range f.purchases {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePurchaseRepo) ListVerified(_ context.Context, limit int) ([]model.CreditPurchase, error) {
	var out []model.CreditPurchase
	for _, p := range f.purchases {
		if p.Status != model.PurchaseStatusPending {
			out = append(out, *p)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakePurchaseRepo) MarkVerified(_ context.Context, id, status, verifiedBy string, notes *string) (bool, error) {
	p, ok := f.purchases[id]
	if !ok || p.Status != model.PurchaseStatusPending {
		return false, nil
	}
	now := time.Now()
	p.Status = status
	p.VerifiedAt = &now
	p.VerifiedBy = &verifiedBy
	p.AdminNotes = notes
	if status == model.PurchaseStatusApproved {
		f.approved[p.UserID] = append(f.approved[p.UserID], p.PackageID)
	}
	return true, nil
}

func (f *fakePurchaseRepo) ApprovedPackageIDs(_ context.Context, userID string) ([]string, error) {
	return f.approved[userID], nil
}

func newCreditsService(creditsRepo *fakeCreditsRepo, purchaseRepo *fakePurchaseRepo) CreditsService {
	return NewCreditsService(creditsRepo, purchaseRepo, logger.New())
}

func TestGetBalanceCreatesDefaultRow(t *testing.T) {
	svc := newCreditsService(newFakeCreditsRepo(), newFakePurchaseRepo())

	credits, err := svc.GetBalance(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetBalance returned error: %v", err)
	}
	if credits.FreeCredits != 2 || credits.Balance != 0 {
		t.Errorf("expected 2 free / 0 paid for a new user, got %d free / %d paid", credits.FreeCredits, credits.Balance)
	}
}

func TestGetBalanceResetsFreeCreditsWeekly(t *testing.T) {
	repo := newFakeCreditsRepo()
	repo.credits["user-1"] = &model.UserCredits{
		UserID:             "user-1",
		Balance:            5,
		FreeCredits:        0,
		FreeCreditsResetAt: time.Now().Add(-8 * 24 * time.Hour),
	}
	svc := newCreditsService(repo, newFakePurchaseRepo())

	credits, err := svc.GetBalance(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetBalance returned error: %v", err)
	}
	if credits.FreeCredits != 2 {
		t.Errorf("expected free credits reset to 2, got %d", credits.FreeCredits)
	}
	if credits.Balance != 5 {
		t.Errorf("paid balance must survive the reset, got %d", credits.Balance)
	}
}

func TestGetBalanceDoesNotResetEarly(t *testing.T) {
	repo := newFakeCreditsRepo()
	repo.credits["user-1"] = &model.UserCredits{
		UserID:             "user-1",
		FreeCredits:        1,
		FreeCreditsResetAt: time.Now().Add(-6 * 24 * time.Hour),
	}
	svc := newCreditsService(repo, newFakePurchaseRepo())

	credits, err := svc.GetBalance(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetBalance returned error: %v", err)
	}
	if credits.FreeCredits != 1 {
		t.Errorf("reset fired a day early: free credits %d", credits.FreeCredits)
	}
}

func TestCheckUploadReportsShortfall(t *testing.T) {
	repo := newFakeCreditsRepo()
	repo.credits["user-1"] = &model.UserCredits{
		UserID:             "user-1",
		FreeCredits:        1,
		FreeCreditsResetAt: time.Now(),
	}
	svc := newCreditsService(repo, newFakePurchaseRepo())

	// 60 minutes needs 3 credits, user holds 1.
	check, err := svc.CheckUpload(context.Background(), "user-1", 30, 60)
	if err != nil {
		t.Fatalf("CheckUpload returned error: %v", err)
	}
	if check.Allowed {
		t.Error("expected upload to be blocked")
	}
	if !check.BuyCredits {
		t.Error("credit shortfall should point at buying credits")
	}
	if check.CreditsNeeded != 3 || check.CreditsAvailable != 1 {
		t.Errorf("unexpected check: %+v", check)
	}
}

func TestCheckUploadRejectsHugeFiles(t *testing.T) {
	repo := newFakeCreditsRepo()
	repo.credits["user-1"] = &model.UserCredits{
		UserID:             "user-1",
		Balance:            10,
		FreeCreditsResetAt: time.Now(),
	}
	svc := newCreditsService(repo, newFakePurchaseRepo())

	check, err := svc.CheckUpload(context.Background(), "user-1", 600, 20)
	if err != nil {
		t.Fatalf("CheckUpload returned error: %v", err)
	}
	if check.Allowed || check.BuyCredits {
		t.Errorf("oversized file should be blocked without a buy hint: %+v", check)
	}
}

func TestDeductSpendsFreeBeforePaid(t *testing.T) {
	repo := newFakeCreditsRepo()
	repo.credits["user-1"] = &model.UserCredits{
		UserID:             "user-1",
		Balance:            10,
		FreeCredits:        1,
		FreeCreditsResetAt: time.Now(),
	}
	svc := newCreditsService(repo, newFakePurchaseRepo())

	used, creditType, err := svc.Deduct(context.Background(), "user-1", 40, "standup.mp3", nil)
	if err != nil {
		t.Fatalf("Deduct returned error: %v", err)
	}
	if used != 2 {
		t.Errorf("40 minutes should cost 2 credits, charged %d", used)
	}
	if creditType != model.CreditTypeMixed {
		t.Errorf("expected mixed deduction, got %s", creditType)
	}
	c := repo.credits["user-1"]
	if c.FreeCredits != 0 || c.Balance != 9 {
		t.Errorf("expected 0 free / 9 paid after deduction, got %d / %d", c.FreeCredits, c.Balance)
	}
	if len(repo.usage) != 1 || repo.usage[0].CreditsUsed != 2 {
		t.Errorf("expected one usage row for 2 credits, got %+v", repo.usage)
	}
}

func TestDeductAllowsNegativeBalance(t *testing.T) {
	repo := newFakeCreditsRepo()
	repo.credits["user-1"] = &model.UserCredits{
		UserID:             "user-1",
		Balance:            1,
		FreeCreditsResetAt: time.Now(),
	}
	svc := newCreditsService(repo, newFakePurchaseRepo())

	// Settlement happens after the work is done, so the balance may dip
	// below zero rather than losing the result.
	used, creditType, err := svc.Deduct(context.Background(), "user-1", 80, "allhands.mp4", nil)
	if err != nil {
		t.Fatalf("Deduct returned error: %v", err)
	}
	if used != 3 || creditType != model.CreditTypePaid {
		t.Errorf("expected 3 paid credits, got %d %s", used, creditType)
	}
	if repo.credits["user-1"].Balance != -2 {
		t.Errorf("expected balance -2, got %d", repo.credits["user-1"].Balance)
	}
}

func TestMaxDurationFollowsHighestApprovedPackage(t *testing.T) {
	purchaseRepo := newFakePurchaseRepo()
	svc := newCreditsService(newFakeCreditsRepo(), purchaseRepo)
	ctx := context.Background()

	if minutes, _ := svc.MaxDurationMinutes(ctx, "user-1"); minutes != 20 {
		t.Errorf("default ceiling should be 20, got %d", minutes)
	}

	purchaseRepo.approved["user-1"] = []string{"starter", "value"}
	if minutes, _ := svc.MaxDurationMinutes(ctx, "user-1"); minutes != 45 {
		t.Errorf("value package should raise the ceiling to 45, got %d", minutes)
	}

	purchaseRepo.approved["user-1"] = []string{"value", "pro"}
	if minutes, _ := svc.MaxDurationMinutes(ctx, "user-1"); minutes != 90 {
		t.Errorf("pro package should raise the ceiling to 90, got %d", minutes)
	}
}
