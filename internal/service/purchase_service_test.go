package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"app/internal/logger"
	"app/internal/model"
)

// fakeStorage records proof uploads without touching S3.
type fakeStorage struct {
	uploads int
	failing bool
}

func (f *fakeStorage) UploadProof(_ context.Context, userID, filename string, _ []byte, _ string) (string, error) {
	if f.failing {
		return "", errors.New("storage down")
	}
	f.uploads++
	return fmt.Sprintf("proofs/%s/%s", userID, filename), nil
}

func (f *fakeStorage) GetPresignedURL(_ context.Context, storagePath string) (string, error) {
	return "https://signed.example/" + storagePath, nil
}

func newPurchaseService(purchaseRepo *fakePurchaseRepo, creditsRepo *fakeCreditsRepo, storage *fakeStorage) PurchaseService {
	return NewPurchaseService(purchaseRepo, creditsRepo, &fakeUserRepo{}, storage, logger.New())
}

type fakeUserRepo struct{}

func (f *fakeUserRepo) GetProfile(_ context.Context, userID string) (*model.UserProfile, error) {
	return &model.UserProfile{UserID: userID, Name: "Budi", Email: userID + "@example.com"}, nil
}

func TestSubmitCreatesPendingPurchase(t *testing.T) {
	purchaseRepo := newFakePurchaseRepo()
	storage := &fakeStorage{}
	svc := newPurchaseService(purchaseRepo, newFakeCreditsRepo(), storage)

	p, err := svc.Submit(context.Background(), "user-1", "value", "bukti.jpg", []byte("img"), "image/jpeg")
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if p.Status != model.PurchaseStatusPending {
		t.Errorf("expected pending status, got %s", p.Status)
	}
	if p.Credits != 30 || p.Amount != 249000 {
		t.Errorf("value package should grant 30 credits for 249000, got %d for %d", p.Credits, p.Amount)
	}
	if storage.uploads != 1 {
		t.Errorf("expected one proof upload, got %d", storage.uploads)
	}
}

func TestSubmitRejectsUnknownPackage(t *testing.T) {
	storage := &fakeStorage{}
	svc := newPurchaseService(newFakePurchaseRepo(), newFakeCreditsRepo(), storage)

	_, err := svc.Submit(context.Background(), "user-1", "mega", "bukti.jpg", []byte("img"), "image/jpeg")
	if !errors.Is(err, ErrPackageNotFound) {
		t.Fatalf("expected ErrPackageNotFound, got %v", err)
	}
	if storage.uploads != 0 {
		t.Error("proof must not be uploaded for an unknown package")
	}
}

func TestVerifyApprovalCreditsBalance(t *testing.T) {
	purchaseRepo := newFakePurchaseRepo()
	creditsRepo := newFakeCreditsRepo()
	creditsRepo.credits["user-1"] = &model.UserCredits{UserID: "user-1"}
	svc := newPurchaseService(purchaseRepo, creditsRepo, &fakeStorage{})
	ctx := context.Background()

	p, err := svc.Submit(ctx, "user-1", "starter", "bukti.jpg", []byte("img"), "image/jpeg")
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	verified, err := svc.Verify(ctx, p.ID, true, "admin", nil)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if verified.Status != model.PurchaseStatusApproved {
		t.Errorf("expected approved, got %s", verified.Status)
	}
	if got := creditsRepo.credits["user-1"].Balance; got != 10 {
		t.Errorf("approval should add 10 credits, balance is %d", got)
	}
	if got := creditsRepo.credits["user-1"].TotalPurchased; got != 10 {
		t.Errorf("total_purchased should be 10, got %d", got)
	}
}

func TestVerifyRejectionGrantsNothing(t *testing.T) {
	purchaseRepo := newFakePurchaseRepo()
	creditsRepo := newFakeCreditsRepo()
	creditsRepo.credits["user-1"] = &model.UserCredits{UserID: "user-1"}
	svc := newPurchaseService(purchaseRepo, creditsRepo, &fakeStorage{})
	ctx := context.Background()

	p, _ := svc.Submit(ctx, "user-1", "starter", "bukti.jpg", []byte("img"), "image/jpeg")
	notes := "transfer tidak ditemukan"
	verified, err := svc.Verify(ctx, p.ID, false, "admin", &notes)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if verified.Status != model.PurchaseStatusRejected {
		t.Errorf("expected rejected, got %s", verified.Status)
	}
	if creditsRepo.credits["user-1"].Balance != 0 {
		t.Error("rejection must not grant credits")
	}
}

func TestVerifyIsSingleShot(t *testing.T) {
	purchaseRepo := newFakePurchaseRepo()
	creditsRepo := newFakeCreditsRepo()
	creditsRepo.credits["user-1"] = &model.UserCredits{UserID: "user-1"}
	svc := newPurchaseService(purchaseRepo, creditsRepo, &fakeStorage{})
	ctx := context.Background()

	p, _ := svc.Submit(ctx, "user-1", "starter", "bukti.jpg", []byte("img"), "image/jpeg")
	if _, err := svc.Verify(ctx, p.ID, true, "admin", nil); err != nil {
		t.Fatalf("first Verify returned error: %v", err)
	}
	if _, err := svc.Verify(ctx, p.ID, true, "admin", nil); !errors.Is(err, ErrPurchaseAlreadyProcessed) {
		t.Fatalf("second Verify should report already processed, got %v", err)
	}
	if got := creditsRepo.credits["user-1"].Balance; got != 10 {
		t.Errorf("credits must be granted exactly once, balance is %d", got)
	}
}

func TestVerifyUnknownPurchase(t *testing.T) {
	svc := newPurchaseService(newFakePurchaseRepo(), newFakeCreditsRepo(), &fakeStorage{})
	if _, err := svc.Verify(context.Background(), "nope", true, "admin", nil); !errors.Is(err, ErrPurchaseNotFound) {
		t.Fatalf("expected ErrPurchaseNotFound, got %v", err)
	}
}

func TestListPendingEnrichesEntries(t *testing.T) {
	purchaseRepo := newFakePurchaseRepo()
	purchaseRepo.pending = []model.CreditPurchase{
		{ID: "p1", UserID: "user-1", PackageID: "value", Status: model.PurchaseStatusPending, ProofURL: "proofs/user-1/bukti.jpg"},
	}
	svc := newPurchaseService(purchaseRepo, newFakeCreditsRepo(), &fakeStorage{})

	pending, err := svc.ListPending(context.Background())
	if err != nil {
		t.Fatalf("ListPending returned error: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending purchase, got %d", len(pending))
	}
	if pending[0].UserEmail != "user-1@example.com" || pending[0].UserName != "Budi" {
		t.Errorf("expected profile enrichment, got %+v", pending[0])
	}
	if pending[0].ProofURL != "https://signed.example/proofs/user-1/bukti.jpg" {
		t.Errorf("expected presigned proof URL, got %s", pending[0].ProofURL)
	}
}
