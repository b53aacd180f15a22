package service

import (
	"context"
	"errors"

	"app/internal/model"
	"app/internal/pricing"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

var (
	// ErrPackageNotFound is returned for an unknown package ID.
	ErrPackageNotFound = errors.New("package_not_found")
	// ErrPurchaseNotFound is returned for an unknown purchase ID.
	ErrPurchaseNotFound = errors.New("purchase_not_found")
	// ErrPurchaseAlreadyProcessed is returned when the purchase was already
	// approved or rejected.
	ErrPurchaseAlreadyProcessed = errors.New("purchase_already_processed")
)

// PurchaseService handles the manual bank-transfer flow: submission with a
// payment proof, admin verification and credit grants on approval.
type PurchaseService interface {
	Submit(ctx context.Context, userID, packageID, proofFilename string, proofContent []byte, contentType string) (*model.CreditPurchase, error)
	// ListPending returns pending requests enriched with user identity and
	// a fresh presigned proof URL for the admin console.
	ListPending(ctx context.Context) ([]model.CreditPurchase, error)
	// ListVerified returns settled requests for the admin history view,
	// most recently verified first.
	ListVerified(ctx context.Context, limit int) ([]model.CreditPurchase, error)
	// Verify settles a pending purchase. Approval credits the user's
	// balance; a purchase can only be verified once.
	Verify(ctx context.Context, purchaseID string, approve bool, verifiedBy string, adminNotes *string) (*model.CreditPurchase, error)
	History(ctx context.Context, userID string) ([]model.CreditPurchase, error)
}

type purchaseService struct {
	purchaseRepo   repository.PurchaseRepository
	creditsRepo    repository.CreditsRepository
	userRepo       repository.UserRepository
	storage        StorageService
	purchaseLogger zerolog.Logger
}

// NewPurchaseService creates a new PurchaseService.
func NewPurchaseService(
	purchaseRepo repository.PurchaseRepository,
	creditsRepo repository.CreditsRepository,
	userRepo repository.UserRepository,
	storage StorageService,
	logger zerolog.Logger,
) PurchaseService {
	return &purchaseService{
		purchaseRepo:   purchaseRepo,
		creditsRepo:    creditsRepo,
		userRepo:       userRepo,
		storage:        storage,
		purchaseLogger: logger.With().Str("service", "PurchaseService").Logger(),
	}
}

func (s *purchaseService) Submit(ctx context.Context, userID, packageID, proofFilename string, proofContent []byte, contentType string) (*model.CreditPurchase, error) {
	pkg := pricing.PackageByID(packageID)
	if pkg == nil {
		return nil, ErrPackageNotFound
	}

	storagePath, err := s.storage.UploadProof(ctx, userID, proofFilename, proofContent, contentType)
	if err != nil {
		s.purchaseLogger.Error().Err(err).Str("user_id", userID).Msg("Failed to store payment proof")
		return nil, err
	}

	purchase := &model.CreditPurchase{
		UserID:        userID,
		PackageID:     pkg.ID,
		Credits:       pkg.Credits,
		Amount:        pkg.Price,
		Status:        model.PurchaseStatusPending,
		ProofURL:      storagePath,
		ProofFilename: proofFilename,
	}
	if err := s.purchaseRepo.Create(ctx, purchase); err != nil {
		s.purchaseLogger.Error().Err(err).Str("user_id", userID).Msg("Failed to create purchase request")
		return nil, err
	}

	s.purchaseLogger.Info().
		Str("purchase_id", purchase.ID).
		Str("user_id", userID).
		Str("package_id", pkg.ID).
		Int("amount", pkg.Price).
		Msg("Purchase request submitted")
	return purchase, nil
}

func (s *purchaseService) ListPending(ctx context.Context) ([]model.CreditPurchase, error) {
	pending, err := s.purchaseRepo.ListPending(ctx)
	if err != nil {
		s.purchaseLogger.Error().Err(err).Msg("Failed to list pending purchases")
		return nil, err
	}
	s.enrich(ctx, pending)
	return pending, nil
}

func (s *purchaseService) ListVerified(ctx context.Context, limit int) ([]model.CreditPurchase, error) {
	verified, err := s.purchaseRepo.ListVerified(ctx, limit)
	if err != nil {
		s.purchaseLogger.Error().Err(err).Msg("Failed to list verified purchases")
		return nil, err
	}
	s.enrich(ctx, verified)
	return verified, nil
}

// enrich attaches user identity and a fresh presigned proof URL to each
// purchase, best effort. Unresolvable users render as "Unknown".
func (s *purchaseService) enrich(ctx context.Context, purchases []model.CreditPurchase) {
	for i := range purchases {
		p := &purchases[i]
		p.UserEmail, p.UserName = "Unknown", "Unknown"
		profile, err := s.userRepo.GetProfile(ctx, p.UserID)
		if err != nil {
			s.purchaseLogger.Warn().Err(err).Str("user_id", p.UserID).Msg("Could not fetch user profile for enrichment")
		} else if profile != nil {
			p.UserEmail = profile.Email
			p.UserName = profile.Name
		}
		if p.ProofURL != "" {
			url, err := s.storage.GetPresignedURL(ctx, p.ProofURL)
			if err != nil {
				s.purchaseLogger.Warn().Err(err).Str("purchase_id", p.ID).Msg("Could not presign proof URL")
			} else {
				p.ProofURL = url
			}
		}
	}
}

func (s *purchaseService) Verify(ctx context.Context, purchaseID string, approve bool, verifiedBy string, adminNotes *string) (*model.CreditPurchase, error) {
	status := model.PurchaseStatusRejected
	if approve {
		status = model.PurchaseStatusApproved
	}

	found, err := s.purchaseRepo.MarkVerified(ctx, purchaseID, status, verifiedBy, adminNotes)
	if err != nil {
		s.purchaseLogger.Error().Err(err).Str("purchase_id", purchaseID).Msg("Failed to verify purchase")
		return nil, err
	}
	if !found {
		existing, err := s.purchaseRepo.GetByID(ctx, purchaseID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, ErrPurchaseNotFound
		}
		return nil, ErrPurchaseAlreadyProcessed
	}

	purchase, err := s.purchaseRepo.GetByID(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if purchase == nil {
		return nil, ErrPurchaseNotFound
	}

	if approve {
		if err := s.creditsRepo.AddPurchasedCredits(ctx, purchase.UserID, purchase.Credits); err != nil {
			s.purchaseLogger.Error().Err(err).
				Str("purchase_id", purchaseID).
				Str("user_id", purchase.UserID).
				Msg("Purchase approved but crediting failed")
			return nil, err
		}
	}

	s.purchaseLogger.Info().
		Str("purchase_id", purchaseID).
		Str("status", status).
		Str("verified_by", verifiedBy).
		Msg("Purchase verified")
	return purchase, nil
}

func (s *purchaseService) History(ctx context.Context, userID string) ([]model.CreditPurchase, error) {
	purchases, err := s.purchaseRepo.ListByUser(ctx, userID)
	if err != nil {
		s.purchaseLogger.Error().Err(err).Str("user_id", userID).Msg("Failed to list purchase history")
		return nil, err
	}
	return purchases, nil
}
