package service

import (
	"context"
	"fmt"
	"time"

	"app/internal/model"
	"app/internal/pricing"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// UploadCheck is the server-side pre-check clients call before uploading.
type UploadCheck struct {
	Allowed          bool   `json:"allowed"`
	Reason           string `json:"reason,omitempty"`
	CreditsNeeded    int    `json:"credits_needed,omitempty"`
	CreditsAvailable int    `json:"credits_available,omitempty"`
	BuyCredits       bool   `json:"buy_credits"`
}

// CreditsService owns the credit ledger: weekly free credit resets,
// affordability checks and deductions.
type CreditsService interface {
	// GetBalance returns the user's ledger row, creating it on first sight
	// and applying the weekly free credit reset when due.
	GetBalance(ctx context.Context, userID string) (*model.UserCredits, error)
	// CheckUpload is the pre-upload gate: enough credits for the estimated
	// duration and a sane file size. The definitive duration check happens
	// after transcription.
	CheckUpload(ctx context.Context, userID string, fileSizeMB float64, estimatedDuration int) (*UploadCheck, error)
	// Deduct settles the cost of a processed recording. Free credits are
	// spent before paid ones; the paid balance may go negative because the
	// work is already done by the time we settle.
	Deduct(ctx context.Context, userID string, durationMinutes int, filename string, recordingID *string) (creditsUsed int, creditType string, err error)
	// MaxDurationMinutes returns the per-recording length ceiling earned by
	// the user's highest approved package.
	MaxDurationMinutes(ctx context.Context, userID string) (int, error)
}

type creditsService struct {
	creditsRepo   repository.CreditsRepository
	purchaseRepo  repository.PurchaseRepository
	creditsLogger zerolog.Logger
}

// NewCreditsService creates a new CreditsService.
func NewCreditsService(
	creditsRepo repository.CreditsRepository,
	purchaseRepo repository.PurchaseRepository,
	logger zerolog.Logger,
) CreditsService {
	return &creditsService{
		creditsRepo:   creditsRepo,
		purchaseRepo:  purchaseRepo,
		creditsLogger: logger.With().Str("service", "CreditsService").Logger(),
	}
}

func (s *creditsService) GetBalance(ctx context.Context, userID string) (*model.UserCredits, error) {
	credits, err := s.creditsRepo.GetCredits(ctx, userID)
	if err != nil {
		s.creditsLogger.Error().Err(err).Str("user_id", userID).Msg("Failed to get credits")
		return nil, err
	}
	if credits == nil {
		credits, err = s.creditsRepo.CreateDefaultCredits(ctx, userID, pricing.FreeCreditsPerWeek)
		if err != nil {
			s.creditsLogger.Error().Err(err).Str("user_id", userID).Msg("Failed to create default credits")
			return nil, err
		}
		if credits == nil {
			return nil, fmt.Errorf("credits row missing after creation for user %s", userID)
		}
		return credits, nil
	}

	// Weekly reset happens lazily on read, no scheduler involved.
	if time.Since(credits.FreeCreditsResetAt) >= pricing.FreeResetDays*24*time.Hour {
		if err := s.creditsRepo.ResetFreeCredits(ctx, userID, pricing.FreeCreditsPerWeek); err != nil {
			s.creditsLogger.Error().Err(err).Str("user_id", userID).Msg("Failed to reset free credits")
			return nil, err
		}
		credits.FreeCredits = pricing.FreeCreditsPerWeek
		credits.FreeCreditsResetAt = time.Now()
	}
	return credits, nil
}

func (s *creditsService) CheckUpload(ctx context.Context, userID string, fileSizeMB float64, estimatedDuration int) (*UploadCheck, error) {
	credits, err := s.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	needed := pricing.CreditsRequired(estimatedDuration)
	available := credits.Total()

	if available < needed {
		return &UploadCheck{
			Allowed:          false,
			Reason:           fmt.Sprintf("Credit tidak cukup. Butuh %d credit, Anda punya %d.", needed, available),
			CreditsNeeded:    needed,
			CreditsAvailable: available,
			BuyCredits:       true,
		}, nil
	}

	// Size gate uses the top tier ceiling; the exact per-tier check runs
	// once the real duration is known.
	maxFile := pricing.MaxFileMB(pricing.MaxDurationPro)
	if fileSizeMB > float64(maxFile) {
		return &UploadCheck{
			Allowed:    false,
			Reason:     fmt.Sprintf("File terlalu besar. Maksimal %dMB.", maxFile),
			BuyCredits: false,
		}, nil
	}

	return &UploadCheck{
		Allowed:          true,
		CreditsNeeded:    needed,
		CreditsAvailable: available,
	}, nil
}

func (s *creditsService) Deduct(ctx context.Context, userID string, durationMinutes int, filename string, recordingID *string) (int, string, error) {
	credits, err := s.GetBalance(ctx, userID)
	if err != nil {
		return 0, "", err
	}

	required := pricing.CreditsRequired(durationMinutes)
	fromFree := required
	if credits.FreeCredits < fromFree {
		fromFree = credits.FreeCredits
	}
	fromPaid := required - fromFree

	creditType := model.CreditTypeMixed
	switch {
	case fromPaid == 0:
		creditType = model.CreditTypeFree
	case fromFree == 0:
		creditType = model.CreditTypePaid
	}

	newFree := credits.FreeCredits - fromFree
	newBalance := credits.Balance - fromPaid
	if err := s.creditsRepo.ApplyDeduction(ctx, userID, newFree, newBalance, required); err != nil {
		s.creditsLogger.Error().Err(err).Str("user_id", userID).Msg("Failed to deduct credits")
		return 0, "", err
	}

	usage := &model.CreditUsage{
		UserID:          userID,
		CreditsUsed:     required,
		CreditType:      creditType,
		DurationMinutes: durationMinutes,
		Filename:        filename,
		RecordingID:     recordingID,
	}
	if err := s.creditsRepo.RecordUsage(ctx, usage); err != nil {
		// The ledger is already settled; a missing audit row is not worth
		// failing the whole request over.
		s.creditsLogger.Warn().Err(err).Str("user_id", userID).Msg("Failed to record credit usage")
	}

	s.creditsLogger.Info().
		Str("user_id", userID).
		Int("credits_used", required).
		Str("credit_type", creditType).
		Msg("Credits deducted")
	return required, creditType, nil
}

func (s *creditsService) MaxDurationMinutes(ctx context.Context, userID string) (int, error) {
	ids, err := s.purchaseRepo.ApprovedPackageIDs(ctx, userID)
	if err != nil {
		s.creditsLogger.Error().Err(err).Str("user_id", userID).Msg("Failed to resolve approved packages")
		return 0, err
	}
	maxDuration := pricing.MaxDurationDefault
	for _, id := range ids {
		switch id {
		case "pro":
			return pricing.MaxDurationPro, nil
		case "value":
			maxDuration = pricing.MaxDurationValue
		}
	}
	return maxDuration, nil
}
