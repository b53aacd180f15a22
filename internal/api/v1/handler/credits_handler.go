package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/pricing"
	"app/internal/repository"
	"app/internal/service"

	"github.com/rs/zerolog"
)

// Proof images accepted for purchase submissions.
var allowedProofTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

const maxProofSizeBytes = 5 * 1024 * 1024

// CreditsHandler handles balance, package and purchase endpoints
type CreditsHandler struct {
	credits    service.CreditsService
	purchases  service.PurchaseService
	recordings repository.RecordingRepository
	logger     zerolog.Logger
}

// NewCreditsHandler creates a new CreditsHandler
func NewCreditsHandler(
	credits service.CreditsService,
	purchases service.PurchaseService,
	recordings repository.RecordingRepository,
	logger zerolog.Logger,
) *CreditsHandler {
	return &CreditsHandler{
		credits:    credits,
		purchases:  purchases,
		recordings: recordings,
		logger:     logger.With().Str("handler", "CreditsHandler").Logger(),
	}
}

// RegisterRoutes mounts credits routes
func (h *CreditsHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/api/credits/balance", authMw(http.HandlerFunc(h.balance)))
	mux.HandleFunc("/api/credits/packages", h.packages)
	mux.Handle("/api/credits/check-upload", authMw(http.HandlerFunc(h.checkUpload)))
	mux.Handle("/api/credits/purchase", authMw(http.HandlerFunc(h.purchase)))
	mux.Handle("/api/credits/purchases", authMw(http.HandlerFunc(h.purchaseHistory)))
	mux.Handle("/api/credits/recordings", authMw(http.HandlerFunc(h.recordingHistory)))
}

func (h *CreditsHandler) balance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID := middleware.UserID(r)
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user_id wajib diisi")
		return
	}

	credits, err := h.credits.GetBalance(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	maxDuration, err := h.credits.MaxDurationMinutes(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, dto.BalanceResponse{
		PaidCredits:        credits.Balance,
		FreeCredits:        credits.FreeCredits,
		TotalCredits:       credits.Total(),
		TotalPurchased:     credits.TotalPurchased,
		TotalUsed:          credits.TotalUsed,
		FreeCreditsResetAt: credits.FreeCreditsResetAt,
		MaxDuration:        maxDuration,
	})
}

func (h *CreditsHandler) packages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	packages := pricing.Packages()
	out := make([]dto.PackageDTO, 0, len(packages))
	for _, p := range packages {
		out = append(out, dto.PackageDTO{
			ID:              p.ID,
			Name:            p.Name,
			Credits:         p.Credits,
			Price:           p.Price,
			PriceFormatted:  pricing.FormatPrice(p.Price),
			PricePerCredit:  p.PricePerCredit,
			RetentionPeriod: p.RetentionPeriod,
			IsPopular:       p.IsPopular,
		})
	}
	respondJSON(w, http.StatusOK, dto.PackagesResponse{
		Packages:      out,
		BankInfo:      pricing.Bank(),
		DurationTiers: pricing.Tiers(),
	})
}

func (h *CreditsHandler) checkUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID := middleware.UserID(r)
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user_id wajib diisi")
		return
	}

	fileSizeMB, err := strconv.ParseFloat(r.URL.Query().Get("file_size_mb"), 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "file_size_mb tidak valid")
		return
	}
	estimatedDuration := 20
	if raw := r.URL.Query().Get("estimated_duration"); raw != "" {
		estimatedDuration, err = strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "estimated_duration tidak valid")
			return
		}
	}

	check, err := h.credits.CheckUpload(r.Context(), userID, fileSizeMB, estimatedDuration)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, check)
}

func (h *CreditsHandler) purchase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	userID := r.FormValue("user_id")
	if userID == "" {
		userID = middleware.UserID(r)
	}
	packageID := r.FormValue("package_id")
	if userID == "" || packageID == "" {
		respondError(w, http.StatusBadRequest, "user_id dan package_id wajib diisi")
		return
	}

	proof, header, err := r.FormFile("proof")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Bukti transfer wajib diupload")
		return
	}
	defer func() {
		_ = proof.Close()
	}()

	contentType := header.Header.Get("Content-Type")
	if !allowedProofTypes[contentType] {
		respondError(w, http.StatusBadRequest, "Only JPEG, PNG, or WebP images allowed")
		return
	}
	content, err := io.ReadAll(io.LimitReader(proof, maxProofSizeBytes+1))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Gagal membaca bukti transfer")
		return
	}
	if len(content) > maxProofSizeBytes {
		respondError(w, http.StatusRequestEntityTooLarge, "Bukti transfer terlalu besar. Maksimal 5MB.")
		return
	}

	purchase, err := h.purchases.Submit(r.Context(), userID, packageID, header.Filename, content, contentType)
	if errors.Is(err, service.ErrPackageNotFound) {
		respondError(w, http.StatusBadRequest, "Invalid package ID")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, dto.PurchaseSubmitResponse{
		Success:    true,
		PurchaseID: purchase.ID,
		Status:     purchase.Status,
		Message:    "Bukti transfer berhasil diupload. Mohon tunggu verifikasi admin (1x24 jam).",
	})
}

func (h *CreditsHandler) purchaseHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID := middleware.UserID(r)
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user_id wajib diisi")
		return
	}

	purchases, err := h.purchases.History(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if purchases == nil {
		purchases = []model.CreditPurchase{}
	}
	respondJSON(w, http.StatusOK, dto.PurchasesResponse{Purchases: purchases})
}

func (h *CreditsHandler) recordingHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID := middleware.UserID(r)
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user_id wajib diisi")
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	recordings, err := h.recordings.ListByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(recordings) > limit {
		recordings = recordings[:limit]
	}
	if recordings == nil {
		recordings = []model.Recording{}
	}
	respondJSON(w, http.StatusOK, dto.RecordingsResponse{Recordings: recordings})
}
