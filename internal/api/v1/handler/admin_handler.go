package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/model"
	"app/internal/service"

	"github.com/rs/zerolog"
)

// AdminHandler handles purchase verification endpoints. All routes are
// mounted behind the admin key middleware.
type AdminHandler struct {
	purchases service.PurchaseService
	credits   service.CreditsService
	storage   service.StorageService
	logger    zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(
	purchases service.PurchaseService,
	credits service.CreditsService,
	storage service.StorageService,
	logger zerolog.Logger,
) *AdminHandler {
	return &AdminHandler{
		purchases: purchases,
		credits:   credits,
		storage:   storage,
		logger:    logger.With().Str("handler", "AdminHandler").Logger(),
	}
}

// RegisterRoutes mounts admin routes
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, adminMw func(http.Handler) http.Handler) {
	mux.Handle("/api/credits/admin/pending", adminMw(http.HandlerFunc(h.pending)))
	mux.Handle("/api/credits/admin/history", adminMw(http.HandlerFunc(h.history)))
	mux.Handle("/api/credits/admin/approve/", adminMw(http.HandlerFunc(h.approve)))
	mux.Handle("/api/credits/admin/reject/", adminMw(http.HandlerFunc(h.reject)))
	mux.Handle("/api/credits/proofs/", adminMw(http.HandlerFunc(h.proof)))
}

func (h *AdminHandler) pending(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	purchases, err := h.purchases.ListPending(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if purchases == nil {
		purchases = []model.CreditPurchase{}
	}
	respondJSON(w, http.StatusOK, dto.PurchasesResponse{Purchases: purchases})
}

func (h *AdminHandler) history(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	purchases, err := h.purchases.ListVerified(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if purchases == nil {
		purchases = []model.CreditPurchase{}
	}
	respondJSON(w, http.StatusOK, dto.PurchasesResponse{Purchases: purchases})
}

func (h *AdminHandler) approve(w http.ResponseWriter, r *http.Request) {
	purchaseID, ok := h.verifyTarget(w, r, "/api/credits/admin/approve/")
	if !ok {
		return
	}

	purchase, err := h.purchases.Verify(r.Context(), purchaseID, true, verifiedBy(r), notesParam(r))
	if err != nil {
		h.respondVerifyError(w, err)
		return
	}

	newBalance := 0
	if credits, err := h.credits.GetBalance(r.Context(), purchase.UserID); err != nil {
		h.logger.Warn().Err(err).Str("user_id", purchase.UserID).Msg("Could not read balance after approval")
	} else {
		newBalance = credits.Balance
	}
	respondJSON(w, http.StatusOK, dto.ApproveResponse{
		Success:      true,
		CreditsAdded: purchase.Credits,
		NewBalance:   newBalance,
	})
}

func (h *AdminHandler) reject(w http.ResponseWriter, r *http.Request) {
	purchaseID, ok := h.verifyTarget(w, r, "/api/credits/admin/reject/")
	if !ok {
		return
	}

	if _, err := h.purchases.Verify(r.Context(), purchaseID, false, verifiedBy(r), notesParam(r)); err != nil {
		h.respondVerifyError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.RejectResponse{Success: true, Status: model.PurchaseStatusRejected})
}

// proof redirects to a short-lived signed URL for the stored proof image.
func (h *AdminHandler) proof(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	objectPath := strings.TrimPrefix(r.URL.Path, "/api/credits/proofs/")
	if objectPath == "" {
		respondError(w, http.StatusBadRequest, "Invalid proof path")
		return
	}

	url, err := h.storage.GetPresignedURL(r.Context(), "proofs/"+objectPath)
	if err != nil {
		respondError(w, http.StatusNotFound, "Image not found")
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (h *AdminHandler) verifyTarget(w http.ResponseWriter, r *http.Request, prefix string) (string, bool) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return "", false
	}
	purchaseID := strings.TrimPrefix(r.URL.Path, prefix)
	if purchaseID == "" || strings.Contains(purchaseID, "/") {
		respondError(w, http.StatusBadRequest, "Invalid purchase ID")
		return "", false
	}
	return purchaseID, true
}

func (h *AdminHandler) respondVerifyError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrPurchaseNotFound) || errors.Is(err, service.ErrPurchaseAlreadyProcessed) {
		respondError(w, http.StatusBadRequest, "Purchase not found or already processed")
		return
	}
	respondError(w, http.StatusInternalServerError, err.Error())
}

// verifiedBy identifies the acting admin from the X-Admin-Name header.
func verifiedBy(r *http.Request) string {
	if name := r.Header.Get("X-Admin-Name"); name != "" {
		return name
	}
	return "admin"
}

func notesParam(r *http.Request) *string {
	if notes := r.URL.Query().Get("notes"); notes != "" {
		return &notes
	}
	return nil
}
