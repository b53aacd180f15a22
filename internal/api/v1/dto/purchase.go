package dto

import "app/internal/model"

// PurchaseSubmitResponse acknowledges a purchase request submission.
type PurchaseSubmitResponse struct {
	Success    bool   `json:"success"`
	PurchaseID string `json:"purchase_id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// PurchasesResponse wraps a purchase list.
type PurchasesResponse struct {
	Purchases []model.CreditPurchase `json:"purchases"`
}

// RecordingsResponse wraps a recording history list.
type RecordingsResponse struct {
	Recordings []model.Recording `json:"recordings"`
}

// ApproveResponse reports the outcome of an approval.
type ApproveResponse struct {
	Success      bool `json:"success"`
	CreditsAdded int  `json:"credits_added"`
	NewBalance   int  `json:"new_balance"`
}

// RejectResponse reports the outcome of a rejection.
type RejectResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
}
