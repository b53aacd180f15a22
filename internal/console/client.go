package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"app/internal/model"
)

// ErrReauthRequired means no valid admin key is available. The caller
// must obtain a fresh key and store it before retrying.
var ErrReauthRequired = errors.New("admin key missing or rejected")

// ApproveResult is the backend's reply to an approval.
type ApproveResult struct {
	Success      bool `json:"success"`
	CreditsAdded int  `json:"credits_added"`
	NewBalance   int  `json:"new_balance"`
}

// Client wraps the key-gated admin endpoints. Every call attaches the
// stored admin key; a 401 clears the key so the next call forces reauth.
type Client struct {
	baseURL   string
	adminName string
	store     KeyStore
	client    *http.Client
}

// NewClient creates an admin Client. adminName is recorded by the backend
// as verified_by on every approval and rejection.
func NewClient(baseURL, adminName string, store KeyStore) *Client {
	return &Client{
		baseURL:   baseURL,
		adminName: adminName,
		store:     store,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SetKey stores a new admin key for subsequent calls.
func (c *Client) SetKey(key string) error {
	return c.store.Save(key)
}

// Pending lists purchase requests awaiting verification.
func (c *Client) Pending(ctx context.Context) ([]model.CreditPurchase, error) {
	return c.listPurchases(ctx, "/api/credits/admin/pending", nil)
}

// History lists verified purchases, most recent first.
func (c *Client) History(ctx context.Context, limit int) ([]model.CreditPurchase, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	return c.listPurchases(ctx, "/api/credits/admin/history", query)
}

// Approve verifies a purchase and credits the user.
func (c *Client) Approve(ctx context.Context, purchaseID, notes string) (*ApproveResult, error) {
	var out ApproveResult
	if err := c.verify(ctx, "approve", purchaseID, notes, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reject declines a purchase without granting credits.
func (c *Client) Reject(ctx context.Context, purchaseID, notes string) error {
	var out struct {
		Success bool   `json:"success"`
		Status  string `json:"status"`
	}
	return c.verify(ctx, "reject", purchaseID, notes, &out)
}

// ProofURL resolves the key-gated URL of a payment proof image.
func (c *Client) ProofURL(filename string) (string, error) {
	key, err := c.store.Load()
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", ErrReauthRequired
	}
	return c.baseURL + "/api/credits/proofs/" + url.PathEscape(filename) + "?admin_key=" + url.QueryEscape(key), nil
}

func (c *Client) listPurchases(ctx context.Context, path string, query url.Values) ([]model.CreditPurchase, error) {
	var out struct {
		Purchases []model.CreditPurchase `json:"purchases"`
	}
	if err := c.do(ctx, http.MethodGet, path, query, &out); err != nil {
		return nil, err
	}
	return out.Purchases, nil
}

func (c *Client) verify(ctx context.Context, action, purchaseID, notes string, out any) error {
	query := url.Values{}
	if notes != "" {
		query.Set("notes", notes)
	}
	path := "/api/credits/admin/" + action + "/" + url.PathEscape(purchaseID)
	return c.do(ctx, http.MethodPost, path, query, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, out any) error {
	key, err := c.store.Load()
	if err != nil {
		return err
	}
	if key == "" {
		return ErrReauthRequired
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("admin_key", key)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build admin request: %w", err)
	}
	if c.adminName != "" {
		req.Header.Set("X-Admin-Name", c.adminName)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("call admin endpoint: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read admin response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// The stored key is stale; drop it so the operator is asked again.
		if clearErr := c.store.Clear(); clearErr != nil {
			return clearErr
		}
		return ErrReauthRequired
	}
	if resp.StatusCode != http.StatusOK {
		var envelope struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &envelope)
		if envelope.Error != "" {
			return errors.New(envelope.Error)
		}
		return fmt.Errorf("admin endpoint returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode admin response: %w", err)
	}
	return nil
}
