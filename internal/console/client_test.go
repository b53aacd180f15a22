package console

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"app/internal/model"
)

func newAdminServer(t *testing.T, adminKey string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("admin_key") != adminKey {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":"error","error":"Invalid admin key"}`))
			return
		}
		switch {
		case r.URL.Path == "/api/credits/admin/pending":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"purchases": []model.CreditPurchase{{ID: "p-1", PackageID: "starter", Status: "pending"}},
			})
		case r.URL.Path == "/api/credits/admin/history":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"purchases": []model.CreditPurchase{{ID: "p-0", Status: "approved"}},
			})
		case strings.HasPrefix(r.URL.Path, "/api/credits/admin/approve/"):
			if r.Header.Get("X-Admin-Name") != "siti" {
				t.Errorf("approve missing admin name header, got %q", r.Header.Get("X-Admin-Name"))
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true, "credits_added": 10, "new_balance": 12,
			})
		case strings.HasPrefix(r.URL.Path, "/api/credits/admin/reject/"):
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "status": "rejected"})
		default:
			http.NotFound(w, r)
		}
	}))
}

func newTestClient(t *testing.T, baseURL, key string) (*Client, KeyStore) {
	t.Helper()
	store := NewFileKeyStore(filepath.Join(t.TempDir(), "admin_key"))
	client := NewClient(baseURL, "siti", store)
	if key != "" {
		if err := client.SetKey(key); err != nil {
			t.Fatalf("SetKey returned error: %v", err)
		}
	}
	return client, store
}

func TestFileKeyStoreRoundTrip(t *testing.T) {
	store := NewFileKeyStore(filepath.Join(t.TempDir(), "nested", "admin_key"))

	if key, err := store.Load(); err != nil || key != "" {
		t.Fatalf("fresh store should be empty, got %q / %v", key, err)
	}
	if err := store.Save("rahasia"); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if key, _ := store.Load(); key != "rahasia" {
		t.Errorf("expected stored key back, got %q", key)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	if key, _ := store.Load(); key != "" {
		t.Errorf("cleared store should be empty, got %q", key)
	}
}

func TestPendingAttachesKey(t *testing.T) {
	server := newAdminServer(t, "rahasia")
	defer server.Close()
	client, _ := newTestClient(t, server.URL, "rahasia")

	pending, err := client.Pending(context.Background())
	if err != nil {
		t.Fatalf("Pending returned error: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "p-1" {
		t.Errorf("unexpected pending list: %+v", pending)
	}
}

func TestUnauthorizedClearsStoredKey(t *testing.T) {
	server := newAdminServer(t, "rahasia")
	defer server.Close()
	client, store := newTestClient(t, server.URL, "salah")

	if _, err := client.Pending(context.Background()); !errors.Is(err, ErrReauthRequired) {
		t.Fatalf("expected ErrReauthRequired, got %v", err)
	}
	if key, _ := store.Load(); key != "" {
		t.Errorf("rejected key must be cleared, still stored: %q", key)
	}
}

func TestMissingKeyRequiresReauth(t *testing.T) {
	server := newAdminServer(t, "rahasia")
	defer server.Close()
	client, _ := newTestClient(t, server.URL, "")

	if _, err := client.Pending(context.Background()); !errors.Is(err, ErrReauthRequired) {
		t.Fatalf("expected ErrReauthRequired without a stored key, got %v", err)
	}
}

func TestApproveReturnsResult(t *testing.T) {
	server := newAdminServer(t, "rahasia")
	defer server.Close()
	client, _ := newTestClient(t, server.URL, "rahasia")

	result, err := client.Approve(context.Background(), "p-1", "transfer cocok")
	if err != nil {
		t.Fatalf("Approve returned error: %v", err)
	}
	if !result.Success || result.CreditsAdded != 10 || result.NewBalance != 12 {
		t.Errorf("unexpected approve result: %+v", result)
	}
}

func TestRejectSucceeds(t *testing.T) {
	server := newAdminServer(t, "rahasia")
	defer server.Close()
	client, _ := newTestClient(t, server.URL, "rahasia")

	if err := client.Reject(context.Background(), "p-1", "bukti tidak jelas"); err != nil {
		t.Fatalf("Reject returned error: %v", err)
	}
}

func TestHistoryPassesLimit(t *testing.T) {
	var gotLimit string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		_ = json.NewEncoder(w).Encode(map[string]any{"purchases": []model.CreditPurchase{}})
	}))
	defer server.Close()
	client, _ := newTestClient(t, server.URL, "rahasia")

	if _, err := client.History(context.Background(), 25); err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if gotLimit != "25" {
		t.Errorf("expected limit 25 on the wire, got %q", gotLimit)
	}
}

func TestProofURLCarriesKey(t *testing.T) {
	client, _ := newTestClient(t, "http://backend", "rahasia")

	got, err := client.ProofURL("bukti.jpg")
	if err != nil {
		t.Fatalf("ProofURL returned error: %v", err)
	}
	want := "http://backend/api/credits/proofs/bukti.jpg?admin_key=rahasia"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
