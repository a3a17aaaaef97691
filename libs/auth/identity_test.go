package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func identityEcho(t *testing.T, want Identity) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := IdentityFromContext(r.Context())
		if !ok || got != want {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireIdentityBearer(t *testing.T) {
	secret := "test-secret"
	token, err := SignHS256(NewClaims("client-1", RoleClient, time.Hour), secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}

	h := RequireIdentity(Verifier{Secret: secret})(identityEcho(t, Identity{UserID: "client-1", Role: RoleClient}))

	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}

	reqBad := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	reqBad.Header.Set("Authorization", "Bearer badtoken")
	rwBad := httptest.NewRecorder()
	h.ServeHTTP(rwBad, reqBad)
	if rwBad.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rwBad.Code)
	}
	if ct := rwBad.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected json failure body, got content type %q", ct)
	}
	var failure struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rwBad.Body.Bytes(), &failure); err != nil {
		t.Fatalf("decode failure body: %v", err)
	}
	if failure.Success || failure.Message != "invalid token" {
		t.Fatalf("unexpected failure body: %+v", failure)
	}
}

func TestRequireIdentityRejectsUnknownRole(t *testing.T) {
	secret := "test-secret"
	token, err := SignHS256(NewClaims("admin-1", "admin", time.Hour), secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	h := RequireIdentity(Verifier{Secret: secret})(identityEcho(t, Identity{}))

	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rw.Code)
	}
}

func TestRequireIdentityTrustedHeaders(t *testing.T) {
	want := Identity{UserID: "mock_1", Role: RoleProvider}
	h := RequireIdentity(Verifier{TrustHeaders: true})(identityEcho(t, want))

	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	req.Header.Set(HeaderUserID, "mock_1")
	req.Header.Set(HeaderRole, RoleProvider)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}

	untrusted := RequireIdentity(Verifier{})(identityEcho(t, want))
	rwUntrusted := httptest.NewRecorder()
	untrusted.ServeHTTP(rwUntrusted, req)
	if rwUntrusted.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when headers are not trusted, got %d", rwUntrusted.Code)
	}
}
