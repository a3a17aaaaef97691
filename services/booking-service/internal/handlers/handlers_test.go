package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/massagebook/libs/auth"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/directory"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/events"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/storage"
)

const secret = "handler-test-secret"

type server struct {
	mux *http.ServeMux
	dir *directory.Memory
}

func newServer(t *testing.T) *server {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	dir := directory.NewMemory()
	ctx := context.Background()
	require.NoError(t, dir.Create(ctx, directory.User{ID: "ana", Name: "Ana", Email: "ana@example.com", Role: auth.RoleProvider},
		[]directory.Service{{ID: "1", Name: "Massagem Relaxante", DurationMinutes: 60, Price: 80}}))
	require.NoError(t, dir.Create(ctx, directory.User{ID: "bruno", Name: "Bruno", Email: "bruno@example.com", Role: auth.RoleClient}, nil))
	require.NoError(t, dir.Create(ctx, directory.User{ID: "clara", Name: "Clara", Email: "clara@example.com", Role: auth.RoleClient}, nil))

	store := storage.NewBlobStore(storage.NewMemoryKV(), "")
	mgr := booking.NewManager(store, dir, booking.Options{
		Emitter: events.LogEmitter{Logger: logger},
		Logger:  logger,
		Now:     func() time.Time { return time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC) },
	})
	accounts := directory.NewAccounts(dir, secret, time.Hour)

	mux := http.NewServeMux()
	Register(mux, auth.RequireIdentity(auth.Verifier{Secret: secret}),
		NewAppointmentHandler(mgr, logger),
		NewProviderHandler(mgr, dir, accounts, logger),
		NewAuthHandler(accounts, logger),
	)
	return &server{mux: mux, dir: dir}
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := auth.SignHS256(auth.NewClaims(userID, role, time.Hour), secret)
	require.NoError(t, err)
	return tok
}

func (s *server) do(t *testing.T, method, path, tok string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rw := httptest.NewRecorder()
	s.mux.ServeHTTP(rw, req)

	var out map[string]any
	if rw.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &out))
	}
	return rw, out
}

func TestAppointmentFlow(t *testing.T) {
	s := newServer(t)
	client := token(t, "bruno", auth.RoleClient)
	provider := token(t, "ana", auth.RoleProvider)

	rw, body := s.do(t, http.MethodPost, "/api/v1/appointments", client, map[string]string{
		"providerId": "ana", "serviceId": "1", "date": "2025-03-10", "time": "09:00", "notes": "first visit",
	})
	require.Equal(t, http.StatusCreated, rw.Code, rw.Body.String())
	assert.Equal(t, true, body["success"])
	appt := body["appointment"].(map[string]any)
	id := appt["id"].(string)
	assert.Equal(t, "pending", appt["status"])

	rw, body = s.do(t, http.MethodPost, "/api/v1/appointments", token(t, "clara", auth.RoleClient), map[string]string{
		"providerId": "ana", "serviceId": "1", "date": "2025-03-10", "time": "09:00",
	})
	assert.Equal(t, http.StatusConflict, rw.Code)
	assert.Equal(t, false, body["success"])
	assert.NotContains(t, body, "appointment")

	rw, _ = s.do(t, http.MethodPost, "/api/v1/appointments/"+id+"/confirm", client, nil)
	assert.Equal(t, http.StatusForbidden, rw.Code)

	rw, body = s.do(t, http.MethodPost, "/api/v1/appointments/"+id+"/confirm", provider, nil)
	require.Equal(t, http.StatusOK, rw.Code, rw.Body.String())
	assert.Equal(t, "confirmed", body["appointment"].(map[string]any)["status"])

	rw, body = s.do(t, http.MethodGet, "/api/v1/providers/ana/slots?date=2025-03-10", "", nil)
	require.Equal(t, http.StatusOK, rw.Code)
	slots := body["slots"].([]any)
	assert.Len(t, slots, 20)
	assert.NotContains(t, slots, "09:00")

	rw, body = s.do(t, http.MethodPost, "/api/v1/appointments/"+id+"/reschedule", provider, map[string]string{
		"date": "2025-03-10", "time": "10:00", "reason": "conflito",
	})
	require.Equal(t, http.StatusOK, rw.Code, rw.Body.String())
	assert.Equal(t, "first visit\n\nREAGENDADO: conflito", body["appointment"].(map[string]any)["notes"])

	rw, body = s.do(t, http.MethodGet, "/api/v1/appointments", client, nil)
	require.Equal(t, http.StatusOK, rw.Code)
	list := body["appointments"].([]any)
	require.Len(t, list, 1)
	item := list[0].(map[string]any)
	assert.Equal(t, id, item["id"])
	assert.Equal(t, "Ana", item["provider"].(map[string]any)["name"])
	assert.Equal(t, "Massagem Relaxante", item["service"].(map[string]any)["name"])

	rw, _ = s.do(t, http.MethodPost, "/api/v1/appointments/"+id+"/complete", provider, nil)
	assert.Equal(t, http.StatusOK, rw.Code)
	rw, body = s.do(t, http.MethodPost, "/api/v1/appointments/"+id+"/cancel", client, nil)
	assert.Equal(t, http.StatusConflict, rw.Code)
	assert.Equal(t, false, body["success"])
}

func TestAppointmentErrors(t *testing.T) {
	s := newServer(t)
	client := token(t, "bruno", auth.RoleClient)
	provider := token(t, "ana", auth.RoleProvider)

	rw, body := s.do(t, http.MethodPost, "/api/v1/appointments", "", map[string]string{"providerId": "ana"})
	assert.Equal(t, http.StatusUnauthorized, rw.Code)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["message"])

	rw, body = s.do(t, http.MethodPost, "/api/v1/appointments", client, "{bad json")
	assert.Equal(t, http.StatusBadRequest, rw.Code)
	assert.Equal(t, "invalid json body", body["message"])

	rw, _ = s.do(t, http.MethodPost, "/api/v1/appointments", client, map[string]string{
		"providerId": "ana", "serviceId": "1", "date": "2025-03-10", "time": "09:10",
	})
	assert.Equal(t, http.StatusBadRequest, rw.Code)

	rw, _ = s.do(t, http.MethodPost, "/api/v1/appointments/missing/confirm", provider, nil)
	assert.Equal(t, http.StatusNotFound, rw.Code)

	rw, _ = s.do(t, http.MethodPost, "/api/v1/appointments/missing/archive", provider, nil)
	assert.Equal(t, http.StatusNotFound, rw.Code)

	rw, body = s.do(t, http.MethodPost, "/api/v1/appointments/manual", provider, map[string]string{
		"clientId": "bruno", "serviceId": "1", "date": "2025-03-10", "time": "11:00",
	})
	require.Equal(t, http.StatusCreated, rw.Code, rw.Body.String())
	appt := body["appointment"].(map[string]any)
	assert.Equal(t, "confirmed", appt["status"])
	assert.Equal(t, "ana", appt["providerId"])

	rw, _ = s.do(t, http.MethodPost, "/api/v1/appointments/"+appt["id"].(string)+"/reschedule", provider, map[string]string{
		"date": "2025-03-10", "time": "12:00",
	})
	assert.Equal(t, http.StatusBadRequest, rw.Code)

	rw, body = s.do(t, http.MethodGet, "/api/v1/appointments", provider, nil)
	require.Equal(t, http.StatusOK, rw.Code)
	assert.Len(t, body["appointments"].([]any), 1)
}

func TestProviderRoutes(t *testing.T) {
	s := newServer(t)

	rw, body := s.do(t, http.MethodGet, "/api/v1/providers", "", nil)
	require.Equal(t, http.StatusOK, rw.Code)
	providers := body["providers"].([]any)
	require.Len(t, providers, 1)
	assert.Equal(t, "Ana", providers[0].(map[string]any)["name"])
	assert.NotContains(t, providers[0].(map[string]any), "passwordHash")

	rw, _ = s.do(t, http.MethodGet, "/api/v1/providers/ana/slots", "", nil)
	assert.Equal(t, http.StatusBadRequest, rw.Code)
	rw, _ = s.do(t, http.MethodGet, "/api/v1/providers/ana/slots?date=10-03-2025", "", nil)
	assert.Equal(t, http.StatusBadRequest, rw.Code)

	rw, body = s.do(t, http.MethodGet, "/api/v1/providers/ana/dates?days=3", "", nil)
	require.Equal(t, http.StatusOK, rw.Code)
	assert.Equal(t, []any{"2025-03-10", "2025-03-11", "2025-03-12"}, body["dates"])

	rw, body = s.do(t, http.MethodGet, "/api/v1/providers/ana/dates", "", nil)
	require.Equal(t, http.StatusOK, rw.Code)
	assert.Len(t, body["dates"], 30)

	rw, _ = s.do(t, http.MethodGet, "/api/v1/providers/ana/dates?days=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rw.Code)

	services := map[string]any{"services": []map[string]any{{"name": "Shiatsu", "durationMinutes": 50, "price": 70}}}
	rw, _ = s.do(t, http.MethodPut, "/api/v1/providers/ana/services", token(t, "bruno", auth.RoleClient), services)
	assert.Equal(t, http.StatusForbidden, rw.Code)

	rw, body = s.do(t, http.MethodPut, "/api/v1/providers/ana/services", token(t, "ana", auth.RoleProvider), services)
	require.Equal(t, http.StatusOK, rw.Code, rw.Body.String())
	updated := body["services"].([]any)
	require.Len(t, updated, 1)
	assert.NotEmpty(t, updated[0].(map[string]any)["id"])

	rw, _ = s.do(t, http.MethodPut, "/api/v1/providers/ana/services", token(t, "ana", auth.RoleProvider),
		map[string]any{"services": []map[string]any{{"name": "", "durationMinutes": 50}}})
	assert.Equal(t, http.StatusBadRequest, rw.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	s := newServer(t)

	rw, body := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"name": "Dora", "email": "dora@example.com", "password": "s3cret", "role": "client", "city": "Lisboa",
	})
	require.Equal(t, http.StatusCreated, rw.Code, rw.Body.String())
	user := body["user"].(map[string]any)
	assert.Equal(t, "client", user["role"])
	assert.NotContains(t, user, "passwordHash")

	rw, _ = s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"name": "Dora", "email": "DORA@example.com", "password": "x", "role": "client",
	})
	assert.Equal(t, http.StatusConflict, rw.Code)

	rw, _ = s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"name": "Eve", "email": "eve@example.com", "password": "x", "role": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, rw.Code)

	rw, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "dora@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rw.Code)

	rw, body = s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "dora@example.com", "password": "s3cret"})
	require.Equal(t, http.StatusOK, rw.Code, rw.Body.String())
	tok := body["accessToken"].(string)

	rw, body = s.do(t, http.MethodPost, "/api/v1/appointments", tok, map[string]string{
		"providerId": "ana", "serviceId": "1", "date": "2025-03-10", "time": "16:30",
	})
	require.Equal(t, http.StatusCreated, rw.Code, rw.Body.String())
	assert.Equal(t, user["id"], body["appointment"].(map[string]any)["clientId"])
}

func TestProviderListsClientsForManualBooking(t *testing.T) {
	s := newServer(t)
	provider := token(t, "ana", auth.RoleProvider)

	rw, body := s.do(t, http.MethodGet, "/api/v1/clients", provider, nil)
	require.Equal(t, http.StatusOK, rw.Code, rw.Body.String())
	assert.Equal(t, true, body["success"])
	clients := body["clients"].([]any)
	require.Len(t, clients, 2)
	first := clients[0].(map[string]any)
	assert.Equal(t, "bruno", first["id"])
	assert.Equal(t, "client", first["role"])
	assert.NotContains(t, first, "passwordHash")
	assert.NotContains(t, first, "PasswordHash")
	assert.Equal(t, "clara", clients[1].(map[string]any)["id"])

	rw, body = s.do(t, http.MethodPost, "/api/v1/appointments/manual", provider, map[string]string{
		"clientId": first["id"].(string), "serviceId": "1", "date": "2025-03-10", "time": "15:00",
	})
	require.Equal(t, http.StatusCreated, rw.Code, rw.Body.String())
	assert.Equal(t, "confirmed", body["appointment"].(map[string]any)["status"])

	rw, body = s.do(t, http.MethodGet, "/api/v1/clients", token(t, "bruno", auth.RoleClient), nil)
	assert.Equal(t, http.StatusForbidden, rw.Code)
	assert.Equal(t, false, body["success"])

	rw, _ = s.do(t, http.MethodGet, "/api/v1/clients", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rw.Code)
}
