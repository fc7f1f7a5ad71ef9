package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nikosoko-backend/internal/domain"
	"nikosoko-backend/internal/events"
	"nikosoko-backend/internal/lock"
	"nikosoko-backend/internal/metrics"
	"nikosoko-backend/internal/repository/memory"
	"nikosoko-backend/internal/security"
	"nikosoko-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

type env struct {
	handler http.Handler
	tokens  security.TokenManager
	gate    service.GatePassService
	hostID  int32
}

func newEnv(t *testing.T, db Pinger) *env {
	t.Helper()
	store := memory.NewStore()
	m := metrics.New()
	tokens := security.NewTokenManager("http-test-secret", time.Hour, time.Hour)
	gate := service.NewGatePassService(store.Invitations(), store.Providers(),
		service.NewInbox(store.Notifications(), m), lock.NewKeyedMutex(), events.Noop{}, m, service.GatePassOptions{})

	host := &domain.Provider{Name: "Amina", Phone: "0733000001"}
	require.NoError(t, store.Providers().Create(context.Background(), host))

	return &env{
		handler: NewRouter(NewGateHandler(gate, tokens), m.Handler(), db, nil),
		tokens:  tokens,
		gate:    gate,
		hostID:  host.ID,
	}
}

func (e *env) scan(t *testing.T, token, code string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"access_code": code})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/gate/scan", bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestGateHandler_Scan(t *testing.T) {
	e := newEnv(t, nil)
	guard, err := e.tokens.GenerateDeviceToken("gate-1", []string{security.RoleGuard}, time.Hour)
	require.NoError(t, err)

	inv, err := e.gate.CreateInvite(context.Background(), e.hostID, "0744000001", "2026-10-20")
	require.NoError(t, err)

	rec := e.scan(t, guard, inv.AccessCode)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp scanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "admitted", resp.Result)
	assert.Equal(t, domain.InvitationStatusUsed, resp.Invitation.Status)

	for _, code := range []string{inv.AccessCode, "123456", domain.PendingAccessCode, ""} {
		rec = e.scan(t, guard, code)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, code)
		assert.JSONEq(t, `{"result":"code_invalid"}`, rec.Body.String())
	}
}

func TestGateHandler_ScanAuth(t *testing.T) {
	e := newEnv(t, nil)

	assert.Equal(t, http.StatusUnauthorized, e.scan(t, "", "123456").Code)
	assert.Equal(t, http.StatusUnauthorized, e.scan(t, "garbage", "123456").Code)

	user, err := e.tokens.GenerateAccessToken(e.hostID, "0733000001", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, e.scan(t, user, "123456").Code)

	refresh, err := e.tokens.GenerateRefreshToken(e.hostID, "0733000001")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, e.scan(t, refresh, "123456").Code)

	superhost, err := e.tokens.GenerateAccessToken(e.hostID, "0733000001", []string{security.RoleSuperhost})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, e.scan(t, superhost, "123456").Code)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	e := newEnv(t, fakePinger{})
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	down := newEnv(t, fakePinger{err: errors.New("connection refused")})
	rec = httptest.NewRecorder()
	down.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	guard, err := e.tokens.GenerateDeviceToken("gate-1", []string{security.RoleGuard}, time.Hour)
	require.NoError(t, err)
	e.scan(t, guard, "999999")

	rec = httptest.NewRecorder()
	e.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `nikosoko_gatepass_redemptions_total{result="invalid"} 1`)
}

func TestRouter_CORSPreflight(t *testing.T) {
	e := newEnv(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/gate/scan", nil)
	req.Header.Set("Origin", "https://gate.nikosoko.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
