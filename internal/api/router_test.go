package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lalith-99/territorydesk/internal/access"
	"github.com/lalith-99/territorydesk/internal/apperr"
	"github.com/lalith-99/territorydesk/internal/auth"
	"github.com/lalith-99/territorydesk/internal/reconcile"
	"github.com/lalith-99/territorydesk/internal/repository/memory"
	"github.com/lalith-99/territorydesk/internal/service"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	admin   string
	service string
}

func newTestServer(t *testing.T, checks map[string]HealthCheck) *testServer {
	t.Helper()
	current := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }
	logger := zap.NewNop()

	db := memory.New()
	db.SetClock(now)
	store := db.Store()

	admin, err := auth.GenerateToken("admin-1", auth.RoleAdmin, secret, time.Hour)
	require.NoError(t, err)
	svcToken, err := auth.GenerateToken("scheduler", auth.RoleService, secret, time.Hour)
	require.NoError(t, err)

	router := NewRouter(Deps{
		Service:      service.New(store, logger, service.WithClock(now)),
		Resolver:     access.NewResolver(store, logger, access.WithClock(now)),
		Runner:       reconcile.NewRunner(reconcile.Jobs(store, reconcile.DefaultGraceDays), logger, reconcile.WithClock(now)),
		Logger:       logger,
		JWTSecret:    secret,
		PublicPrefix: "/p",
		HealthChecks: checks,
	})
	return &testServer{t: t, handler: router, admin: admin, service: svcToken}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type idBody struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

func TestAssignmentFlow(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/v1/territories", s.admin, gin.H{"name": "T1", "danger_level": "low"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	terr := decode[idBody](t, w)

	w = s.do(http.MethodPost, "/v1/publishers", s.admin, gin.H{"name": "P1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	pub := decode[idBody](t, w)

	w = s.do(http.MethodPut, "/v1/settings", s.admin, gin.H{"territory_link_days": 10})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/v1/territories/"+terr.ID+"/assignments", s.admin, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code, "publisher must be selected")

	w = s.do(http.MethodPost, "/v1/territories/"+terr.ID+"/assignments", s.admin, gin.H{"publisher_id": pub.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	a := decode[idBody](t, w)
	assert.Len(t, a.Token, 32)

	w = s.do(http.MethodPost, "/v1/territories/"+terr.ID+"/assignments", s.admin, gin.H{"publisher_id": pub.ID})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodGet, "/v1/territories/"+terr.ID, s.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[struct {
		Status        string `json:"status"`
		DaysRemaining *int   `json:"days_remaining"`
	}](t, w)
	assert.Equal(t, "assigned", view.Status)
	require.NotNil(t, view.DaysRemaining)
	assert.Equal(t, 10, *view.DaysRemaining)

	// Public link works without credentials, through the live path.
	w = s.do(http.MethodGet, "/p/"+a.Token, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	public := decode[access.PublicView](t, w)
	assert.Equal(t, "T1", public.TerritoryName)
	assert.Equal(t, access.SourceLive, public.Source)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	w = s.do(http.MethodGet, "/p/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/v1/assignments/"+a.ID+"/return", s.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodPost, "/v1/assignments/"+a.ID+"/return", s.admin, nil)
	require.Equal(t, http.StatusOK, w.Code, "return is idempotent")

	w = s.do(http.MethodGet, "/v1/assignments?territory_id="+terr.ID, s.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[[]struct {
		State string `json:"state"`
	}](t, w)
	require.Len(t, history, 1)
	assert.Equal(t, "returned", history[0].State)
}

func TestZoneDeleteConflict(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/v1/zones", s.admin, gin.H{"name": "Z1"})
	require.Equal(t, http.StatusCreated, w.Code)
	zone := decode[idBody](t, w)

	w = s.do(http.MethodPost, "/v1/territories", s.admin, gin.H{"name": "T1", "zone_id": zone.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	terr := decode[idBody](t, w)

	w = s.do(http.MethodDelete, "/v1/zones/"+zone.ID, s.admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "territories")

	w = s.do(http.MethodGet, "/v1/territories?zone_id="+zone.ID, s.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]idBody](t, w), 1)

	w = s.do(http.MethodDelete, "/v1/territories/"+terr.ID, s.admin, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodDelete, "/v1/zones/"+zone.ID, s.admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestBadInput(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"bad id", http.MethodGet, "/v1/territories/not-a-uuid", nil, http.StatusBadRequest},
		{"missing name", http.MethodPost, "/v1/zones", gin.H{}, http.StatusBadRequest},
		{"bad danger level", http.MethodPost, "/v1/territories", gin.H{"name": "T", "danger_level": "lava"}, http.StatusBadRequest},
		{"non-positive link days", http.MethodPut, "/v1/settings", gin.H{"territory_link_days": 0}, http.StatusBadRequest},
		{"bad filter", http.MethodGet, "/v1/assignments?open=maybe", nil, http.StatusBadRequest},
		{"unknown territory", http.MethodGet, "/v1/territories/6f1c7a3e-6a44-4c1b-9a55-0b8d5a0c7e11", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(tt.method, tt.path, s.admin, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestAuthGroups(t *testing.T) {
	s := newTestServer(t, nil)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/v1/zones", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/v1/zones", s.service, nil).Code)

	w := s.do(http.MethodPost, "/functions/v1/"+reconcile.AutoReturnJob, s.admin, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestJobEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	for _, name := range []string{reconcile.SyncExpirationJob, reconcile.AutoReturnJob, reconcile.SyncSnapshotsJob} {
		w := s.do(http.MethodPost, "/functions/v1/"+name, s.service, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		env := decode[struct {
			Success bool             `json:"success"`
			Data    reconcile.Report `json:"data"`
		}](t, w)
		assert.True(t, env.Success)
		assert.Equal(t, name, env.Data.Job)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, map[string]HealthCheck{
		"postgres": func(context.Context) error { return nil },
	})
	w := s.do(http.MethodGet, "/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","dependencies":{"postgres":"ok"}}`, w.Body.String())

	s = newTestServer(t, map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("dial tcp: refused") },
	})
	w = s.do(http.MethodGet, "/v1/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"degraded","dependencies":{"redis":"down"}}`, w.Body.String())
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(apperr.Validation("x")))
	assert.Equal(t, http.StatusNotFound, statusFor(apperr.NotFound("x")))
	assert.Equal(t, http.StatusConflict, statusFor(apperr.Conflict("x")))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(apperr.Store("x", errors.New("boom"))))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
