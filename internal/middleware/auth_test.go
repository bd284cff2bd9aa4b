package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalith-99/territorydesk/internal/auth"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(roles ...string) *gin.Engine {
	r := gin.New()
	r.GET("/", AuthMiddleware(secret), RequireRole(roles...), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": GetSubject(c), "role": GetRole(c)})
	})
	return r
}

func do(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func token(t *testing.T, role string) string {
	t.Helper()
	signed, err := auth.GenerateToken("u1", role, secret, time.Hour)
	require.NoError(t, err)
	return signed
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter(auth.RoleAdmin, auth.RoleService)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"admin", "Bearer " + token(t, auth.RoleAdmin), http.StatusOK},
		{"service", "bearer " + token(t, auth.RoleService), http.StatusOK},
		{"other role", "Bearer " + token(t, "authenticated"), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.header)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestRequireServiceRole(t *testing.T) {
	r := newRouter(auth.RoleService)
	assert.Equal(t, http.StatusForbidden, do(r, "Bearer "+token(t, auth.RoleAdmin)).Code)

	w := do(r, "Bearer "+token(t, auth.RoleService))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subject":"u1","role":"service_role"}`, w.Body.String())
}
