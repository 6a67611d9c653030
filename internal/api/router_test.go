package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhi-dashboard/api/internal/api/handlers"
	mw "github.com/hhi-dashboard/api/internal/api/middleware"
	"github.com/hhi-dashboard/api/pkg/logger"
)

var testSecret = []byte("router-test-secret-0123456789")

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	return NewRouter(Dependencies{
		JWTSecret:     testSecret,
		RateLimiter:   mw.NewRateLimiter(1000, 1000),
		Done:          done,
		Health:        handlers.NewHealthHandler(nil),
		Webhook:       handlers.NewWebhookHandler(nil),
		Communication: handlers.NewCommunicationHandler(nil),
		Projects:      handlers.NewProjectsHandler(nil, nil, nil),
		Stages:        handlers.NewStagesHandler(nil),
		Users:         handlers.NewUsersHandler(nil),
	})
}

func token(t *testing.T, role string) string {
	t.Helper()
	claims := mw.Claims{
		OrgID: "org_1",
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user_1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return s
}

func TestRouterPublicEndpoints(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/api/webhooks/onedrive"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestRouterWebhookValidationIsPublic(t *testing.T) {
	r := newTestRouter(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/webhooks/onedrive?validationToken=hello", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "hello", rr.Body.String())
}

func TestRouterRequiresToken(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/api/projects", "/api/communication", "/api/stages", "/api/users/me"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}
}

func TestRouterEnforcesPermissions(t *testing.T) {
	r := newTestRouter(t)
	viewer := token(t, "viewer")

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/projects"},
		{http.MethodPost, "/api/communication"},
		{http.MethodPut, "/api/communication"},
		{http.MethodPut, "/api/stages/4"},
		{http.MethodGet, "/api/users"},
		{http.MethodDelete, "/api/projects/6f1c2c1e-8a4b-4b8e-9a43-4f5f0e6b2a10"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(`{}`))
		req.Header.Set("Authorization", "Bearer "+viewer)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusForbidden, rr.Code, tc.method+" "+tc.path)
	}
}
