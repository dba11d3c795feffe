package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(t *testing.T, protect func(http.Handler) http.Handler) (http.Handler, *Service) {
	t.Helper()
	svc, _, _ := newTestAuthService(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	r.Use(Authenticate(svc.tokens, logger))
	r.Route("/api/auth", NewHandler(logger, svc, protect).MountRoutes)
	return r, svc
}

func call(t *testing.T, h http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var out map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &out)
	return rr, out
}

func TestRegisterAndSignInOverHTTP(t *testing.T) {
	router, _ := newAuthRouter(t, nil)
	payload := map[string]any{"name": "Alice", "username": "alice", "password": "s3cret!"}

	rr, body := call(t, router, http.MethodPost, "/api/auth", "", payload)
	require.Equal(t, http.StatusCreated, rr.Code)
	user := body["user"].(map[string]any)
	require.Equal(t, "alice@example.com", user["email"])
	require.NotContains(t, user, "password")
	require.NotContains(t, user, "PasswordHash")

	rr, body = call(t, router, http.MethodPost, "/api/auth", "", payload)
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, "User already exists", body["error"])

	rr, body = call(t, router, http.MethodPost, "/api/auth/signin", "", map[string]any{"username": "alice", "password": "s3cret!"})
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotEmpty(t, body["token"])
	require.NotContains(t, body["user"].(map[string]any), "password")

	rr, body = call(t, router, http.MethodPost, "/api/auth/signin", "", map[string]any{"username": "alice", "password": "nope"})
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "Invalid credentials", body["error"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router, svc := newAuthRouter(t, RequireActor)
	rr, _ := call(t, router, http.MethodPost, "/api/auth", "", map[string]any{"name": "Alice", "username": "alice", "password": "s3cret!"})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr, _ = call(t, router, http.MethodGet, "/api/auth/users", "", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr, _ = call(t, router, http.MethodGet, "/api/auth/users", "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	user, err := svc.Get(t.Context(), 1)
	require.NoError(t, err)
	token, err := svc.tokens.Issue(user)
	require.NoError(t, err)

	rr, _ = call(t, router, http.MethodGet, "/api/auth/users", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr, body := call(t, router, http.MethodPut, "/api/auth/1/modules", token, map[string]any{"registeredModules": []string{"reports"}})
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, []any{"reports"}, body["registeredModules"])

	rr, body = call(t, router, http.MethodGet, "/api/auth/77", token, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "User not found", body["error"])

	rr, _ = call(t, router, http.MethodPut, "/api/auth/1/resetPassword", token, map[string]any{"password": "brand-new"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr, _ = call(t, router, http.MethodDelete, "/api/auth/1", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestExpiredTokenIsRejected(t *testing.T) {
	router, svc := newAuthRouter(t, RequireActor)
	svc.tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := svc.tokens.Issue(User{ID: 1, Username: "alice"})
	require.NoError(t, err)
	svc.tokens.now = time.Now

	rr, _ := call(t, router, http.MethodGet, "/api/auth/users", token, nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestNewTokenIssuerValidatesConfig(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour)
	require.Error(t, err)
	_, err = NewTokenIssuer("secret", 0)
	require.Error(t, err)
}
