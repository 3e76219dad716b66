package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fletero-erp/fletero-erp/internal/platform/httpx"
	"github.com/fletero-erp/fletero-erp/internal/shared"
	_ "github.com/fletero-erp/fletero-erp/testing"
)

type stubRepo struct {
	user *User
}

func (s *stubRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, httpx.ErrUnauthorized
	}
	clone := *s.user
	return &clone, nil
}

func fixtureUser(t *testing.T, password string) *User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &User{
		ID:           7,
		Email:        "ventas@fletero.local",
		FullName:     "Operador Ventas",
		PasswordHash: string(hashed),
		IsActive:     true,
	}
}

func newTestService(t *testing.T, repo Repository) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, client, time.Hour), mr
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, &stubRepo{user: fixtureUser(t, "hormigon88")})

	user, err := service.Authenticate(ctx, "ventas@fletero.local", "hormigon88")
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)

	_, err = service.Authenticate(ctx, "ventas@fletero.local", "wrongpass")
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)

	_, err = service.Authenticate(ctx, "nadie@fletero.local", "hormigon88")
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	service, mr := newTestService(t, &stubRepo{})

	token, err := service.IssueToken(ctx, 7)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	ttl := mr.TTL(tokenKeyPrefix + token)
	assert.Equal(t, time.Hour, ttl)

	userID, err := service.ResolveToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), userID)

	_, err = service.ResolveToken(ctx, "")
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)

	_, err = service.ResolveToken(ctx, "no-such-token")
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)

	require.NoError(t, service.RevokeToken(ctx, token))
	_, err = service.ResolveToken(ctx, token)
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestTokenExpiry(t *testing.T) {
	ctx := context.Background()
	service, mr := newTestService(t, &stubRepo{})

	token, err := service.IssueToken(ctx, 7)
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)
	_, err = service.ResolveToken(ctx, token)
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestLoginHandler(t *testing.T) {
	service, _ := newTestService(t, &stubRepo{user: fixtureUser(t, "hormigon88")})
	handler := NewHandler(nil, service)

	router := chi.NewRouter()
	router.Route("/auth", handler.MountRoutes)

	body := `{"email":"ventas@fletero.local","password":"hormigon88"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"token"`)
	assert.Contains(t, res.Body.String(), `"ventas@fletero.local"`)
	assert.NotContains(t, res.Body.String(), "password_hash")

	bad := `{"email":"ventas@fletero.local","password":"wrongpass"}`
	req = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(bad))
	req.Header.Set("Content-Type", "application/json")
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestRequireUser(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, &stubRepo{})
	mw := Middleware{Service: service}

	token, err := service.IssueToken(ctx, 7)
	require.NoError(t, err)

	var seenUserID int64
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUserID, _ = shared.UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	mw.RequireUser(next).ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, int64(7), seenUserID)

	req = httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer stale-token")
	res = httptest.NewRecorder()
	mw.RequireUser(next).ServeHTTP(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
}
