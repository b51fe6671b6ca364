package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"hamsterhub/internal/models"

	"github.com/go-redis/redis_rate/v10"
	"github.com/hiendaovinh/toolkit/pkg/limiter"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier struct{}

func (fakeVerifier) Validate(token string) (*models.SessionUser, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &models.SessionUser{ID: "1001", Username: "hammy"}, nil
}

type fakeLimiter struct {
	err error
}

func (l fakeLimiter) Allow(ctx context.Context, key string, limit redis_rate.Limit) error {
	return l.err
}

func serveAuthn(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, *models.SessionUser) {
	t.Helper()
	var seen *models.SessionUser
	e := echo.New()
	e.GET("/", func(c echo.Context) error {
		seen, _ = c.Request().Context().Value(ctxKeyAuthSession).(*models.SessionUser)
		return RestAbort(c, "ok", nil)
	}, Authn(fakeVerifier{}))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, seen
}

func TestAuthnCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "good"})

	rec, seen := serveAuthn(t, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "1001", seen.ID)
}

func TestAuthnBearer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer good")

	rec, seen := serveAuthn(t, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
}

func TestAuthnWithoutTokenPassesThrough(t *testing.T) {
	rec, seen := serveAuthn(t, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, seen)
}

func TestAuthnInvalidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "forged"})

	rec, seen := serveAuthn(t, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, seen)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestResolveValidUserWithoutSession(t *testing.T) {
	_, err := ResolveValidUser(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, "missing session", err.Error())
}

func TestResolveValidUserPrefersResolvedUser(t *testing.T) {
	ctx := context.WithValue(context.Background(), ctxKeyAuthUser, &models.User{ID: "7"})
	user, err := ResolveValidUser(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "7", user.ID)
}

func TestAuthnBot(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		header  string
		limiter fakeLimiter
		status  int
	}{
		{"valid key", "s3cret", "s3cret", fakeLimiter{}, http.StatusOK},
		{"wrong key", "s3cret", "nope", fakeLimiter{}, http.StatusUnauthorized},
		{"missing header", "s3cret", "", fakeLimiter{}, http.StatusUnauthorized},
		{"disabled", "", "", fakeLimiter{}, http.StatusUnauthorized},
		{"rate limited", "s3cret", "s3cret", fakeLimiter{limiter.ErrRateLimited}, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.POST("/bot", func(c echo.Context) error {
				return RestAbort(c, "ok", nil)
			}, AuthnBot(tt.key, tt.limiter))

			req := httptest.NewRequest(http.MethodPost, "/bot", nil)
			if tt.header != "" {
				req.Header.Set("X-Api-Key", tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
