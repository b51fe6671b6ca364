package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/limiter"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(method, target, payload string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if payload != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(payload))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRestAbortSuccess(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/", "")
	require.NoError(t, RestAbort(c, map[string]int{"balance": 10}, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	out := decodeBody(t, rec)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, map[string]any{"balance": float64(10)}, out["data"])
	assert.NotContains(t, out, "error")
}

func TestRestAbortErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"kind kept", errorx.Wrap(errors.New("insufficient balance"), errorx.Invalid), http.StatusBadRequest, "invalid-request", "insufficient balance"},
		{"forbidden", errorx.Wrap(errors.New("admin only"), errorx.Authz), http.StatusForbidden, "authorization", "admin only"},
		{"no rows", sql.ErrNoRows, http.StatusNotFound, "resource-not-found", "not found"},
		{"rate limited", limiter.ErrRateLimited, http.StatusTooManyRequests, "rate-limiting", "rate limited"},
		{"internal masked", errors.New("dial tcp 10.0.0.1:5432: refused"), http.StatusInternalServerError, "internal-service-failure", "unable to process"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(http.MethodGet, "/", "")
			require.NoError(t, RestAbort(c, nil, tt.err))

			assert.Equal(t, tt.status, rec.Code)
			out := decodeBody(t, rec)
			assert.Equal(t, false, out["success"])
			assert.Equal(t, tt.code, out["code"])
			assert.Equal(t, tt.message, out["error"])
			assert.NotContains(t, out, "data")
		})
	}
}

func TestBindAndValidate(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/", `{"to":"42","currency":"stardust","amount":0}`)
	var payload transferPayload
	err := bindAndValidate(c, &payload)

	var target *errorx.Error
	require.ErrorAs(t, err, &target)
	assert.True(t, target.Of(errorx.Validation))
	assert.Contains(t, err.Error(), "Amount")

	c, _ = newContext(http.MethodPost, "/", `{"to":`)
	err = bindAndValidate(c, &payload)
	require.ErrorAs(t, err, &target)
	assert.True(t, target.Of(errorx.Invalid))

	c, _ = newContext(http.MethodPost, "/", `{"to":"42","currency":"stardust","amount":5}`)
	require.NoError(t, bindAndValidate(c, &payload))
	assert.Equal(t, int64(5), payload.Amount)
}

func TestPaging(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/?page=0&limit=1000", "")
	page, limit := paging(c)
	assert.Equal(t, 1, page)
	assert.Equal(t, 100, limit)

	c, _ = newContext(http.MethodGet, "/?page=3", "")
	page, limit = paging(c)
	assert.Equal(t, 3, page)
	assert.Equal(t, 20, limit)
}
