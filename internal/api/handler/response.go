package handler

import (
	"errors"
	"net/http"
	"strconv"

	"hamsterhub/internal/pkg"
	"hamsterhub/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/hiendaovinh/toolkit/pkg/limiter"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type body struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

var validate = validator.New()

// RestAbort writes {success, data} or {success, code, error}. Errors already carrying
// a kind keep it; anything else becomes an internal failure with a masked message.
func RestAbort(c echo.Context, v any, err error) error {
	if err == nil {
		return c.JSON(http.StatusOK, &body{Success: true, Data: v})
	}

	var target *errorx.Error
	switch {
	case errors.Is(err, limiter.ErrRateLimited):
		target = errorx.Wrap(err, errorx.RateLimiting)
	case errors.As(err, &target):
	default:
		target = errorx.Wrap(err, errorx.Service)
	}

	if target.Of(errorx.Service) || target.Of(errorx.Database) {
		zap.S().Errorw("request failed", "method", c.Request().Method, "uri", c.Request().RequestURI, "err", err)
	}

	return c.JSON(target.Status(), &body{Code: target.Code(), Error: errorx.MaskErrorMessage(target)})
}

func bindAndValidate(c echo.Context, payload any) error {
	if err := c.Bind(payload); err != nil {
		return errorx.Wrap(errors.New("malformed request body"), errorx.Invalid)
	}

	if err := httpx.ValidateStruct(c, validate, payload); err != nil {
		return errorx.Wrap(err, errorx.Validation)
	}

	return nil
}

func paging(c echo.Context) (int, int) {
	return pkg.ClampPage(
		httpx.QueryParamInt(c, "page", 1),
		httpx.QueryParamInt(c, "limit", 20),
		services.HISTORY_MAX_LIMIT,
	)
}

func paramInt64(c echo.Context, name string) (int64, error) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, errorx.Wrap(errors.New("invalid "+name), errorx.Invalid)
	}
	return v, nil
}
