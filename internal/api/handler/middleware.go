package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"hamsterhub/internal/interfaces"
	"hamsterhub/internal/models"
	"hamsterhub/internal/services"

	"github.com/go-redis/redis_rate/v10"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

const SessionCookieName = "hamster_session"

type ctxKey string

var ctxKeyAuthSession ctxKey = "AUTH_SESSION"
var ctxKeyAuthUser ctxKey = "AUTH_USER"

func sessionToken(c echo.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := c.Request().Header.Get(echo.HeaderAuthorization)
	parts := strings.Split(header, "Bearer")
	if len(parts) != 2 {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// Authn attaches the session identity to the request. Requests without a token pass through.
func Authn(verifier interface {
	Validate(token string) (*models.SessionUser, error)
},
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := sessionToken(c)
			if token == "" {
				return next(c)
			}

			session, err := verifier.Validate(token)
			if err != nil {
				// although it's a client error, we don't want to detailed information
				return RestAbort(c, nil, errorx.Wrap(errors.New("invalid session"), errorx.Authn))
			}

			ctx := context.WithValue(c.Request().Context(), ctxKeyAuthSession, session)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func ResolveValidUser(ctx context.Context, container *do.Injector) (*models.User, error) {
	if user, ok := ctx.Value(ctxKeyAuthUser).(*models.User); ok {
		return user, nil
	}

	session, ok := ctx.Value(ctxKeyAuthSession).(*models.SessionUser)
	if !ok {
		return nil, errorx.Wrap(errors.New("missing session"), errorx.Authn)
	}

	serviceUser, err := do.Invoke[*services.ServiceUser](container)
	if err != nil {
		return nil, err
	}

	return serviceUser.FindOrCreateUser(ctx, session)
}

// RequireAdmin rejects callers that are neither on the allow-list nor hold an admin guild role.
func RequireAdmin(container *do.Injector) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			user, err := ResolveValidUser(ctx, container)
			if err != nil {
				return RestAbort(c, nil, err)
			}

			serviceAdmin, err := do.Invoke[*services.ServiceAdmin](container)
			if err != nil {
				return RestAbort(c, nil, err)
			}

			if !serviceAdmin.IsAdmin(ctx, user.ID) {
				return RestAbort(c, nil, errorx.Wrap(errors.New("admin only"), errorx.Authz))
			}

			user.IsAdmin = true
			ctx = context.WithValue(ctx, ctxKeyAuthUser, user)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// AuthnBot guards the routes fed by the Discord gateway listener.
func AuthnBot(apiKey string, limiter interfaces.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("X-Api-Key")
			if apiKey == "" || header == "" || subtle.ConstantTimeCompare([]byte(header), []byte(apiKey)) != 1 {
				return RestAbort(c, nil, errorx.Wrap(errors.New("unauthorized"), errorx.Authn))
			}

			err := limiter.Allow(c.Request().Context(), services.LimitKeyBot(), redis_rate.PerMinute(services.BOT_RATE_LIMIT_PER_MINUTE))
			if err != nil {
				return RestAbort(c, nil, err)
			}

			return next(c)
		}
	}
}
