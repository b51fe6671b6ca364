package handler

import (
	"hamsterhub/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupUser struct {
	container *do.Injector
}

func (gr *groupUser) Me(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	serviceUser, err := do.Invoke[*services.ServiceUser](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	me, err := serviceUser.Me(ctx, user)
	return RestAbort(c, me, err)
}
