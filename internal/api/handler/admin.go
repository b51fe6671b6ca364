package handler

import (
	"hamsterhub/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupAdmin struct {
	container *do.Injector
}

type configPayload struct {
	Value string `json:"value"`
}

func (gr *groupAdmin) SearchUsers(c echo.Context) error {
	serviceUser, err := do.Invoke[*services.ServiceUser](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	page, limit := paging(c)
	users, err := serviceUser.SearchUsers(c.Request().Context(), c.QueryParam("q"), page, limit)
	return RestAbort(c, users, err)
}

func (gr *groupAdmin) GetUser(c echo.Context) error {
	serviceAdmin, err := do.Invoke[*services.ServiceAdmin](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	user, err := serviceAdmin.LookupUser(c.Request().Context(), c.Param("id"))
	return RestAbort(c, user, err)
}

func (gr *groupAdmin) Grant(c echo.Context) error {
	return gr.adjust(c, false)
}

func (gr *groupAdmin) Deduct(c echo.Context) error {
	return gr.adjust(c, true)
}

func (gr *groupAdmin) adjust(c echo.Context, deduct bool) error {
	ctx := c.Request().Context()

	admin, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	var payload services.AdjustBalanceInput
	if err := bindAndValidate(c, &payload); err != nil {
		return RestAbort(c, nil, err)
	}

	serviceAdmin, err := do.Invoke[*services.ServiceAdmin](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	if deduct {
		account, err := serviceAdmin.DeductCurrency(ctx, admin, &payload)
		return RestAbort(c, account, err)
	}

	account, err := serviceAdmin.GrantCurrency(ctx, admin, &payload)
	return RestAbort(c, account, err)
}

func (gr *groupAdmin) CancelTask(c echo.Context) error {
	ctx := c.Request().Context()

	admin, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	serviceAdmin, err := do.Invoke[*services.ServiceAdmin](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	task, err := serviceAdmin.CancelTask(ctx, admin, c.Param("id"))
	return RestAbort(c, task, err)
}

func (gr *groupAdmin) GetConfigs(c echo.Context) error {
	serviceConfig, err := do.Invoke[*services.ServiceConfig](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	configs, err := serviceConfig.ListConfigs(c.Request().Context())
	return RestAbort(c, configs, err)
}

func (gr *groupAdmin) SetConfig(c echo.Context) error {
	var payload configPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return RestAbort(c, nil, err)
	}

	serviceConfig, err := do.Invoke[*services.ServiceConfig](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	config, err := serviceConfig.SetConfig(c.Request().Context(), c.Param("key"), payload.Value)
	return RestAbort(c, config, err)
}

func (gr *groupAdmin) RebuildLeaderboards(c echo.Context) error {
	serviceLeaderboard, err := do.Invoke[*services.ServiceLeaderboard](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	err = serviceLeaderboard.Rebuild(c.Request().Context())
	return RestAbort(c, "rebuilt", err)
}

func (gr *groupAdmin) SweepVoice(c echo.Context) error {
	serviceVoice, err := do.Invoke[*services.ServiceVoice](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	swept, err := serviceVoice.SweepStale(c.Request().Context())
	return RestAbort(c, map[string]int{"swept": swept}, err)
}
