package handler

import (
	"hamsterhub/internal/models"
	"hamsterhub/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupCurrency struct {
	container *do.Injector
}

type transferPayload struct {
	To       string          `json:"to" validate:"required"`
	Currency models.Currency `json:"currency" validate:"required"`
	Amount   int64           `json:"amount" validate:"gt=0"`
}

func (gr *groupCurrency) Balances(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	serviceCurrency, err := do.Invoke[*services.ServiceCurrency](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	balances, err := serviceCurrency.GetBalances(ctx, user.ID)
	return RestAbort(c, balances, err)
}

func (gr *groupCurrency) History(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	var currency *models.Currency
	if v := c.QueryParam("currency"); v != "" {
		parsed, err := models.ParseCurrency(v)
		if err != nil {
			return RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
		}
		currency = &parsed
	}

	serviceCurrency, err := do.Invoke[*services.ServiceCurrency](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	page, limit := paging(c)
	history, err := serviceCurrency.History(ctx, user.ID, currency, page, limit)
	return RestAbort(c, history, err)
}

func (gr *groupCurrency) Transfer(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	var payload transferPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return RestAbort(c, nil, err)
	}

	serviceCurrency, err := do.Invoke[*services.ServiceCurrency](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	result, err := serviceCurrency.Transfer(ctx, user.ID, payload.To, payload.Currency, payload.Amount)
	return RestAbort(c, result, err)
}
