package handler

import (
	"hamsterhub/internal/models"
	"hamsterhub/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupGacha struct {
	container *do.Injector
}

type pullPayload struct {
	Count int `json:"count" validate:"oneof=1 10"`
}

type gachaItemPayload struct {
	Name           string           `json:"name" validate:"required,max=120"`
	Description    string           `json:"description" validate:"max=2000"`
	ImageURL       *string          `json:"image_url" validate:"omitempty,url"`
	Rarity         models.Rarity    `json:"rarity" validate:"required"`
	DropRate       int              `json:"drop_rate" validate:"gte=0"`
	RewardCurrency *models.Currency `json:"reward_currency"`
	RewardAmount   int64            `json:"reward_amount" validate:"gte=0"`
	Enabled        bool             `json:"enabled"`
}

func (p *gachaItemPayload) item() *models.GachaItem {
	return &models.GachaItem{
		Name:           p.Name,
		Description:    p.Description,
		ImageURL:       p.ImageURL,
		Rarity:         p.Rarity,
		DropRate:       p.DropRate,
		RewardCurrency: p.RewardCurrency,
		RewardAmount:   p.RewardAmount,
		Enabled:        p.Enabled,
	}
}

func (gr *groupGacha) Pool(c echo.Context) error {
	serviceGacha, err := do.Invoke[*services.ServiceGachaMachine](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	pool, err := serviceGacha.Pool(c.Request().Context())
	return RestAbort(c, pool, err)
}

func (gr *groupGacha) Pull(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	payload := pullPayload{Count: 1}
	if err := bindAndValidate(c, &payload); err != nil {
		return RestAbort(c, nil, err)
	}

	serviceGacha, err := do.Invoke[*services.ServiceGachaMachine](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	result, err := serviceGacha.Pull(ctx, user, payload.Count)
	return RestAbort(c, result, err)
}

func (gr *groupGacha) History(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	serviceGacha, err := do.Invoke[*services.ServiceGachaMachine](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	page, limit := paging(c)
	history, err := serviceGacha.History(ctx, user.ID, page, limit)
	return RestAbort(c, history, err)
}

func (gr *groupGacha) Inventory(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	serviceGacha, err := do.Invoke[*services.ServiceGachaMachine](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	items, err := serviceGacha.Inventory(ctx, user.ID)
	return RestAbort(c, items, err)
}

// admin

func (gr *groupGacha) GetItems(c echo.Context) error {
	serviceGacha, err := do.Invoke[*services.ServiceGachaMachine](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	items, err := serviceGacha.GetItems(c.Request().Context())
	return RestAbort(c, items, err)
}

func (gr *groupGacha) RatesReport(c echo.Context) error {
	serviceGacha, err := do.Invoke[*services.ServiceGachaMachine](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	report, err := serviceGacha.RatesReport(c.Request().Context())
	return RestAbort(c, report, err)
}

func (gr *groupGacha) CreateItem(c echo.Context) error {
	var payload gachaItemPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return RestAbort(c, nil, err)
	}

	serviceGacha, err := do.Invoke[*services.ServiceGachaMachine](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	item, err := serviceGacha.CreateItem(c.Request().Context(), payload.item())
	return RestAbort(c, item, err)
}

func (gr *groupGacha) UpdateItem(c echo.Context) error {
	id, err := paramInt64(c, "id")
	if err != nil {
		return RestAbort(c, nil, err)
	}

	var payload gachaItemPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return RestAbort(c, nil, err)
	}

	serviceGacha, err := do.Invoke[*services.ServiceGachaMachine](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	item := payload.item()
	item.ID = id
	item, err = serviceGacha.UpdateItem(c.Request().Context(), item)
	return RestAbort(c, item, err)
}

func (gr *groupGacha) DeleteItem(c echo.Context) error {
	id, err := paramInt64(c, "id")
	if err != nil {
		return RestAbort(c, nil, err)
	}

	serviceGacha, err := do.Invoke[*services.ServiceGachaMachine](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	err = serviceGacha.DeleteItem(c.Request().Context(), id)
	return RestAbort(c, map[string]int64{"deleted": id}, err)
}
