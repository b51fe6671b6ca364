package handler

import (
	"hamsterhub/internal/models"
	"hamsterhub/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupShop struct {
	container *do.Injector
}

type shopItemPayload struct {
	Name        string          `json:"name" validate:"required,max=120"`
	Description string          `json:"description" validate:"max=2000"`
	Price       int64           `json:"price" validate:"gt=0"`
	Currency    models.Currency `json:"currency" validate:"required"`
	InStock     bool            `json:"in_stock"`
	FileURL     *string         `json:"file_url" validate:"omitempty,url"`
	ImageURL    *string         `json:"image_url" validate:"omitempty,url"`
}

func (p *shopItemPayload) item() *models.ShopItem {
	return &models.ShopItem{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Currency:    p.Currency,
		InStock:     p.InStock,
		FileURL:     p.FileURL,
		ImageURL:    p.ImageURL,
	}
}

type stockPayload struct {
	InStock bool `json:"in_stock"`
}

func (gr *groupShop) GetItems(c echo.Context) error {
	serviceShop, err := do.Invoke[*services.ServiceShop](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	items, err := serviceShop.GetItems(c.Request().Context())
	return RestAbort(c, items, err)
}

func (gr *groupShop) GetItem(c echo.Context) error {
	id, err := paramInt64(c, "id")
	if err != nil {
		return RestAbort(c, nil, err)
	}

	serviceShop, err := do.Invoke[*services.ServiceShop](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	item, err := serviceShop.GetItem(c.Request().Context(), id)
	return RestAbort(c, item, err)
}

func (gr *groupShop) Purchase(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	id, err := paramInt64(c, "id")
	if err != nil {
		return RestAbort(c, nil, err)
	}

	serviceShop, err := do.Invoke[*services.ServiceShop](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	purchase, err := serviceShop.Purchase(ctx, user, id)
	return RestAbort(c, purchase, err)
}

func (gr *groupShop) MyPurchases(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	serviceShop, err := do.Invoke[*services.ServiceShop](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	page, limit := paging(c)
	history, err := serviceShop.History(ctx, user.ID, page, limit)
	return RestAbort(c, history, err)
}

// admin

func (gr *groupShop) GetAllItems(c echo.Context) error {
	serviceShop, err := do.Invoke[*services.ServiceShop](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	items, err := serviceShop.GetAllItems(c.Request().Context())
	return RestAbort(c, items, err)
}

func (gr *groupShop) AllPurchases(c echo.Context) error {
	serviceShop, err := do.Invoke[*services.ServiceShop](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	page, limit := paging(c)
	history, err := serviceShop.History(c.Request().Context(), c.QueryParam("user_id"), page, limit)
	return RestAbort(c, history, err)
}

func (gr *groupShop) CreateItem(c echo.Context) error {
	var payload shopItemPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return RestAbort(c, nil, err)
	}

	serviceShop, err := do.Invoke[*services.ServiceShop](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	item, err := serviceShop.CreateItem(c.Request().Context(), payload.item())
	return RestAbort(c, item, err)
}

func (gr *groupShop) UpdateItem(c echo.Context) error {
	id, err := paramInt64(c, "id")
	if err != nil {
		return RestAbort(c, nil, err)
	}

	var payload shopItemPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return RestAbort(c, nil, err)
	}

	serviceShop, err := do.Invoke[*services.ServiceShop](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	item := payload.item()
	item.ID = id
	item, err = serviceShop.UpdateItem(c.Request().Context(), item)
	return RestAbort(c, item, err)
}

func (gr *groupShop) SetStock(c echo.Context) error {
	id, err := paramInt64(c, "id")
	if err != nil {
		return RestAbort(c, nil, err)
	}

	var payload stockPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return RestAbort(c, nil, err)
	}

	serviceShop, err := do.Invoke[*services.ServiceShop](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	item, err := serviceShop.SetStock(c.Request().Context(), id, payload.InStock)
	return RestAbort(c, item, err)
}

func (gr *groupShop) DeleteItem(c echo.Context) error {
	id, err := paramInt64(c, "id")
	if err != nil {
		return RestAbort(c, nil, err)
	}

	serviceShop, err := do.Invoke[*services.ServiceShop](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	err = serviceShop.DeleteItem(c.Request().Context(), id)
	return RestAbort(c, map[string]int64{"deleted": id}, err)
}
