package handler

import (
	"errors"

	"hamsterhub/internal/datastore"
	"hamsterhub/internal/models"
	"hamsterhub/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupTask struct {
	container *do.Injector
}

type submitPayload struct {
	Evidence string `json:"evidence" validate:"required,max=4000"`
}

type winnerPayload struct {
	WinnerID string `json:"winner_id" validate:"required"`
}

func (gr *groupTask) List(c echo.Context) error {
	filter := datastore.TaskFilter{
		PosterID:   c.QueryParam("poster"),
		AcceptorID: c.QueryParam("acceptor"),
	}
	if v := c.QueryParam("status"); v != "" {
		status := models.TaskStatus(v)
		if !status.Valid() {
			return RestAbort(c, nil, errorx.Wrap(errors.New("unknown status"), errorx.Invalid))
		}
		filter.Status = &status
	}

	serviceTask, err := do.Invoke[*services.ServiceTask](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	page, limit := paging(c)
	tasks, err := serviceTask.List(c.Request().Context(), filter, page, limit)
	return RestAbort(c, tasks, err)
}

func (gr *groupTask) Get(c echo.Context) error {
	serviceTask, err := do.Invoke[*services.ServiceTask](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	task, err := serviceTask.Get(c.Request().Context(), c.Param("id"))
	return RestAbort(c, task, err)
}

func (gr *groupTask) Create(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	var payload services.CreateTaskInput
	if err := bindAndValidate(c, &payload); err != nil {
		return RestAbort(c, nil, err)
	}

	serviceTask, err := do.Invoke[*services.ServiceTask](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	task, err := serviceTask.Create(ctx, user, &payload)
	return RestAbort(c, task, err)
}

func (gr *groupTask) Accept(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	serviceTask, err := do.Invoke[*services.ServiceTask](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	task, err := serviceTask.Accept(ctx, c.Param("id"), user)
	return RestAbort(c, task, err)
}

func (gr *groupTask) Complete(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	serviceTask, err := do.Invoke[*services.ServiceTask](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	task, err := serviceTask.Complete(ctx, c.Param("id"), user)
	return RestAbort(c, task, err)
}

func (gr *groupTask) Cancel(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	serviceTask, err := do.Invoke[*services.ServiceTask](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	task, err := serviceTask.Cancel(ctx, c.Param("id"), user, false)
	return RestAbort(c, task, err)
}

func (gr *groupTask) Submit(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	var payload submitPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return RestAbort(c, nil, err)
	}

	serviceTask, err := do.Invoke[*services.ServiceTask](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	submission, err := serviceTask.Submit(ctx, c.Param("id"), user, payload.Evidence)
	return RestAbort(c, submission, err)
}

func (gr *groupTask) SelectWinner(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	var payload winnerPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return RestAbort(c, nil, err)
	}

	serviceTask, err := do.Invoke[*services.ServiceTask](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	task, err := serviceTask.SelectWinner(ctx, c.Param("id"), user, payload.WinnerID)
	return RestAbort(c, task, err)
}
