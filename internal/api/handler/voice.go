package handler

import (
	"hamsterhub/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupVoice struct {
	container *do.Injector
}

type voiceJoinPayload struct {
	UserID    string `json:"user_id" validate:"required"`
	GuildID   string `json:"guild_id" validate:"required"`
	ChannelID string `json:"channel_id" validate:"required"`
}

type voiceLeavePayload struct {
	UserID string `json:"user_id" validate:"required"`
}

func (gr *groupVoice) Me(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	serviceVoice, err := do.Invoke[*services.ServiceVoice](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	activity, err := serviceVoice.Me(ctx, user.ID)
	return RestAbort(c, activity, err)
}

func (gr *groupVoice) Sessions(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	serviceVoice, err := do.Invoke[*services.ServiceVoice](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	page, limit := paging(c)
	sessions, err := serviceVoice.Sessions(ctx, user.ID, page, limit)
	return RestAbort(c, sessions, err)
}

func (gr *groupVoice) Online(c echo.Context) error {
	serviceVoice, err := do.Invoke[*services.ServiceVoice](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	sessions, err := serviceVoice.Online(c.Request().Context())
	return RestAbort(c, sessions, err)
}

// bot

func (gr *groupVoice) Join(c echo.Context) error {
	var payload voiceJoinPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return RestAbort(c, nil, err)
	}

	serviceVoice, err := do.Invoke[*services.ServiceVoice](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	session, err := serviceVoice.Join(c.Request().Context(), payload.UserID, payload.GuildID, payload.ChannelID)
	return RestAbort(c, session, err)
}

func (gr *groupVoice) Leave(c echo.Context) error {
	var payload voiceLeavePayload
	if err := bindAndValidate(c, &payload); err != nil {
		return RestAbort(c, nil, err)
	}

	serviceVoice, err := do.Invoke[*services.ServiceVoice](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	session, err := serviceVoice.Leave(c.Request().Context(), payload.UserID)
	return RestAbort(c, session, err)
}
