package handler

import (
	"hamsterhub/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupLeaderboard struct {
	container *do.Injector
}

func (gr *groupLeaderboard) GetLeaderboard(c echo.Context) error {
	serviceLeaderboard, err := do.Invoke[*services.ServiceLeaderboard](gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return RestAbort(c, nil, err)
	}

	leaderboard, err := serviceLeaderboard.GetLeaderboard(ctx, c.Param("board"), user)
	return RestAbort(c, leaderboard, err)
}

func (gr *groupLeaderboard) Boards(c echo.Context) error {
	return RestAbort(c, services.LeaderboardNames, nil)
}
