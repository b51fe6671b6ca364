package main

import (
	"fmt"
	"log"
	"os"

	"hamsterhub/internal/container"
	"hamsterhub/internal/datastore/redis_store"
	"hamsterhub/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/urfave/cli/v2"
)

func init() {
	// for development
	//nolint:errcheck
	godotenv.Load("../../.env")

	// for production
	//nolint:errcheck
	godotenv.Load("./.env")
}

func main() {
	vs, err := env.EnvsRequired(
		"DB_DSN",
		"SESSION_SECRET",
	)
	if err != nil {
		log.Fatal(err)
	}

	injector := container.New(vs)

	app := &cli.App{
		Name: "leaderboard",
		Commands: []*cli.Command{
			commandRebuild(injector),
			commandRebuildWeekly(injector),
			commandResetWeekly(injector),
			commandTop(injector),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandRebuild(injector *do.Injector) *cli.Command {
	return &cli.Command{
		Name:        "rebuild",
		Description: "Recompute every leaderboard from Postgres",
		Action: func(c *cli.Context) error {
			serviceLeaderboard, err := do.Invoke[*services.ServiceLeaderboard](injector)
			if err != nil {
				return err
			}

			if err := serviceLeaderboard.Rebuild(c.Context); err != nil {
				return err
			}

			log.Println("Leaderboards rebuilt")
			return nil
		},
	}
}

func commandRebuildWeekly(injector *do.Injector) *cli.Command {
	return &cli.Command{
		Name:        "rebuild-weekly",
		Description: "Recompute the weekly boards from ledger rows since the last reset",
		Action: func(c *cli.Context) error {
			serviceLeaderboard, err := do.Invoke[*services.ServiceLeaderboard](injector)
			if err != nil {
				return err
			}

			if err := serviceLeaderboard.RebuildWeekly(c.Context); err != nil {
				return err
			}

			log.Println("Weekly leaderboards rebuilt")
			return nil
		},
	}
}

func commandResetWeekly(injector *do.Injector) *cli.Command {
	return &cli.Command{
		Name: "reset-weekly",
		Action: func(c *cli.Context) error {
			serviceLeaderboard, err := do.Invoke[*services.ServiceLeaderboard](injector)
			if err != nil {
				return err
			}

			if err := serviceLeaderboard.ResetWeekly(c.Context); err != nil {
				return err
			}

			log.Println("Weekly leaderboards cleared")
			return nil
		},
	}
}

func commandTop(injector *do.Injector) *cli.Command {
	return &cli.Command{
		Name: "top",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "board", Value: services.LEADERBOARD_HAMSTERCOIN},
			&cli.IntFlag{Name: "num", Value: 10},
		},
		Action: func(c *cli.Context) error {
			board := c.String("board")
			if !services.IsLeaderboard(board) {
				return fmt.Errorf("unknown board %q", board)
			}

			dbRedis, err := do.InvokeNamed[redis.UniversalClient](injector, "redis-db")
			if err != nil {
				return err
			}

			items, err := redis_store.GetLeaderboard(c.Context, dbRedis, board, c.Int("num"))
			if err != nil {
				return err
			}

			participants, err := redis_store.GetLeaderboardParticipantsCount(c.Context, dbRedis, board)
			if err != nil {
				return err
			}

			fmt.Printf("%s: %d participants\n", board, participants)
			for i, item := range items {
				fmt.Printf("%3d. %s %.0f\n", i+1, item.UserId, item.Score)
			}
			return nil
		},
	}
}
