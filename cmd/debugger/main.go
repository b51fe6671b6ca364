package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"hamsterhub/internal/container"
	"hamsterhub/internal/models"
	"hamsterhub/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
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
		Name: "debugger",
		Commands: []*cli.Command{
			commandSessionToken(injector),
			commandClearUserCache(injector),
			commandCloseVoice(injector),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// commandSessionToken mints a session for local testing without going through Discord login.
func commandSessionToken(injector *do.Injector) *cli.Command {
	return &cli.Command{
		Name: "session-token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Required: true},
			&cli.StringFlag{Name: "username", Required: true},
			&cli.StringFlag{Name: "global-name"},
		},
		Action: func(c *cli.Context) error {
			authentication, err := do.Invoke[*services.Authentication](injector)
			if err != nil {
				return err
			}

			token, err := authentication.CreateToken(&models.SessionUser{
				ID:         c.String("id"),
				Username:   c.String("username"),
				GlobalName: c.String("global-name"),
			})
			if err != nil {
				return err
			}

			fmt.Println(token)
			return nil
		},
	}
}

func commandClearUserCache(injector *do.Injector) *cli.Command {
	return &cli.Command{
		Name: "clear-user-cache",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "userid", Required: true},
		},
		Action: func(c *cli.Context) error {
			serviceUser, err := do.Invoke[*services.ServiceUser](injector)
			if err != nil {
				return err
			}

			if err := serviceUser.ClearUserCache(context.Background(), c.String("userid")); err != nil {
				return err
			}

			fmt.Println("Cleared cache of", c.String("userid"))
			return nil
		},
	}
}

func commandCloseVoice(injector *do.Injector) *cli.Command {
	return &cli.Command{
		Name:        "close-voice",
		Description: "Settle the open voice session of a user, e.g. after the bot missed a leave event",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "userid", Required: true},
		},
		Action: func(c *cli.Context) error {
			serviceVoice, err := do.Invoke[*services.ServiceVoice](injector)
			if err != nil {
				return err
			}

			session, err := serviceVoice.Leave(context.Background(), c.String("userid"))
			if err != nil {
				return err
			}
			if session == nil {
				fmt.Println("No open session")
				return nil
			}

			fmt.Printf("Closed session %d: %d minutes\n", session.ID, session.Minutes)
			return nil
		},
	}
}
