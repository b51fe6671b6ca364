package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"hamsterhub/internal/container"
	"hamsterhub/internal/pkg/logging"
	"hamsterhub/internal/services"

	"github.com/caarlos0/env/v11"
	toolkitenv "github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	"github.com/samber/do"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func init() {
	// for development
	//nolint:errcheck
	godotenv.Load("../../.env")

	// for production
	//nolint:errcheck
	godotenv.Load("./.env")
}

type botConfig struct {
	Token             string   `env:"DISCORD_BOT_TOKEN,required"`
	Mode              string   `env:"API_MODE" envDefault:"production"`
	GuildIDs          []string `env:"DISCORD_GUILD_ID" envSeparator:","`
	IgnoredChannelIDs []string `env:"VOICE_IGNORED_CHANNEL_IDS" envSeparator:","`
	CountDeafened     bool     `env:"VOICE_COUNT_DEAFENED" envDefault:"false"`
}

func main() {
	vs, err := toolkitenv.EnvsRequired(
		"DB_DSN",
	)
	if err != nil {
		log.Fatal(err)
	}

	injector := container.New(vs)

	app := &cli.App{
		Name: "bot",
		Commands: []*cli.Command{
			commandListen(injector),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandListen(injector *do.Injector) *cli.Command {
	return &cli.Command{
		Name:  "listen",
		Usage: "track voice activity from the Discord gateway",
		Action: func(c *cli.Context) error {
			var cfg botConfig
			if err := env.Parse(&cfg); err != nil {
				return err
			}

			sync, err := logging.Init(cfg.Mode)
			if err != nil {
				return err
			}
			defer sync()

			bot, err := do.Invoke[*services.Bot](injector)
			if err != nil {
				return err
			}
			if !bot.Enabled() {
				return errors.New("discord bot token missing")
			}

			serviceVoice, err := do.Invoke[*services.ServiceVoice](injector)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			listener := newVoiceListener(serviceVoice, newVoiceFilter(cfg))
			session := bot.Session()
			session.AddHandler(listener.onVoiceStateUpdate)
			session.AddHandler(listener.onGuildCreate)

			errWg, errCtx := errgroup.WithContext(ctx)

			errWg.Go(func() error {
				if err := session.Open(); err != nil {
					return err
				}
				zap.S().Infow("gateway connected", "guilds", cfg.GuildIDs)
				return nil
			})

			errWg.Go(func() error {
				<-errCtx.Done()
				listener.wait()
				return session.Close()
			})

			return errWg.Wait()
		},
	}
}
