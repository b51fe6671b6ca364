package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hamsterhub/internal/container"
	"hamsterhub/internal/pkg/logging"

	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/samber/do"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func init() {
	// for development
	//nolint:errcheck
	godotenv.Load("../../.env")

	// for production
	//nolint:errcheck
	godotenv.Load("./.env")
}

type CronJob interface {
	Start(ctx context.Context, cronRunner *cron.Cron) error
}

// newCronRunner schedules in UTC, the zone pkg.GetFirstTimeOfWeek uses for the weekly boards.
func newCronRunner() *cron.Cron {
	return cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.Recover(cron.DefaultLogger)))
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
		Name: "cronjob",
		Commands: []*cli.Command{
			commandCronjob(injector),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandCronjob(injector *do.Injector) *cli.Command {
	return &cli.Command{
		Name:  "cron",
		Usage: "run the scheduled jobs",
		Action: func(c *cli.Context) error {
			vs := do.MustInvokeNamed[map[string]string](injector, "envs")
			sync, err := logging.Init(vs["API_MODE"])
			if err != nil {
				return err
			}
			defer sync()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			leaderboardJob, err := NewLeaderboardJob(injector)
			if err != nil {
				return err
			}

			voiceSweepJob, err := NewVoiceSweepJob(injector)
			if err != nil {
				return err
			}

			cronRunner := newCronRunner()
			for _, job := range []CronJob{leaderboardJob, voiceSweepJob} {
				if err := job.Start(ctx, cronRunner); err != nil {
					return err
				}
			}

			zap.S().Info("start cronjob")
			cronRunner.Start()
			<-ctx.Done()

			zap.S().Info("stopping cronjob")
			<-cronRunner.Stop().Done()
			return nil
		},
	}
}
