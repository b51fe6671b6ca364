package main

import (
	"context"

	"hamsterhub/internal/services"

	"github.com/robfig/cron/v3"
	"github.com/samber/do"
	"go.uber.org/zap"
)

type LeaderboardJob struct {
	serviceLeaderboard *services.ServiceLeaderboard
	serviceConfig      *services.ServiceConfig
}

func NewLeaderboardJob(injector *do.Injector) (*LeaderboardJob, error) {
	serviceLeaderboard, err := do.Invoke[*services.ServiceLeaderboard](injector)
	if err != nil {
		return nil, err
	}

	serviceConfig, err := do.Invoke[*services.ServiceConfig](injector)
	if err != nil {
		return nil, err
	}

	return &LeaderboardJob{serviceLeaderboard, serviceConfig}, nil
}

// Start schedules the weekly reset and reloads this week's boards from the ledger.
func (j *LeaderboardJob) Start(ctx context.Context, cronRunner *cron.Cron) error {
	timeline, _ := j.serviceConfig.GetStringConfig(ctx, services.CONFIG_CRONJOB_TIME_WEEKLY_RESET, services.CRONJOB_DEFAULT_TIME_WEEKLY_RESET)

	_, err := cronRunner.AddFunc(timeline, j.runScheduledTask)
	if err != nil {
		return err
	}
	zap.S().Infow("leaderboard cronjob scheduled", "cron", timeline)

	if err := j.serviceLeaderboard.RebuildWeekly(ctx); err != nil {
		zap.S().Errorw("load weekly leaderboards", "err", err)
	}
	return nil
}

func (j *LeaderboardJob) runScheduledTask() {
	zap.S().Info("start cleaning weekly leaderboards")
	if err := j.serviceLeaderboard.ResetWeekly(context.Background()); err != nil {
		zap.S().Errorw("clean weekly leaderboards", "err", err)
		return
	}
	zap.S().Info("weekly leaderboards cleaned")
}
