package main

import (
	"context"
	"time"

	"hamsterhub/internal/services"

	"github.com/robfig/cron/v3"
	"github.com/samber/do"
	"go.uber.org/zap"
)

type VoiceSweepJob struct {
	serviceVoice  *services.ServiceVoice
	serviceConfig *services.ServiceConfig
}

func NewVoiceSweepJob(injector *do.Injector) (*VoiceSweepJob, error) {
	serviceVoice, err := do.Invoke[*services.ServiceVoice](injector)
	if err != nil {
		return nil, err
	}

	serviceConfig, err := do.Invoke[*services.ServiceConfig](injector)
	if err != nil {
		return nil, err
	}

	return &VoiceSweepJob{serviceVoice, serviceConfig}, nil
}

func (j *VoiceSweepJob) Start(ctx context.Context, cronRunner *cron.Cron) error {
	timeline, _ := j.serviceConfig.GetStringConfig(ctx, services.CONFIG_CRONJOB_TIME_VOICE_SWEEP, services.CRONJOB_DEFAULT_TIME_VOICE_SWEEP)

	_, err := cronRunner.AddFunc(timeline, j.runScheduledTask)
	if err != nil {
		return err
	}
	zap.S().Infow("voice sweep cronjob scheduled", "cron", timeline)
	return nil
}

func (j *VoiceSweepJob) runScheduledTask() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	swept, err := j.serviceVoice.SweepStale(ctx)
	if err != nil {
		zap.S().Errorw("sweep voice sessions", "err", err)
	}
	zap.S().Infow("voice sessions swept", "count", swept)
}
