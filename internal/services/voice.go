package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"hamsterhub/internal/datastore"
	"hamsterhub/internal/datastore/redis_store"
	"hamsterhub/internal/models"

	"github.com/go-redsync/redsync/v4"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

var ErrVoiceChannelRequired = errors.New("guild and channel are required")

const voiceSweepBatchSize = 100

type ServiceVoice struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	redisDB            redis.UniversalClient
	rs                 *redsync.Redsync

	serviceConfig      *ServiceConfig
	serviceCurrency    *ServiceCurrency
	serviceLeaderboard *ServiceLeaderboard
}

func NewServiceVoice(container *do.Injector) (*ServiceVoice, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	redisDB, err := do.InvokeNamed[redis.UniversalClient](container, "redis-db")
	if err != nil {
		return nil, err
	}

	rs, err := do.Invoke[*redsync.Redsync](container)
	if err != nil {
		return nil, err
	}

	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	serviceCurrency, err := do.Invoke[*ServiceCurrency](container)
	if err != nil {
		return nil, err
	}

	serviceLeaderboard, err := do.Invoke[*ServiceLeaderboard](container)
	if err != nil {
		return nil, err
	}

	return &ServiceVoice{container, postgresDB, readonlyPostgresDB, redisDB, rs, serviceConfig, serviceCurrency, serviceLeaderboard}, nil
}

type voiceSettings struct {
	maxMinutes     int64
	coinsPerMinute int64
}

func (service *ServiceVoice) settings(ctx context.Context) voiceSettings {
	maxMinutes, _ := service.serviceConfig.GetIntConfig(ctx, CONFIG_VOICE_SESSION_MAX_MINUTES, VOICE_DEFAULT_SESSION_MAX_MINUTES)
	coins, _ := service.serviceConfig.GetIntConfig(ctx, CONFIG_VOICE_COINS_PER_MINUTE, VOICE_DEFAULT_COINS_PER_MINUTE)
	if coins < 0 {
		coins = 0
	}
	return voiceSettings{int64(maxMinutes), int64(coins)}
}

func (s voiceSettings) presenceTTL() time.Duration {
	if s.maxMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.maxMinutes)*time.Minute + time.Hour
}

// closedSession is what a session close committed.
type closedSession struct {
	session  *models.VoiceSession
	activity *models.VoiceActivity
	movement *Movement
}

func closeVoiceSession(ctx context.Context, tx bun.IDB, session *models.VoiceSession, leftAt time.Time, settings voiceSettings) (*closedSession, error) {
	minutes := session.MinutesUntil(leftAt, settings.maxMinutes)
	session.LeftAt = &leftAt
	session.Minutes = minutes

	if err := datastore.CloseVoiceSession(ctx, tx, session); err != nil {
		return nil, err
	}

	activity, err := datastore.AddVoiceMinutes(ctx, tx, session.UserID, minutes)
	if err != nil {
		return nil, err
	}

	closed := &closedSession{session: session, activity: activity}
	if coins := minutes * settings.coinsPerMinute; coins > 0 {
		closed.movement, err = applyMovement(ctx, tx, session.UserID, models.CurrencyHamsterCoin, coins, models.VoiceRewardAction(session.ID))
		if err != nil {
			return nil, err
		}
	}

	return closed, nil
}

func (service *ServiceVoice) afterClose(ctx context.Context, closed *closedSession) {
	if closed == nil {
		return
	}

	service.serviceCurrency.AfterCommit(ctx, closed.movement)
	if err := service.serviceLeaderboard.RecordVoiceMinutes(ctx, closed.activity, closed.session.Minutes); err != nil {
		zap.S().Warnw("update voice leaderboard", "user", closed.session.UserID, "err", err)
	}
}

func (service *ServiceVoice) lock(ctx context.Context, userID string) (*redsync.Mutex, error) {
	mutex := service.rs.NewMutex(LockKeyUserVoice(userID), redsync.WithTries(8))
	if err := mutex.LockContext(ctx); err != nil {
		return nil, errorx.Wrap(ErrVoiceLock, errorx.Invalid)
	}
	return mutex, nil
}

// Join opens a session in channelID. Re-joining the current channel changes nothing;
// a session open elsewhere is settled first.
func (service *ServiceVoice) Join(ctx context.Context, userID string, guildID string, channelID string) (*models.VoiceSession, error) {
	if guildID == "" || channelID == "" {
		return nil, errorx.Wrap(ErrVoiceChannelRequired, errorx.Validation)
	}

	mutex, err := service.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	//nolint:errcheck
	defer mutex.Unlock()

	settings := service.settings(ctx)
	now := time.Now()

	var session *models.VoiceSession
	var closed *closedSession
	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		open, err := datastore.GetOpenVoiceSession(ctx, tx, userID)
		switch {
		case err == nil && open.ChannelID == channelID:
			session = open
			return nil
		case err == nil:
			closed, err = closeVoiceSession(ctx, tx, open, now, settings)
			if err != nil {
				return err
			}
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}

		session = &models.VoiceSession{
			UserID:    userID,
			GuildID:   guildID,
			ChannelID: channelID,
			JoinedAt:  now,
		}
		if err := datastore.InsertVoiceSession(ctx, tx, session); err != nil {
			return err
		}
		return datastore.RecordVoiceJoin(ctx, tx, userID, now)
	})
	if err != nil {
		return nil, wrapLedgerError(err)
	}

	service.afterClose(ctx, closed)
	if err := redis_store.SetVoicePresence(ctx, service.redisDB, session, settings.presenceTTL()); err != nil {
		zap.S().Warnw("set voice presence", "user", userID, "err", err)
	}

	return session, nil
}

// Leave settles the open session. It returns nil when the user was not in a channel.
func (service *ServiceVoice) Leave(ctx context.Context, userID string) (*models.VoiceSession, error) {
	mutex, err := service.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	//nolint:errcheck
	defer mutex.Unlock()

	closed, err := service.leave(ctx, userID, time.Now(), service.settings(ctx))
	if err != nil {
		return nil, err
	}

	if err := redis_store.DeleteVoicePresence(ctx, service.redisDB, userID); err != nil {
		zap.S().Warnw("delete voice presence", "user", userID, "err", err)
	}

	if closed == nil {
		return nil, nil
	}
	service.afterClose(ctx, closed)
	return closed.session, nil
}

func (service *ServiceVoice) leave(ctx context.Context, userID string, leftAt time.Time, settings voiceSettings) (*closedSession, error) {
	var closed *closedSession
	err := service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		open, err := datastore.GetOpenVoiceSession(ctx, tx, userID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		closed, err = closeVoiceSession(ctx, tx, open, leftAt, settings)
		return err
	})
	if err != nil {
		return nil, wrapLedgerError(err)
	}
	return closed, nil
}

func (service *ServiceVoice) Me(ctx context.Context, userID string) (*models.VoiceActivity, error) {
	activity, err := datastore.GetVoiceActivity(ctx, service.readonlyPostgresDB, userID)
	if errors.Is(err, sql.ErrNoRows) {
		activity = &models.VoiceActivity{UserID: userID}
	} else if err != nil {
		return nil, err
	}

	current, err := redis_store.GetVoicePresence(ctx, service.redisDB, userID)
	if err != nil && err != redis.Nil {
		return nil, err
	}
	activity.Current = current

	return activity, nil
}

func (service *ServiceVoice) Sessions(ctx context.Context, userID string, page, limit int) (*models.Page[*models.VoiceSession], error) {
	sessions, total, err := datastore.ListVoiceSessions(ctx, service.readonlyPostgresDB, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	return &models.Page[*models.VoiceSession]{Items: sessions, Page: page, Limit: limit, Total: total}, nil
}

// Online lists the members currently in a voice channel.
func (service *ServiceVoice) Online(ctx context.Context) ([]*models.VoiceSession, error) {
	return redis_store.ListVoicePresence(ctx, service.redisDB)
}

// SweepStale closes sessions open longer than the configured cap, e.g. after a missed leave event.
func (service *ServiceVoice) SweepStale(ctx context.Context) (int, error) {
	settings := service.settings(ctx)
	if settings.maxMinutes <= 0 {
		return 0, nil
	}

	cutoff := time.Now().Add(-time.Duration(settings.maxMinutes) * time.Minute)
	swept := 0
	for {
		sessions, err := datastore.GetStaleVoiceSessions(ctx, service.readonlyPostgresDB, cutoff, voiceSweepBatchSize)
		if err != nil {
			return swept, err
		}
		if len(sessions) == 0 {
			return swept, nil
		}

		progressed := false
		for _, session := range sessions {
			mutex := service.rs.NewMutex(LockKeyUserVoice(session.UserID))
			if err := mutex.TryLock(); err != nil {
				continue
			}

			closed, err := service.leave(ctx, session.UserID, time.Now(), settings)
			//nolint:errcheck
			mutex.Unlock()
			if err != nil {
				zap.S().Errorw("sweep voice session", "session", session.ID, "user", session.UserID, "err", err)
				continue
			}

			//nolint:errcheck
			redis_store.DeleteVoicePresence(ctx, service.redisDB, session.UserID)
			if closed != nil {
				service.afterClose(ctx, closed)
				swept++
				progressed = true
			}
		}

		if !progressed {
			return swept, nil
		}
	}
}
