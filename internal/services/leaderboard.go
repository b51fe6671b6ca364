package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"hamsterhub/internal/datastore"
	"hamsterhub/internal/datastore/redis_store"
	"hamsterhub/internal/models"
	"hamsterhub/internal/pkg"
	"hamsterhub/internal/pkg/caching"

	"github.com/go-redsync/redsync/v4"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

var ErrUnknownLeaderboard = errors.New("unknown leaderboard")
var ErrLeaderboardRebuildLock = errors.New("leaderboard rebuild in progress")

const leaderboardRebuildPageSize = 500

type ServiceLeaderboard struct {
	container          *do.Injector
	redisDB            redis.UniversalClient
	redisDBCache       redis.UniversalClient
	rs                 *redsync.Redsync
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache

	serviceUser   *ServiceUser
	serviceConfig *ServiceConfig
}

func NewServiceLeaderboard(container *do.Injector) (*ServiceLeaderboard, error) {
	db, err := do.InvokeNamed[redis.UniversalClient](container, "redis-db")
	if err != nil {
		return nil, err
	}

	dbRedisCache, err := do.InvokeNamed[redis.UniversalClient](container, "redis-cache")
	if err != nil {
		return nil, err
	}

	rs, err := do.Invoke[*redsync.Redsync](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	readonlyCache, err := do.Invoke[caching.ReadOnlyCache](container)
	if err != nil {
		return nil, err
	}

	serviceUser, err := do.Invoke[*ServiceUser](container)
	if err != nil {
		return nil, err
	}

	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	return &ServiceLeaderboard{container, db, dbRedisCache, rs, readonlyPostgresDB, cache, readonlyCache, serviceUser, serviceConfig}, nil
}

func currencyBoards(currency models.Currency) (string, string) {
	if currency == models.CurrencyStardust {
		return LEADERBOARD_STARDUST, LEADERBOARD_STARDUST_WEEKLY
	}
	return LEADERBOARD_HAMSTERCOIN, LEADERBOARD_HAMSTERCOIN_WEEKLY
}

func IsLeaderboard(name string) bool {
	return slices.Contains(LeaderboardNames, name)
}

func (service *ServiceLeaderboard) ClearLeaderboardCache(ctx context.Context, leaderboardName string) error {
	return caching.DeleteKeys(ctx, service.redisDBCache, fmt.Sprintf("leaderboard_by_user:%s:*", leaderboardName))
}

// RecordEarning sets the lifetime score from the account and adds amount to the weekly board.
func (service *ServiceLeaderboard) RecordEarning(ctx context.Context, account *models.Account, amount int64) error {
	lifetime, weekly := currencyBoards(account.Currency)

	_, err := redis_store.SetLeaderboard(ctx, service.redisDB, lifetime, &models.LeaderboardItem{
		UserId: account.UserID,
		Score:  float64(account.LifetimeEarned),
	})
	if err != nil {
		return err
	}

	_, err = redis_store.IncrLeaderboard(ctx, service.redisDB, weekly, account.UserID, float64(amount))
	if err != nil {
		return err
	}

	//nolint:errcheck
	service.ClearLeaderboardCache(ctx, lifetime)
	//nolint:errcheck
	service.ClearLeaderboardCache(ctx, weekly)
	return nil
}

func (service *ServiceLeaderboard) RecordVoiceMinutes(ctx context.Context, activity *models.VoiceActivity, minutes int64) error {
	_, err := redis_store.SetLeaderboard(ctx, service.redisDB, LEADERBOARD_VOICE, &models.LeaderboardItem{
		UserId: activity.UserID,
		Score:  float64(activity.TotalMinutes),
	})
	if err != nil {
		return err
	}

	if minutes > 0 {
		_, err = redis_store.IncrLeaderboard(ctx, service.redisDB, LEADERBOARD_VOICE_WEEKLY, activity.UserID, float64(minutes))
		if err != nil {
			return err
		}
	}

	//nolint:errcheck
	service.ClearLeaderboardCache(ctx, LEADERBOARD_VOICE)
	//nolint:errcheck
	service.ClearLeaderboardCache(ctx, LEADERBOARD_VOICE_WEEKLY)
	return nil
}

func (service *ServiceLeaderboard) GetLeaderboard(ctx context.Context, leaderboardName string, user *models.User) (*models.LeaderboardResponse, error) {
	if !IsLeaderboard(leaderboardName) {
		return nil, errorx.Wrap(ErrUnknownLeaderboard, errorx.NotExist)
	}

	limit, _ := service.serviceConfig.GetIntConfig(ctx, CONFIG_LEADERBOARD_LIMIT, LEADERBOARD_DEFAULT_LIMIT)
	return service.getLeaderboard(ctx, user, leaderboardName, limit)
}

func (service *ServiceLeaderboard) getLeaderboard(ctx context.Context, user *models.User, leaderboardName string, limit int) (*models.LeaderboardResponse, error) {
	callback := func() (*models.LeaderboardResponse, error) {
		leaderboard, err := redis_store.GetLeaderboard(ctx, service.redisDB, leaderboardName, limit)
		if err != nil {
			return nil, err
		}

		ids := make([]string, 0, len(leaderboard))
		for _, item := range leaderboard {
			ids = append(ids, item.UserId)
		}

		users, err := service.serviceUser.FindUsersByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}

		for _, item := range leaderboard {
			if u, ok := users[item.UserId]; ok {
				item.Username = u.DisplayName()
				item.Avatar = u.Avatar
			}
		}

		response := &models.LeaderboardResponse{
			Board:       leaderboardName,
			Leaderboard: leaderboard,
			Me: &models.LeaderboardItem{
				Username: user.DisplayName(),
				UserId:   user.ID,
				Avatar:   user.Avatar,
			},
		}

		rank, err := redis_store.GetRank(ctx, service.redisDB, leaderboardName, user.ID)
		if err == redis.Nil {
			return response, nil
		}
		if err != nil {
			return nil, err
		}

		score, err := redis_store.GetScore(ctx, service.redisDB, leaderboardName, user.ID)
		if err != nil && err != redis.Nil {
			return nil, err
		}

		response.Me.Rank = int(rank + 1)
		response.Me.Score = score
		return response, nil
	}

	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyLeaderboardByUser(leaderboardName, user.ID, limit), CACHE_TTL_1_MIN, callback)
}

// ResetWeekly empties every weekly board.
func (service *ServiceLeaderboard) ResetWeekly(ctx context.Context) error {
	for _, board := range []string{LEADERBOARD_HAMSTERCOIN_WEEKLY, LEADERBOARD_STARDUST_WEEKLY, LEADERBOARD_VOICE_WEEKLY} {
		if err := redis_store.ClearLeaderboard(ctx, service.redisDB, board); err != nil {
			return err
		}
		//nolint:errcheck
		service.ClearLeaderboardCache(ctx, board)
	}
	return nil
}

// Rebuild recomputes every board from Postgres.
func (service *ServiceLeaderboard) Rebuild(ctx context.Context) error {
	mutex := service.rs.NewMutex(LockKeyLeaderboardRebuild(), redsync.WithExpiry(5*time.Minute))
	if err := mutex.TryLock(); err != nil {
		return errorx.Wrap(ErrLeaderboardRebuildLock, errorx.Invalid)
	}
	//nolint:errcheck
	defer mutex.Unlock()

	for _, currency := range models.Currencies {
		if err := service.rebuildLifetime(ctx, currency); err != nil {
			return err
		}
	}

	if err := service.rebuildVoice(ctx); err != nil {
		return err
	}

	return service.RebuildWeekly(ctx)
}

func (service *ServiceLeaderboard) rebuildLifetime(ctx context.Context, currency models.Currency) error {
	lifetime, _ := currencyBoards(currency)
	if err := redis_store.ClearLeaderboard(ctx, service.redisDB, lifetime); err != nil {
		return err
	}

	for offset := 0; ; offset += leaderboardRebuildPageSize {
		accounts, err := datastore.GetLifetimeEarnedList(ctx, service.readonlyPostgresDB, currency, leaderboardRebuildPageSize, offset)
		if err != nil {
			return err
		}
		if len(accounts) == 0 {
			break
		}

		for _, account := range accounts {
			_, err := redis_store.SetLeaderboard(ctx, service.redisDB, lifetime, &models.LeaderboardItem{
				UserId: account.UserID,
				Score:  float64(account.LifetimeEarned),
			})
			if err != nil {
				return err
			}
		}
	}

	zap.S().Infow("leaderboard rebuilt", "board", lifetime)
	return service.ClearLeaderboardCache(ctx, lifetime)
}

func (service *ServiceLeaderboard) rebuildVoice(ctx context.Context) error {
	if err := redis_store.ClearLeaderboard(ctx, service.redisDB, LEADERBOARD_VOICE); err != nil {
		return err
	}

	for offset := 0; ; offset += leaderboardRebuildPageSize {
		activities, err := datastore.GetVoiceActivities(ctx, service.readonlyPostgresDB, leaderboardRebuildPageSize, offset)
		if err != nil {
			return err
		}
		if len(activities) == 0 {
			break
		}

		for _, activity := range activities {
			_, err := redis_store.SetLeaderboard(ctx, service.redisDB, LEADERBOARD_VOICE, &models.LeaderboardItem{
				UserId: activity.UserID,
				Score:  float64(activity.TotalMinutes),
			})
			if err != nil {
				return err
			}
		}
	}

	zap.S().Infow("leaderboard rebuilt", "board", LEADERBOARD_VOICE)
	return service.ClearLeaderboardCache(ctx, LEADERBOARD_VOICE)
}

// RebuildWeekly reloads the weekly boards from ledger rows since Monday 00:00 UTC.
func (service *ServiceLeaderboard) RebuildWeekly(ctx context.Context) error {
	from := pkg.GetFirstTimeOfCurrentWeek()
	zap.S().Infow("loading weekly leaderboards", "from", from)

	if err := service.ResetWeekly(ctx); err != nil {
		return err
	}

	for _, currency := range models.Currencies {
		_, weekly := currencyBoards(currency)
		for offset := 0; ; offset += leaderboardRebuildPageSize {
			totals, err := datastore.GetEarnedListFromTime(ctx, service.readonlyPostgresDB, currency, from, leaderboardRebuildPageSize, offset)
			if err != nil {
				return err
			}
			if len(totals) == 0 {
				break
			}

			for _, total := range totals {
				_, err := redis_store.SetLeaderboard(ctx, service.redisDB, weekly, &models.LeaderboardItem{
					UserId: total.UserID,
					Score:  float64(total.Total),
				})
				if err != nil {
					return err
				}
			}
		}
	}

	for offset := 0; ; offset += leaderboardRebuildPageSize {
		totals, err := datastore.GetVoiceMinutesFromTime(ctx, service.readonlyPostgresDB, from, leaderboardRebuildPageSize, offset)
		if err != nil {
			return err
		}
		if len(totals) == 0 {
			break
		}

		for _, total := range totals {
			_, err := redis_store.SetLeaderboard(ctx, service.redisDB, LEADERBOARD_VOICE_WEEKLY, &models.LeaderboardItem{
				UserId: total.UserID,
				Score:  float64(total.Minutes),
			})
			if err != nil {
				return err
			}
		}
	}

	return nil
}
