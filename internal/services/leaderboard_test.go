package services

import (
	"context"
	"testing"

	"hamsterhub/internal/datastore/redis_store"
	"hamsterhub/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLeaderboard(t *testing.T) (*ServiceLeaderboard, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return &ServiceLeaderboard{
		redisDB:      client,
		redisDBCache: client,
		rs:           redsync.New(goredis.NewPool(client)),
	}, client
}

func score(t *testing.T, rdb redis.UniversalClient, board string, userID string) float64 {
	t.Helper()
	s, err := redis_store.GetScore(context.Background(), rdb, board, userID)
	require.NoError(t, err)
	return s
}

func TestRecordEarning(t *testing.T) {
	ctx := context.Background()
	service, rdb := newTestLeaderboard(t)

	account := &models.Account{UserID: "1", Currency: models.CurrencyStardust, LifetimeEarned: 40}
	require.NoError(t, service.RecordEarning(ctx, account, 40))

	account.LifetimeEarned = 65
	require.NoError(t, service.RecordEarning(ctx, account, 25))

	// lifetime mirrors the account, weekly accumulates
	assert.Equal(t, float64(65), score(t, rdb, LEADERBOARD_STARDUST, "1"))
	assert.Equal(t, float64(65), score(t, rdb, LEADERBOARD_STARDUST_WEEKLY, "1"))

	_, err := redis_store.GetScore(ctx, rdb, LEADERBOARD_HAMSTERCOIN, "1")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestRecordVoiceMinutes(t *testing.T) {
	ctx := context.Background()
	service, rdb := newTestLeaderboard(t)

	require.NoError(t, service.RecordVoiceMinutes(ctx, &models.VoiceActivity{UserID: "1", TotalMinutes: 90}, 30))
	require.NoError(t, service.RecordVoiceMinutes(ctx, &models.VoiceActivity{UserID: "1", TotalMinutes: 90}, 0))

	assert.Equal(t, float64(90), score(t, rdb, LEADERBOARD_VOICE, "1"))
	assert.Equal(t, float64(30), score(t, rdb, LEADERBOARD_VOICE_WEEKLY, "1"))
}

func TestResetWeeklyKeepsLifetimeBoards(t *testing.T) {
	ctx := context.Background()
	service, rdb := newTestLeaderboard(t)

	require.NoError(t, service.RecordEarning(ctx, &models.Account{UserID: "1", Currency: models.CurrencyHamsterCoin, LifetimeEarned: 10}, 10))
	require.NoError(t, service.RecordVoiceMinutes(ctx, &models.VoiceActivity{UserID: "1", TotalMinutes: 5}, 5))
	require.NoError(t, service.ResetWeekly(ctx))

	for _, board := range []string{LEADERBOARD_HAMSTERCOIN_WEEKLY, LEADERBOARD_STARDUST_WEEKLY, LEADERBOARD_VOICE_WEEKLY} {
		count, err := redis_store.GetLeaderboardParticipantsCount(ctx, rdb, board)
		require.NoError(t, err)
		assert.Zero(t, count, board)
	}

	assert.Equal(t, float64(10), score(t, rdb, LEADERBOARD_HAMSTERCOIN, "1"))
	assert.Equal(t, float64(5), score(t, rdb, LEADERBOARD_VOICE, "1"))
}

func TestRebuildRejectsConcurrentRun(t *testing.T) {
	service, _ := newTestLeaderboard(t)

	held := service.rs.NewMutex(LockKeyLeaderboardRebuild())
	require.NoError(t, held.Lock())
	defer held.Unlock()

	err := service.Rebuild(context.Background())
	require.Error(t, err)

	var e *errorx.Error
	require.ErrorAs(t, err, &e)
	assert.True(t, e.Of(errorx.Invalid))
	assert.ErrorIs(t, err, ErrLeaderboardRebuildLock)
}

func TestIsLeaderboard(t *testing.T) {
	assert.True(t, IsLeaderboard(LEADERBOARD_VOICE_WEEKLY))
	assert.False(t, IsLeaderboard("coins"))
}
