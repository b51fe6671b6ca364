package redis_store

import (
	"context"
	"testing"
	"time"

	"hamsterhub/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) redis.UniversalClient {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestLeaderboardOrdering(t *testing.T) {
	ctx := context.Background()
	rdb := newTestRedis(t)

	for id, score := range map[string]float64{"111": 50, "222": 300, "333": 120} {
		_, err := SetLeaderboard(ctx, rdb, "hamstercoin", &models.LeaderboardItem{UserId: id, Score: score})
		require.NoError(t, err)
	}

	items, err := GetLeaderboard(ctx, rdb, "hamstercoin", 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "222", items[0].UserId)
	assert.Equal(t, 1, items[0].Rank)
	assert.Equal(t, "333", items[1].UserId)
	assert.Equal(t, 2, items[1].Rank)

	rank, err := GetRank(ctx, rdb, "hamstercoin", "111")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rank)

	score, err := GetScore(ctx, rdb, "hamstercoin", "111")
	require.NoError(t, err)
	assert.Equal(t, float64(50), score)

	_, err = GetRank(ctx, rdb, "hamstercoin", "999")
	assert.ErrorIs(t, err, redis.Nil)

	count, err := GetLeaderboardParticipantsCount(ctx, rdb, "hamstercoin")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestIncrAndClearLeaderboard(t *testing.T) {
	ctx := context.Background()
	rdb := newTestRedis(t)

	_, err := IncrLeaderboard(ctx, rdb, "stardust_weekly", "111", 10)
	require.NoError(t, err)
	score, err := IncrLeaderboard(ctx, rdb, "stardust_weekly", "111", 15)
	require.NoError(t, err)
	assert.Equal(t, float64(25), score)

	require.NoError(t, ClearLeaderboard(ctx, rdb, "stardust_weekly"))

	items, err := GetLeaderboard(ctx, rdb, "stardust_weekly", 10)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = GetScore(ctx, rdb, "stardust_weekly", "111")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestGetLeaderboardZeroLimit(t *testing.T) {
	items, err := GetLeaderboard(context.Background(), newTestRedis(t), "voice", 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestVoicePresence(t *testing.T) {
	ctx := context.Background()
	rdb := newTestRedis(t)

	joined := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	session := &models.VoiceSession{ID: 7, UserID: "111", GuildID: "g", ChannelID: "c", JoinedAt: joined}
	require.NoError(t, SetVoicePresence(ctx, rdb, session, time.Hour))

	got, err := GetVoicePresence(ctx, rdb, "111")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, "c", got.ChannelID)
	assert.True(t, joined.Equal(got.JoinedAt))

	all, err := ListVoicePresence(ctx, rdb)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, DeleteVoicePresence(ctx, rdb, "111"))
	_, err = GetVoicePresence(ctx, rdb, "111")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestListVoicePresenceOnCluster(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClusterClient(&redis.ClusterOptions{Addrs: []string{mr.Addr()}})
	t.Cleanup(func() { rdb.Close() })

	joined := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	for _, id := range []string{"111", "222", "333"} {
		require.NoError(t, SetVoicePresence(ctx, rdb, &models.VoiceSession{UserID: id, ChannelID: "c", JoinedAt: joined}, time.Hour))
	}
	require.NoError(t, rdb.Set(ctx, "leaderboard:voice", "x", 0).Err())

	all, err := ListVoicePresence(ctx, rdb)
	require.NoError(t, err)

	ids := make([]string, 0, len(all))
	for _, s := range all {
		ids = append(ids, s.UserID)
	}
	assert.ElementsMatch(t, []string{"111", "222", "333"}, ids)
}
