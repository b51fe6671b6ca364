package redis_store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"hamsterhub/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

func dbKeyLeaderboard(board string) string {
	return fmt.Sprintf("leaderboard:%s", strings.ToLower(board))
}

func dbKeyVoicePresence(userID string) string {
	return fmt.Sprintf("voice:presence:%s", userID)
}

func dbKeyVoicePresenceAll() string {
	return "voice:presence:*"
}

func SetLeaderboard(ctx context.Context, cmd redis.Cmdable, board string, v *models.LeaderboardItem) (*models.LeaderboardItem, error) {
	err := cmd.ZAdd(ctx, dbKeyLeaderboard(board), redis.Z{
		Score:  v.Score,
		Member: v.UserId,
	}).Err()

	if err != nil {
		return nil, err
	}

	return v, nil
}

func IncrLeaderboard(ctx context.Context, cmd redis.Cmdable, board string, userID string, delta float64) (float64, error) {
	return cmd.ZIncrBy(ctx, dbKeyLeaderboard(board), delta, userID).Result()
}

func ClearLeaderboard(ctx context.Context, cmd redis.Cmdable, board string) error {
	return cmd.Del(ctx, dbKeyLeaderboard(board)).Err()
}

func GetLeaderboard(ctx context.Context, cmd redis.Cmdable, board string, num int) ([]*models.LeaderboardItem, error) {
	if num <= 0 {
		return []*models.LeaderboardItem{}, nil
	}

	items, err := cmd.ZRevRangeWithScores(ctx, dbKeyLeaderboard(board), 0, int64(num-1)).Result()
	if err != nil {
		return nil, err
	}

	results := make([]*models.LeaderboardItem, 0, len(items))
	for i, item := range items {
		member, _ := item.Member.(string)
		results = append(results, &models.LeaderboardItem{
			UserId: member,
			Score:  item.Score,
			Rank:   i + 1,
		})
	}

	return results, nil
}

// GetRank returns a zero-based rank, redis.Nil when the user is not on the board.
func GetRank(ctx context.Context, cmd redis.Cmdable, board string, userID string) (int64, error) {
	rank, err := cmd.ZRevRank(ctx, dbKeyLeaderboard(board), userID).Result()
	if err != nil {
		return -1, err
	}

	return rank, nil
}

func GetScore(ctx context.Context, cmd redis.Cmdable, board string, userID string) (float64, error) {
	score, err := cmd.ZScore(ctx, dbKeyLeaderboard(board), userID).Result()
	if err != nil {
		return -1, err
	}

	return score, nil
}

func GetLeaderboardParticipantsCount(ctx context.Context, cmd redis.Cmdable, board string) (int64, error) {
	return cmd.ZCard(ctx, dbKeyLeaderboard(board)).Result()
}

func SetVoicePresence(ctx context.Context, cmd redis.Cmdable, v *models.VoiceSession, ttl time.Duration) error {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}

	return cmd.Set(ctx, dbKeyVoicePresence(v.UserID), b, ttl).Err()
}

func GetVoicePresence(ctx context.Context, cmd redis.Cmdable, userID string) (*models.VoiceSession, error) {
	var v *models.VoiceSession
	b, err := cmd.Get(ctx, dbKeyVoicePresence(userID)).Bytes()
	if err != nil {
		return nil, err
	}

	err = msgpack.Unmarshal(b, &v)
	return v, err
}

func DeleteVoicePresence(ctx context.Context, cmd redis.Cmdable, userID string) error {
	return cmd.Del(ctx, dbKeyVoicePresence(userID)).Err()
}

// ListVoicePresence collects every presence record, scanning each master when client is a cluster.
func ListVoicePresence(ctx context.Context, client redis.UniversalClient) ([]*models.VoiceSession, error) {
	clusterClient, ok := client.(*redis.ClusterClient)
	if !ok {
		return listVoicePresence(ctx, client)
	}

	var mu sync.Mutex
	var sessions []*models.VoiceSession
	err := clusterClient.ForEachMaster(ctx, func(ctx context.Context, c *redis.Client) error {
		found, err := listVoicePresence(ctx, c)
		if err != nil {
			return err
		}

		mu.Lock()
		defer mu.Unlock()
		sessions = append(sessions, found...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return sessions, nil
}

func listVoicePresence(ctx context.Context, cmd redis.Cmdable) ([]*models.VoiceSession, error) {
	var sessions []*models.VoiceSession

	iter := cmd.Scan(ctx, 0, dbKeyVoicePresenceAll(), 0).Iterator()
	for iter.Next(ctx) {
		b, err := cmd.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}

		var v *models.VoiceSession
		if err := msgpack.Unmarshal(b, &v); err != nil {
			return nil, err
		}
		sessions = append(sessions, v)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}
