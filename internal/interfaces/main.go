package interfaces

import (
	"context"

	"github.com/go-redis/redis_rate/v10"
)

type Limiter interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) error
}

// Notifier delivers direct messages to a Discord user.
type Notifier interface {
	SendDirectMessage(ctx context.Context, userID string, content string) error
}

// RoleResolver looks up the guild role ids of a member.
type RoleResolver interface {
	MemberRoles(ctx context.Context, guildID string, userID string) ([]string, error)
}
