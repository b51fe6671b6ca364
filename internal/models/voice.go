package models

import (
	"time"

	"github.com/uptrace/bun"
)

type VoiceActivity struct {
	bun.BaseModel `bun:"table:voice_activity"`
	UserID        string     `bun:"user_id,pk" json:"user_id"`
	JoinCount     int64      `bun:"join_count" json:"join_count"`
	TotalMinutes  int64      `bun:"total_minutes" json:"total_minutes"`
	LastJoinedAt  *time.Time `bun:"last_joined_at" json:"last_joined_at"`
	UpdatedAt     time.Time  `bun:"updated_at,default:current_timestamp" json:"updated_at"`

	Current *VoiceSession `bun:"-" json:"current"`
}

type VoiceSession struct {
	bun.BaseModel `bun:"table:voice_session"`
	ID            int64      `bun:"id,pk,autoincrement" json:"id" msgpack:"id"`
	UserID        string     `bun:"user_id" json:"user_id" msgpack:"user_id"`
	GuildID       string     `bun:"guild_id" json:"guild_id" msgpack:"guild_id"`
	ChannelID     string     `bun:"channel_id" json:"channel_id" msgpack:"channel_id"`
	JoinedAt      time.Time  `bun:"joined_at" json:"joined_at" msgpack:"joined_at"`
	LeftAt        *time.Time `bun:"left_at" json:"left_at" msgpack:"left_at"`
	Minutes       int64      `bun:"minutes" json:"minutes" msgpack:"minutes"`
}

// MinutesUntil returns whole minutes spent in the channel, capped at maxMinutes when positive.
func (s *VoiceSession) MinutesUntil(leftAt time.Time, maxMinutes int64) int64 {
	if leftAt.Before(s.JoinedAt) {
		return 0
	}
	minutes := int64(leftAt.Sub(s.JoinedAt) / time.Minute)
	if maxMinutes > 0 && minutes > maxMinutes {
		return maxMinutes
	}
	return minutes
}

func VoiceRewardAction(sessionID int64) string {
	return "voice:" + itoa(sessionID)
}
