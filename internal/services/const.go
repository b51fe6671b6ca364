package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrUserLock = errors.New("user locked")
var ErrTaskLock = errors.New("task locked")
var ErrVoiceLock = errors.New("voice session locked")

const (
	CONFIG_SERVER_MODE                 = "SERVER_MODE"
	CONFIG_ADMIN_IDS                   = "ADMIN_IDS"
	CONFIG_LEADERBOARD_LIMIT           = "LEADERBOARD_LIMIT"
	CONFIG_GACHA_PULL_COST             = "GACHA_PULL_COST"
	CONFIG_GACHA_PULL_CURRENCY         = "GACHA_PULL_CURRENCY"
	CONFIG_GACHA_RARITY_WEIGHTS        = "GACHA_RARITY_WEIGHTS"
	CONFIG_GACHA_RATE_LIMIT_PER_MINUTE = "GACHA_RATE_LIMIT_PER_MINUTE"
	CONFIG_VOICE_SESSION_MAX_MINUTES   = "VOICE_SESSION_MAX_MINUTES"
	CONFIG_VOICE_COINS_PER_MINUTE      = "VOICE_COINS_PER_MINUTE"
	CONFIG_CRONJOB_TIME_WEEKLY_RESET   = "CRONJOB_TIME_WEEKLY_RESET"
	CONFIG_CRONJOB_TIME_VOICE_SWEEP    = "CRONJOB_TIME_VOICE_SWEEP"

	SERVER_MODE_DEVELOPMENT = "development"
	SERVER_MODE_STAGING     = "staging"
	SERVER_MODE_PRODUCTION  = "production"

	LEADERBOARD_HAMSTERCOIN        = "hamstercoin"
	LEADERBOARD_HAMSTERCOIN_WEEKLY = "hamstercoin_weekly"
	LEADERBOARD_STARDUST           = "stardust"
	LEADERBOARD_STARDUST_WEEKLY    = "stardust_weekly"
	LEADERBOARD_VOICE              = "voice"
	LEADERBOARD_VOICE_WEEKLY       = "voice_weekly"

	LEADERBOARD_DEFAULT_LIMIT           = 20
	GACHA_DEFAULT_PULL_COST             = 100
	GACHA_DEFAULT_PULL_CURRENCY         = "stardust"
	GACHA_DEFAULT_RARITY_WEIGHTS        = "common:700,rare:250,epic:45,legendary:5"
	GACHA_DEFAULT_RATE_LIMIT_PER_MINUTE = 30
	VOICE_DEFAULT_SESSION_MAX_MINUTES   = 720
	VOICE_DEFAULT_COINS_PER_MINUTE      = 1
	CRONJOB_DEFAULT_TIME_WEEKLY_RESET   = "0 0 * * 1"
	CRONJOB_DEFAULT_TIME_VOICE_SWEEP    = "*/15 * * * *"

	TRANSFER_RATE_LIMIT_PER_MINUTE = 10
	BOT_RATE_LIMIT_PER_MINUTE      = 6000

	HISTORY_MAX_LIMIT = 100

	CACHE_TTL_5_SECONDS  = 5 * time.Second
	CACHE_TTL_15_SECONDS = 15 * time.Second
	CACHE_TTL_1_MIN      = 1 * time.Minute
	CACHE_TTL_5_MINS     = 5 * time.Minute
	CACHE_TTL_15_MINS    = 15 * time.Minute
	CACHE_TTL_1_HOUR     = 1 * time.Hour
	CACHE_TTL_1_DAY      = 24 * time.Hour

	SESSION_TOKEN_TTL = 7 * 24 * time.Hour
)

// LeaderboardNames lists every board served by the API.
var LeaderboardNames = []string{
	LEADERBOARD_HAMSTERCOIN,
	LEADERBOARD_HAMSTERCOIN_WEEKLY,
	LEADERBOARD_STARDUST,
	LEADERBOARD_STARDUST_WEEKLY,
	LEADERBOARD_VOICE,
	LEADERBOARD_VOICE_WEEKLY,
}

func LockKeyUserWallet(userID string) string {
	return fmt.Sprintf("lock:user-wallet:%s", userID)
}

func LockKeyTask(taskID string) string {
	return fmt.Sprintf("lock:task:%s", taskID)
}

func LockKeyUserVoice(userID string) string {
	return fmt.Sprintf("lock:user-voice:%s", userID)
}

func LockKeyLeaderboardRebuild() string {
	return "lock:leaderboard-rebuild"
}

// db
func DBKeyUser(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}

func DBKeyConfig(key string) string {
	return fmt.Sprintf("config:%s", strings.ToLower(key))
}

func DBKeyLeaderboardByUser(name string, userID string, limit int) string {
	return fmt.Sprintf("leaderboard_by_user:%s:%s:%d", strings.ToLower(name), userID, limit)
}

func DBKeyMemberRoles(guildID string, userID string) string {
	return fmt.Sprintf("discord:member_roles:%s:%s", guildID, userID)
}

func DBKeyShopItems() string {
	return "shop:items"
}

func DBKeyGachaPool() string {
	return "gacha:pool"
}

func LimitKeyUserGacha(userID string) string {
	return fmt.Sprintf("limit:gacha:%s", userID)
}

func LimitKeyUserTransfer(userID string) string {
	return fmt.Sprintf("limit:transfer:%s", userID)
}

func LimitKeyBot() string {
	return "limit:bot"
}
