package models

import "strconv"

type LeaderboardItem struct {
	Username string  `json:"username"`
	UserId   string  `json:"user_id"`
	Score    float64 `json:"score"`
	Rank     int     `json:"rank,omitempty"`
	Avatar   *string `json:"avatar"`
}

type LeaderboardResponse struct {
	Board       string             `json:"board"`
	Leaderboard []*LeaderboardItem `json:"leaderboard"`
	Me          *LeaderboardItem   `json:"me"`
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
