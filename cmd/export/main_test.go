package main

import (
	"bytes"
	"testing"
	"time"

	"hamsterhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLeaderboard(t *testing.T) {
	var buf bytes.Buffer
	err := writeLeaderboard(&buf, []*models.LeaderboardItem{
		{UserId: "1", Username: "hammy", Score: 1500},
		{UserId: "2", Username: "seed, eater", Score: 12.5},
	})
	require.NoError(t, err)

	assert.Equal(t, "rank,user_id,username,score\n1,1,hammy,1500\n2,2,\"seed, eater\",12.5\n", buf.String())
}

func TestLedgerRecord(t *testing.T) {
	record := ledgerRecord(&models.CurrencyTransaction{
		ID:           7,
		UserID:       "42",
		Currency:     models.CurrencyStardust,
		Amount:       -30,
		Action:       "purchase:abc",
		BalanceAfter: 70,
		CreatedAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	})

	assert.Equal(t, []string{"7", "2024-03-01T12:00:00Z", "42", "stardust", "-30", "70", "purchase:abc"}, record)
}
