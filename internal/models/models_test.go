package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	c, err := ParseCurrency(" HamsterCoin ")
	require.NoError(t, err)
	assert.Equal(t, CurrencyHamsterCoin, c)

	c, err = ParseCurrency("stardust")
	require.NoError(t, err)
	assert.Equal(t, CurrencyStardust, c)

	_, err = ParseCurrency("gold")
	assert.ErrorIs(t, err, ErrUnknownCurrency)
}

func TestKindOfAction(t *testing.T) {
	assert.Equal(t, ActionRefund, KindOfAction(TaskRefundAction("t1")))
	assert.Equal(t, ActionTransfer, KindOfAction(TransferInAction("x")))
	assert.Equal(t, ActionTransfer, KindOfAction(TransferOutAction("x")))
	assert.Equal(t, ActionFlow, KindOfAction(TaskEscrowAction("t1")))
	assert.Equal(t, ActionFlow, KindOfAction(TaskRewardAction("t1")))
	assert.Equal(t, ActionFlow, KindOfAction(AdminAction("a")))

	assert.False(t, CountsAsEarning(TaskRefundAction("t1")))
	assert.False(t, CountsAsEarning(TransferInAction("x")))
	assert.True(t, CountsAsEarning(TaskRewardAction("t1")))
}

func TestParseRarityWeights(t *testing.T) {
	w, err := ParseRarityWeights("common:700, rare:250,epic:45,LEGENDARY:5")
	require.NoError(t, err)
	assert.Equal(t, map[Rarity]int{
		RarityCommon:    700,
		RarityRare:      250,
		RarityEpic:      45,
		RarityLegendary: 5,
	}, w)

	_, err = ParseRarityWeights("mythic:1")
	assert.Error(t, err)

	_, err = ParseRarityWeights("common")
	assert.Error(t, err)

	_, err = ParseRarityWeights("common:-1")
	assert.Error(t, err)

	w, err = ParseRarityWeights("")
	require.NoError(t, err)
	assert.Empty(t, w)
}

func TestVoiceSessionMinutes(t *testing.T) {
	joined := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s := &VoiceSession{JoinedAt: joined}

	assert.Equal(t, int64(0), s.MinutesUntil(joined.Add(59*time.Second), 0))
	assert.Equal(t, int64(90), s.MinutesUntil(joined.Add(90*time.Minute+30*time.Second), 0))
	assert.Equal(t, int64(60), s.MinutesUntil(joined.Add(5*time.Hour), 60))
	assert.Equal(t, int64(0), s.MinutesUntil(joined.Add(-time.Minute), 60))
	assert.Equal(t, "voice:42", VoiceRewardAction(42))
}

func TestUserDisplayName(t *testing.T) {
	assert.Equal(t, "Hammy", (&User{Username: "hammy_01", GlobalName: "Hammy"}).DisplayName())
	assert.Equal(t, "hammy_01", (&User{Username: "hammy_01"}).DisplayName())
}
