package main

import (
	"errors"
	"strings"
	"testing"

	"hamsterhub/internal/models"
	"hamsterhub/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShopRecord(t *testing.T) {
	item, err := parseShopRecord([]string{"Role color", "Pick a color", "500", "HamsterCoin", "", "https://cdn/x.png"})
	require.NoError(t, err)
	assert.Equal(t, "Role color", item.Name)
	assert.Equal(t, int64(500), item.Price)
	assert.Equal(t, models.CurrencyHamsterCoin, item.Currency)
	assert.True(t, item.InStock)
	require.NotNil(t, item.ImageURL)
	assert.Equal(t, "https://cdn/x.png", *item.ImageURL)
	assert.Nil(t, item.FileURL)

	item, err = parseShopRecord([]string{"Wallpaper", "", "40", "stardust", "false"})
	require.NoError(t, err)
	assert.False(t, item.InStock)

	_, err = parseShopRecord([]string{"Broken", "", "abc", "stardust"})
	assert.Error(t, err)

	_, err = parseShopRecord([]string{"Broken", "", "10", "gold"})
	assert.ErrorIs(t, err, models.ErrUnknownCurrency)

	_, err = parseShopRecord([]string{"Short"})
	assert.ErrorIs(t, err, errRecordLength)
}

func TestParseGachaRecord(t *testing.T) {
	item, err := parseGachaRecord([]string{"Golden hamster", "", "Legendary", "100", "stardust", "500"})
	require.NoError(t, err)
	assert.Equal(t, models.RarityLegendary, item.Rarity)
	assert.Equal(t, 100, item.DropRate)
	require.NotNil(t, item.RewardCurrency)
	assert.Equal(t, models.CurrencyStardust, *item.RewardCurrency)
	assert.Equal(t, int64(500), item.RewardAmount)
	assert.True(t, item.Enabled)

	item, err = parseGachaRecord([]string{"Hay bale", "", "common", "40"})
	require.NoError(t, err)
	assert.Nil(t, item.RewardCurrency)

	_, err = parseGachaRecord([]string{"Odd", "", "mythic", "1"})
	assert.Error(t, err)
}

func TestParseAirdropRecord(t *testing.T) {
	input, err := parseAirdropRecord([]string{"42", "hamstercoin", "250", "event winner"})
	require.NoError(t, err)
	assert.Equal(t, "42", input.UserID)
	assert.Equal(t, int64(250), input.Amount)
	assert.Equal(t, "event winner", input.Reason)

	_, err = parseAirdropRecord([]string{"42", "hamstercoin", "-5"})
	assert.Error(t, err)

	_, err = parseAirdropRecord([]string{"", "hamstercoin", "5"})
	assert.Error(t, err)
}

func TestReadRecordsSkipsBadRows(t *testing.T) {
	input := "name,price\nok,1\nbad,x\nok2,2\n"

	var names []string
	imported, err := readRecords(strings.NewReader(input), func(line int, record []string) error {
		if record[1] == "x" {
			return errors.New("bad price")
		}
		names = append(names, record[0])
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, imported)
	assert.Equal(t, []string{"ok", "ok2"}, names)
}

func TestAirdropRerunKeepsActionKeys(t *testing.T) {
	const sheet = "user_id,currency,amount,reason\n42,hamstercoin,250,winner\n43,stardust,10,\n44,gold,5,\n"

	applied := map[string]int64{}
	grant := func(input *services.AdjustBalanceInput) error {
		if _, ok := applied[input.ActionKey]; ok {
			return errors.New("action already applied")
		}
		applied[input.ActionKey] = input.Amount
		return nil
	}

	imported, err := airdrop(strings.NewReader(sheet), "may-event.csv", grant)
	require.NoError(t, err)
	assert.Equal(t, 2, imported)

	imported, err = airdrop(strings.NewReader(sheet), "may-event.csv", grant)
	require.NoError(t, err)
	assert.Zero(t, imported)

	assert.Equal(t, map[string]int64{
		"airdrop:may-event.csv:2": 250,
		"airdrop:may-event.csv:3": 10,
	}, applied)

	imported, err = airdrop(strings.NewReader(sheet), "june-event.csv", grant)
	require.NoError(t, err)
	assert.Equal(t, 2, imported)
}
