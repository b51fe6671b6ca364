package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

var Rarities = []Rarity{RarityCommon, RarityRare, RarityEpic, RarityLegendary}

func (r Rarity) String() string {
	return string(r)
}

func (r Rarity) Valid() bool {
	switch r {
	case RarityCommon, RarityRare, RarityEpic, RarityLegendary:
		return true
	}
	return false
}

type GachaItem struct {
	bun.BaseModel  `bun:"table:gacha_item"`
	ID             int64     `bun:"id,pk,autoincrement" json:"id"`
	Name           string    `bun:"name" json:"name"`
	Description    string    `bun:"description" json:"description"`
	ImageURL       *string   `bun:"image_url" json:"image_url"`
	Rarity         Rarity    `bun:"rarity" json:"rarity"`
	DropRate       int       `bun:"drop_rate" json:"drop_rate"`
	RewardCurrency *Currency `bun:"reward_currency" json:"reward_currency"`
	RewardAmount   int64     `bun:"reward_amount" json:"reward_amount"`
	Enabled        bool      `bun:"enabled" json:"enabled"`
	CreatedAt      time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt      time.Time `bun:"updated_at,default:current_timestamp" json:"updated_at"`

	Probability float64 `bun:"-" json:"probability,omitempty"`
}

type GachaPull struct {
	bun.BaseModel `bun:"table:gacha_pull"`
	ID            string    `bun:"id,pk" json:"id"`
	UserID        string    `bun:"user_id" json:"user_id"`
	ItemID        int64     `bun:"item_id" json:"item_id"`
	ItemName      string    `bun:"item_name" json:"item_name"`
	Rarity        Rarity    `bun:"rarity" json:"rarity"`
	Cost          int64     `bun:"cost" json:"cost"`
	Currency      Currency  `bun:"currency" json:"currency"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
}

type UserItem struct {
	bun.BaseModel `bun:"table:user_item"`
	ID            int64     `bun:"id,pk,autoincrement" json:"-"`
	UserID        string    `bun:"user_id" json:"user_id"`
	ItemID        int64     `bun:"item_id" json:"item_id"`
	ItemName      string    `bun:"item_name" json:"item_name"`
	Rarity        Rarity    `bun:"rarity" json:"rarity"`
	Quantity      int       `bun:"quantity" json:"quantity"`
	UpdatedAt     time.Time `bun:"updated_at,default:current_timestamp" json:"updated_at"`
}

type GachaResult struct {
	Pulls   []*GachaPull `json:"pulls"`
	Cost    int64        `json:"cost"`
	Balance *Account     `json:"balance"`
}

type GachaTierReport struct {
	Rarity      Rarity  `json:"rarity"`
	TierWeight  int     `json:"tier_weight"`
	Probability float64 `json:"probability"`
	ItemCount   int     `json:"item_count"`
	ItemWeights int     `json:"item_weights"`
	Drawable    bool    `json:"drawable"`
}

type GachaRatesReport struct {
	Tiers []*GachaTierReport `json:"tiers"`
	Items []*GachaItem       `json:"items"`
}

// ParseRarityWeights reads "common:700,rare:250" into a weight table.
func ParseRarityWeights(s string) (map[Rarity]int, error) {
	out := map[Rarity]int{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid rarity weight %q", part)
		}
		r := Rarity(strings.ToLower(strings.TrimSpace(kv[0])))
		if !r.Valid() {
			return nil, fmt.Errorf("unknown rarity %q", kv[0])
		}
		w, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil || w < 0 {
			return nil, fmt.Errorf("invalid weight for %s", r)
		}
		out[r] = w
	}
	return out, nil
}

func GachaCostAction(batchID string) string {
	return "gacha:" + batchID
}

func GachaRewardAction(pullID string) string {
	return "gacha:reward:" + pullID
}
