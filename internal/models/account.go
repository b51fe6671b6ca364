package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type Currency string

const (
	CurrencyHamsterCoin Currency = "hamstercoin"
	CurrencyStardust    Currency = "stardust"
)

var Currencies = []Currency{CurrencyHamsterCoin, CurrencyStardust}

var ErrUnknownCurrency = errors.New("unknown currency")

func (c Currency) String() string {
	return string(c)
}

func (c Currency) Valid() bool {
	switch c {
	case CurrencyHamsterCoin, CurrencyStardust:
		return true
	}
	return false
}

func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCurrency, s)
	}
	return c, nil
}

type Account struct {
	bun.BaseModel  `bun:"table:account"`
	ID             int64     `bun:"id,pk,autoincrement" json:"-"`
	UserID         string    `bun:"user_id" json:"user_id"`
	Currency       Currency  `bun:"currency" json:"currency"`
	Balance        int64     `bun:"balance" json:"balance"`
	LifetimeEarned int64     `bun:"lifetime_earned" json:"lifetime_earned"`
	LifetimeSpent  int64     `bun:"lifetime_spent" json:"lifetime_spent"`
	CreatedAt      time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt      time.Time `bun:"updated_at,default:current_timestamp" json:"updated_at"`
}

type CurrencyTransaction struct {
	bun.BaseModel `bun:"table:currency_transaction"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID        string    `bun:"user_id" json:"user_id"`
	Currency      Currency  `bun:"currency" json:"currency"`
	Amount        int64     `bun:"amount" json:"amount"`
	Action        string    `bun:"action" json:"action"`
	BalanceAfter  int64     `bun:"balance_after" json:"balance_after"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
}

type TotalEarned struct {
	UserID string `bun:"user_id" json:"user_id"`
	Total  int64  `bun:"total" json:"total"`
}

type Balances struct {
	HamsterCoin *Account `json:"hamstercoin"`
	Stardust    *Account `json:"stardust"`
}

type TransferResult struct {
	From *Account `json:"from"`
	To   *Account `json:"to"`
}

const (
	actionPrefixTransferOut = "transfer:out:"
	actionPrefixTransferIn  = "transfer:in:"
	actionPrefixTaskRefund  = "task:refund:"
)

// ActionKind decides which lifetime counters a ledger row moves.
type ActionKind int

const (
	// ActionFlow is money entering or leaving circulation: credits count as earned, debits as spent.
	ActionFlow ActionKind = iota
	// ActionRefund returns escrowed money and undoes the matching spend.
	ActionRefund
	// ActionTransfer moves money between members and only changes balances.
	ActionTransfer
)

func KindOfAction(action string) ActionKind {
	switch {
	case strings.HasPrefix(action, actionPrefixTaskRefund):
		return ActionRefund
	case strings.HasPrefix(action, actionPrefixTransferIn), strings.HasPrefix(action, actionPrefixTransferOut):
		return ActionTransfer
	}
	return ActionFlow
}

// CountsAsEarning reports whether a credit under action feeds lifetime_earned and the leaderboards.
func CountsAsEarning(action string) bool {
	return KindOfAction(action) == ActionFlow
}

// NonEarningActionPatterns are LIKE patterns for credits excluded from earning totals.
var NonEarningActionPatterns = []string{actionPrefixTaskRefund + "%", actionPrefixTransferIn + "%"}

func TransferOutAction(transferID string) string {
	return actionPrefixTransferOut + transferID
}

func TransferInAction(transferID string) string {
	return actionPrefixTransferIn + transferID
}

func AdminAction(id string) string {
	return "admin:" + id
}
