package services

import (
	"context"
	"fmt"
	"testing"

	"hamsterhub/internal/datastore"
	"hamsterhub/internal/datastore/redis_store"
	"hamsterhub/internal/models"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCurrency(t *testing.T) (*ServiceCurrency, redis.UniversalClient) {
	t.Helper()
	leaderboard, rdb := newTestLeaderboard(t)

	injector := do.New()
	do.ProvideValue(injector, leaderboard)
	return &ServiceCurrency{container: injector}, rdb
}

func movement(userID string, currency models.Currency, amount, lifetimeEarned int64, action string) *Movement {
	return &Movement{
		Transaction: &models.CurrencyTransaction{UserID: userID, Currency: currency, Amount: amount, Action: action},
		Account:     &models.Account{UserID: userID, Currency: currency, LifetimeEarned: lifetimeEarned},
	}
}

func TestAfterCommitSkipsRefundsAndTransfers(t *testing.T) {
	ctx := context.Background()
	service, rdb := newTestCurrency(t)

	// create and cancel the same kind of task five times: escrow is a debit, the refund a credit
	for i := 0; i < 5; i++ {
		service.AfterCommit(ctx, movement("poster", models.CurrencyHamsterCoin, 500, 0, models.TaskRefundAction(fmt.Sprint(i))))
	}
	service.AfterCommit(ctx, movement("poster", models.CurrencyHamsterCoin, 300, 0, models.TransferInAction("tr")))

	_, err := redis_store.GetScore(ctx, rdb, LEADERBOARD_HAMSTERCOIN_WEEKLY, "poster")
	assert.ErrorIs(t, err, redis.Nil)
	_, err = redis_store.GetScore(ctx, rdb, LEADERBOARD_HAMSTERCOIN, "poster")
	assert.ErrorIs(t, err, redis.Nil)

	service.AfterCommit(ctx,
		movement("poster", models.CurrencyHamsterCoin, -500, 0, models.TaskEscrowAction("t")),
		movement("worker", models.CurrencyHamsterCoin, 500, 500, models.TaskRewardAction("t")),
	)
	assert.Equal(t, float64(500), score(t, rdb, LEADERBOARD_HAMSTERCOIN_WEEKLY, "worker"))
	assert.Equal(t, float64(500), score(t, rdb, LEADERBOARD_HAMSTERCOIN, "worker"))
	_, err = redis_store.GetScore(ctx, rdb, LEADERBOARD_HAMSTERCOIN_WEEKLY, "poster")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestWrapLedgerError(t *testing.T) {
	cases := []struct {
		err  error
		kind errorx.Kind
	}{
		{datastore.ErrInsufficientBalance, errorx.Invalid},
		{datastore.ErrDuplicateAction, errorx.Exist},
		{ErrInvalidAmount, errorx.Invalid},
		{ErrSelfTransfer, errorx.Invalid},
		{models.ErrUnknownCurrency, errorx.Invalid},
	}

	for _, c := range cases {
		err := wrapLedgerError(fmt.Errorf("apply: %w", c.err))

		var e *errorx.Error
		require.ErrorAs(t, err, &e, c.err.Error())
		assert.True(t, e.Of(c.kind), c.err.Error())
		assert.ErrorIs(t, err, c.err)
	}
}
