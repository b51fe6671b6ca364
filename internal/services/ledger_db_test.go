package services

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"testing"
	"time"

	"hamsterhub/internal/datastore"
	"hamsterhub/internal/datastore/redis_store"
	"hamsterhub/internal/models"

	"github.com/google/uuid"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// newTestPostgres connects to DB_DSN_TEST and creates the user, ledger and task tables.
func newTestPostgres(t *testing.T) *bun.DB {
	t.Helper()
	dsn := os.Getenv("DB_DSN_TEST")
	if dsn == "" {
		t.Skip("DB_DSN_TEST is not set")
	}

	db := bun.NewDB(sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn))), pgdialect.New())
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, datastore.CreateTableUser(ctx, db))
	require.NoError(t, datastore.CreateTableAccount(ctx, db))
	require.NoError(t, datastore.CreateTableCurrencyTransaction(ctx, db))
	require.NoError(t, datastore.CreateTableTask(ctx, db))
	require.NoError(t, datastore.CreateTableTaskSubmission(ctx, db))
	return db
}

type nopNotifier struct{}

func (nopNotifier) SendDirectMessage(context.Context, string, string) error { return nil }

func newTestTaskService(t *testing.T, db *bun.DB) (*ServiceTask, redis.UniversalClient) {
	t.Helper()
	leaderboard, rdb := newTestLeaderboard(t)

	injector := do.New()
	do.ProvideValue(injector, leaderboard)
	currency := &ServiceCurrency{container: injector, postgresDB: db, readonlyPostgresDB: db, rs: leaderboard.rs}

	return &ServiceTask{
		container:          injector,
		postgresDB:         db,
		readonlyPostgresDB: db,
		rs:                 leaderboard.rs,
		serviceCurrency:    currency,
		notifier:           nopNotifier{},
	}, rdb
}

func move(ctx context.Context, db *bun.DB, userID string, amount int64, action string) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := applyMovement(ctx, tx, userID, models.CurrencyHamsterCoin, amount, action)
		return err
	})
}

func walletOf(t *testing.T, db *bun.DB, userID string) *models.Account {
	t.Helper()
	a, err := datastore.GetAccount(context.Background(), db, userID, models.CurrencyHamsterCoin)
	require.NoError(t, err)
	return a
}

func TestLedgerRejectsOverdraft(t *testing.T) {
	ctx := context.Background()
	db := newTestPostgres(t)
	userID := uuid.NewString()

	require.NoError(t, move(ctx, db, userID, 100, models.AdminAction(uuid.NewString())))

	err := move(ctx, db, userID, -150, models.AdminAction(uuid.NewString()))
	require.ErrorIs(t, err, datastore.ErrInsufficientBalance)

	var e *errorx.Error
	require.ErrorAs(t, wrapLedgerError(err), &e)
	assert.Equal(t, http.StatusBadRequest, e.Status())

	a := walletOf(t, db, userID)
	assert.Equal(t, int64(100), a.Balance)
	assert.Zero(t, a.LifetimeSpent)

	// the check constraint backs the conditional update
	_, err = db.NewUpdate().Model((*models.Account)(nil)).
		Set("balance = -1").
		Where("user_id = ? AND currency = ?", userID, models.CurrencyHamsterCoin).
		Exec(ctx)
	assert.Error(t, err)
}

func TestLedgerRejectsReplayedAction(t *testing.T) {
	ctx := context.Background()
	db := newTestPostgres(t)
	userID := uuid.NewString()
	action := models.AdminAction(uuid.NewString())

	require.NoError(t, move(ctx, db, userID, 50, action))

	err := move(ctx, db, userID, 50, action)
	require.ErrorIs(t, err, datastore.ErrDuplicateAction)

	var e *errorx.Error
	require.ErrorAs(t, wrapLedgerError(err), &e)
	assert.Equal(t, http.StatusConflict, e.Status())

	a := walletOf(t, db, userID)
	assert.Equal(t, int64(50), a.Balance)
	assert.Equal(t, int64(50), a.LifetimeEarned)

	transactions, total, err := datastore.ListTransactions(ctx, db, userID, nil, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, transactions, 1)
}

func TestLedgerTransferIsNotEarning(t *testing.T) {
	ctx := context.Background()
	db := newTestPostgres(t)
	from, to := uuid.NewString(), uuid.NewString()
	transferID := uuid.NewString()

	require.NoError(t, move(ctx, db, from, 80, models.AdminAction(uuid.NewString())))
	require.NoError(t, db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := applyMovement(ctx, tx, from, models.CurrencyHamsterCoin, -30, models.TransferOutAction(transferID)); err != nil {
			return err
		}
		_, err := applyMovement(ctx, tx, to, models.CurrencyHamsterCoin, 30, models.TransferInAction(transferID))
		return err
	}))

	sender, receiver := walletOf(t, db, from), walletOf(t, db, to)
	assert.Equal(t, int64(50), sender.Balance)
	assert.Zero(t, sender.LifetimeSpent)
	assert.Equal(t, int64(30), receiver.Balance)
	assert.Zero(t, receiver.LifetimeEarned)
}

func TestTaskCancelRefundsOnce(t *testing.T) {
	ctx := context.Background()
	db := newTestPostgres(t)
	service, rdb := newTestTaskService(t, db)
	started := time.Now().Add(-time.Minute)

	poster := &models.User{ID: uuid.NewString(), Username: "poster"}
	require.NoError(t, move(ctx, db, poster.ID, 1000, models.AdminAction(uuid.NewString())))

	task, err := service.Create(ctx, poster, &CreateTaskInput{Title: "draw a hamster", Reward: 400, Currency: models.CurrencyHamsterCoin})
	require.NoError(t, err)

	a := walletOf(t, db, poster.ID)
	assert.Equal(t, int64(600), a.Balance)
	assert.Equal(t, int64(400), a.LifetimeSpent)

	_, err = service.Cancel(ctx, task.ID, poster, false)
	require.NoError(t, err)

	a = walletOf(t, db, poster.ID)
	assert.Equal(t, int64(1000), a.Balance)
	assert.Equal(t, int64(1000), a.LifetimeEarned)
	assert.Zero(t, a.LifetimeSpent)

	_, err = redis_store.GetScore(ctx, rdb, LEADERBOARD_HAMSTERCOIN_WEEKLY, poster.ID)
	assert.ErrorIs(t, err, redis.Nil)

	// the task is gone and its refund key is spent
	_, err = service.Cancel(ctx, task.ID, poster, false)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	err = move(ctx, db, poster.ID, task.Reward, models.TaskRefundAction(task.ID))
	assert.ErrorIs(t, err, datastore.ErrDuplicateAction)
	assert.Equal(t, int64(1000), walletOf(t, db, poster.ID).Balance)

	totals, err := datastore.GetEarnedListFromTime(ctx, db, models.CurrencyHamsterCoin, started, 10000, 0)
	require.NoError(t, err)
	for _, total := range totals {
		if total.UserID == poster.ID {
			assert.Equal(t, int64(1000), total.Total)
		}
	}
}

func TestGrantCurrencyChecksUserAndActionKey(t *testing.T) {
	ctx := context.Background()
	db := newTestPostgres(t)
	tasks, _ := newTestTaskService(t, db)
	users, _ := newTestUserService(t, db)
	do.ProvideValue(tasks.container, users)
	do.ProvideValue(tasks.container, tasks.serviceCurrency)
	service := &ServiceAdmin{container: tasks.container}
	admin := &models.User{ID: "admin", IsAdmin: true}

	input := &AdjustBalanceInput{UserID: uuid.NewString(), Currency: models.CurrencyStardust, Amount: 25, ActionKey: "airdrop:test:" + uuid.NewString()}
	_, err := service.GrantCurrency(ctx, admin, input)
	var e *errorx.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, http.StatusNotFound, e.Status())

	accounts, err := datastore.GetAccounts(ctx, db, input.UserID)
	require.NoError(t, err)
	assert.Empty(t, accounts)

	member, err := users.FindOrCreateUser(ctx, &models.SessionUser{ID: input.UserID, Username: "hammy"})
	require.NoError(t, err)
	require.True(t, member.IsNewUser)

	a, err := service.GrantCurrency(ctx, admin, input)
	require.NoError(t, err)
	assert.Equal(t, int64(25), a.Balance)

	_, err = service.GrantCurrency(ctx, admin, input)
	require.ErrorAs(t, err, &e)
	assert.Equal(t, http.StatusConflict, e.Status())

	a, err = datastore.GetAccount(ctx, db, input.UserID, models.CurrencyStardust)
	require.NoError(t, err)
	assert.Equal(t, int64(25), a.Balance)
}
