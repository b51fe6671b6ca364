package services

import (
	"context"
	"errors"
	"time"

	"hamsterhub/internal/datastore"
	"hamsterhub/internal/interfaces"
	"hamsterhub/internal/models"

	"github.com/go-redis/redis_rate/v10"
	"github.com/go-redsync/redsync/v4"
	"github.com/google/uuid"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

var (
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrSelfTransfer  = errors.New("cannot transfer to yourself")
	ErrEmptyAction   = errors.New("action is required")
)

// Movement is one committed ledger row together with the account state it produced.
type Movement struct {
	Transaction *models.CurrencyTransaction
	Account     *models.Account
}

// applyMovement changes the balance by a signed amount and records the ledger row.
// db must be a transaction: a duplicate action or a failed debit leaves the balance update to be rolled back.
func applyMovement(ctx context.Context, db bun.IDB, userID string, currency models.Currency, amount int64, action string) (*Movement, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	if action == "" {
		return nil, ErrEmptyAction
	}

	err := datastore.EnsureAccounts(ctx, db, userID)
	if err != nil {
		return nil, err
	}

	kind := models.KindOfAction(action)
	var account *models.Account
	if amount > 0 {
		account, err = datastore.CreditAccount(ctx, db, userID, currency, amount, kind)
	} else {
		account, err = datastore.DebitAccount(ctx, db, userID, currency, -amount, kind)
	}
	if err != nil {
		return nil, err
	}

	transaction := &models.CurrencyTransaction{
		UserID:       userID,
		Currency:     currency,
		Amount:       amount,
		Action:       action,
		BalanceAfter: account.Balance,
		CreatedAt:    time.Now(),
	}
	if err := datastore.InsertTransaction(ctx, db, transaction); err != nil {
		return nil, err
	}

	return &Movement{transaction, account}, nil
}

func wrapLedgerError(err error) error {
	switch {
	case errors.Is(err, datastore.ErrInsufficientBalance):
		return errorx.Wrap(err, errorx.Invalid)
	case errors.Is(err, datastore.ErrDuplicateAction):
		return errorx.Wrap(err, errorx.Exist)
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrSelfTransfer), errors.Is(err, models.ErrUnknownCurrency):
		return errorx.Wrap(err, errorx.Invalid)
	}
	return err
}

type ServiceCurrency struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	rs                 *redsync.Redsync
	limiter            interfaces.Limiter
}

func NewServiceCurrency(container *do.Injector) (*ServiceCurrency, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	rs, err := do.Invoke[*redsync.Redsync](container)
	if err != nil {
		return nil, err
	}

	limiter, err := do.Invoke[interfaces.Limiter](container)
	if err != nil {
		return nil, err
	}

	return &ServiceCurrency{container, postgresDB, readonlyPostgresDB, rs, limiter}, nil
}

// GetAccounts returns both currency accounts, creating them on first access.
func (service *ServiceCurrency) GetAccounts(ctx context.Context, userID string) ([]*models.Account, error) {
	accounts, err := datastore.GetAccounts(ctx, service.postgresDB, userID)
	if err != nil {
		return nil, err
	}

	if len(accounts) < len(models.Currencies) {
		if err := datastore.EnsureAccounts(ctx, service.postgresDB, userID); err != nil {
			return nil, err
		}
		return datastore.GetAccounts(ctx, service.postgresDB, userID)
	}

	return accounts, nil
}

func (service *ServiceCurrency) GetBalances(ctx context.Context, userID string) (*models.Balances, error) {
	accounts, err := service.GetAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}

	balances := &models.Balances{}
	for _, account := range accounts {
		switch account.Currency {
		case models.CurrencyHamsterCoin:
			balances.HamsterCoin = account
		case models.CurrencyStardust:
			balances.Stardust = account
		}
	}
	return balances, nil
}

func (service *ServiceCurrency) Credit(ctx context.Context, userID string, currency models.Currency, amount int64, action string) (*models.Account, error) {
	if amount <= 0 {
		return nil, errorx.Wrap(ErrInvalidAmount, errorx.Invalid)
	}
	return service.apply(ctx, userID, currency, amount, action)
}

func (service *ServiceCurrency) Debit(ctx context.Context, userID string, currency models.Currency, amount int64, action string) (*models.Account, error) {
	if amount <= 0 {
		return nil, errorx.Wrap(ErrInvalidAmount, errorx.Invalid)
	}
	return service.apply(ctx, userID, currency, -amount, action)
}

func (service *ServiceCurrency) apply(ctx context.Context, userID string, currency models.Currency, amount int64, action string) (*models.Account, error) {
	if !currency.Valid() {
		return nil, errorx.Wrap(models.ErrUnknownCurrency, errorx.Invalid)
	}

	var movement *Movement
	err := service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		movement, err = applyMovement(ctx, tx, userID, currency, amount, action)
		return err
	})
	if err != nil {
		return nil, wrapLedgerError(err)
	}

	service.AfterCommit(ctx, movement)
	return movement.Account, nil
}

func (service *ServiceCurrency) Transfer(ctx context.Context, fromID string, toID string, currency models.Currency, amount int64) (*models.TransferResult, error) {
	if fromID == toID {
		return nil, errorx.Wrap(ErrSelfTransfer, errorx.Invalid)
	}
	if amount <= 0 {
		return nil, errorx.Wrap(ErrInvalidAmount, errorx.Invalid)
	}
	if !currency.Valid() {
		return nil, errorx.Wrap(models.ErrUnknownCurrency, errorx.Invalid)
	}

	err := service.limiter.Allow(ctx, LimitKeyUserTransfer(fromID), redis_rate.PerMinute(TRANSFER_RATE_LIMIT_PER_MINUTE))
	if err != nil {
		return nil, err
	}

	// the recipient must be a known member
	if _, err := datastore.FindUserByID(ctx, service.readonlyPostgresDB, toID); err != nil {
		return nil, errorx.Wrap(err, errorx.NotExist)
	}

	mutex := service.rs.NewMutex(LockKeyUserWallet(fromID))
	if err := mutex.TryLock(); err != nil {
		return nil, errorx.Wrap(ErrUserLock, errorx.Invalid)
	}
	//nolint:errcheck
	defer mutex.Unlock()

	transferID := uuid.NewString()
	var out, in *Movement
	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		out, err = applyMovement(ctx, tx, fromID, currency, -amount, models.TransferOutAction(transferID))
		if err != nil {
			return err
		}
		in, err = applyMovement(ctx, tx, toID, currency, amount, models.TransferInAction(transferID))
		return err
	})
	if err != nil {
		return nil, wrapLedgerError(err)
	}

	service.AfterCommit(ctx, out, in)
	return &models.TransferResult{From: out.Account, To: in.Account}, nil
}

func (service *ServiceCurrency) History(ctx context.Context, userID string, currency *models.Currency, page, limit int) (*models.Page[*models.CurrencyTransaction], error) {
	transactions, total, err := datastore.ListTransactions(ctx, service.readonlyPostgresDB, userID, currency, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	return &models.Page[*models.CurrencyTransaction]{Items: transactions, Page: page, Limit: limit, Total: total}, nil
}

// AfterCommit pushes earned amounts to the leaderboards. Refunds and incoming transfers are not earnings.
// Failures are logged, the ledger stays the source of truth.
func (service *ServiceCurrency) AfterCommit(ctx context.Context, movements ...*Movement) {
	serviceLeaderboard, err := do.Invoke[*ServiceLeaderboard](service.container)
	if err != nil {
		zap.S().Errorw("invoke leaderboard service", "err", err)
		return
	}

	for _, movement := range movements {
		if movement == nil || movement.Transaction.Amount <= 0 || !models.CountsAsEarning(movement.Transaction.Action) {
			continue
		}
		if err := serviceLeaderboard.RecordEarning(ctx, movement.Account, movement.Transaction.Amount); err != nil {
			zap.S().Warnw("update currency leaderboard", "user", movement.Account.UserID, "currency", movement.Account.Currency, "err", err)
		}
	}
}
