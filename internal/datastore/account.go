package datastore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"hamsterhub/internal/models"

	"github.com/uptrace/bun"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrDuplicateAction     = errors.New("action already applied")
)

func CreateTableAccount(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Account)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Account)(nil)).Index("index_account_user_id_currency").IfNotExists().Unique().Column("user_id", "currency").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Account)(nil)).Index("index_account_currency_lifetime_earned").IfNotExists().Column("currency", "lifetime_earned").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewRaw(`
		alter table account
			drop constraint if exists account_balance_non_negative;
		alter table account
			add constraint account_balance_non_negative check (balance >= 0);`).Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateTableCurrencyTransaction(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.CurrencyTransaction)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.CurrencyTransaction)(nil)).Index("index_currency_transaction_user_id_currency_action").IfNotExists().Unique().Column("user_id", "currency", "action").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.CurrencyTransaction)(nil)).Index("index_currency_transaction_created_at").IfNotExists().Column("created_at").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

// EnsureAccounts creates the missing accounts of a user; existing rows are left alone.
func EnsureAccounts(ctx context.Context, db bun.IDB, userID string) error {
	accounts := make([]*models.Account, 0, len(models.Currencies))
	now := time.Now()
	for _, c := range models.Currencies {
		accounts = append(accounts, &models.Account{
			UserID:    userID,
			Currency:  c,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	_, err := db.NewInsert().Model(&accounts).On("CONFLICT (user_id, currency) DO NOTHING").Exec(ctx)
	return err
}

func GetAccounts(ctx context.Context, db bun.IDB, userID string) ([]*models.Account, error) {
	var accounts []*models.Account
	err := db.NewSelect().Model(&accounts).Where("user_id = ?", userID).Order("currency ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func GetAccount(ctx context.Context, db bun.IDB, userID string, currency models.Currency) (*models.Account, error) {
	var account models.Account
	err := db.NewSelect().Model(&account).Where("user_id = ? AND currency = ?", userID, currency).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// CreditAccount adds amount to the balance. Only flow credits raise lifetime_earned; a refund winds lifetime_spent back instead.
func CreditAccount(ctx context.Context, db bun.IDB, userID string, currency models.Currency, amount int64, kind models.ActionKind) (*models.Account, error) {
	account := new(models.Account)
	q := db.NewUpdate().
		Model(account).
		Set("balance = balance + ?", amount)
	switch kind {
	case models.ActionFlow:
		q = q.Set("lifetime_earned = lifetime_earned + ?", amount)
	case models.ActionRefund:
		q = q.Set("lifetime_spent = GREATEST(lifetime_spent - ?, 0)", amount)
	}

	res, err := q.
		Set("updated_at = ?", time.Now()).
		Where("user_id = ? AND currency = ?", userID, currency).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, sql.ErrNoRows
	}

	return account, nil
}

// DebitAccount only touches the row when the balance covers amount. Transfers leave lifetime_spent alone.
func DebitAccount(ctx context.Context, db bun.IDB, userID string, currency models.Currency, amount int64, kind models.ActionKind) (*models.Account, error) {
	account := new(models.Account)
	q := db.NewUpdate().
		Model(account).
		Set("balance = balance - ?", amount)
	if kind != models.ActionTransfer {
		q = q.Set("lifetime_spent = lifetime_spent + ?", amount)
	}

	res, err := q.
		Set("updated_at = ?", time.Now()).
		Where("user_id = ? AND currency = ? AND balance >= ?", userID, currency, amount).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrInsufficientBalance
	}

	return account, nil
}

// InsertTransaction returns ErrDuplicateAction when the (user, currency, action) key already exists.
func InsertTransaction(ctx context.Context, db bun.IDB, transaction *models.CurrencyTransaction) error {
	res, err := db.NewInsert().Model(transaction).On("CONFLICT (user_id, currency, action) DO NOTHING").Exec(ctx)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDuplicateAction
	}

	return nil
}

func ListTransactions(ctx context.Context, db bun.IDB, userID string, currency *models.Currency, limit, offset int) ([]*models.CurrencyTransaction, int, error) {
	var transactions []*models.CurrencyTransaction
	q := db.NewSelect().Model(&transactions).Where("user_id = ?", userID)
	if currency != nil {
		q = q.Where("currency = ?", *currency)
	}

	count, err := q.Order("id DESC").Limit(limit).Offset(offset).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}

	return transactions, count, nil
}

// GetEarnedListFromTime sums earning ledger rows per user since from, highest first. Refunds and incoming transfers are skipped.
func GetEarnedListFromTime(ctx context.Context, db bun.IDB, currency models.Currency, from time.Time, limit, offset int) ([]*models.TotalEarned, error) {
	var totals []*models.TotalEarned
	q := db.NewSelect().
		ColumnExpr("user_id").
		ColumnExpr("SUM(amount) AS total").
		TableExpr("currency_transaction").
		Where("currency = ?", currency).
		Where("amount > 0")
	for _, pattern := range models.NonEarningActionPatterns {
		q = q.Where("action NOT LIKE ?", pattern)
	}

	err := q.
		Where("created_at >= ?", from).
		GroupExpr("user_id").
		OrderExpr("total DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx, &totals)
	if err != nil {
		return nil, err
	}

	return totals, nil
}

func GetLifetimeEarnedList(ctx context.Context, db bun.IDB, currency models.Currency, limit, offset int) ([]*models.Account, error) {
	var accounts []*models.Account
	err := db.NewSelect().
		Model(&accounts).
		Where("currency = ?", currency).
		Where("lifetime_earned > 0").
		Order("lifetime_earned DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// ListTransactionsAfter pages through the whole ledger in id order.
func ListTransactionsAfter(ctx context.Context, db bun.IDB, afterID int64, limit int) ([]*models.CurrencyTransaction, error) {
	var transactions []*models.CurrencyTransaction
	err := db.NewSelect().
		Model(&transactions).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return transactions, nil
}
