package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hamsterhub/internal/datastore"
	"hamsterhub/internal/models"
	"hamsterhub/internal/pkg/caching"

	"github.com/go-redsync/redsync/v4"
	"github.com/google/uuid"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/samber/do"
	"github.com/uptrace/bun"
)

var ErrItemOutOfStock = errors.New("item is out of stock")
var ErrInvalidPrice = errors.New("price must be positive")

type ServiceShop struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	rs                 *redsync.Redsync
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache

	serviceCurrency *ServiceCurrency
	webhook         *AuditWebhook
}

func NewServiceShop(container *do.Injector) (*ServiceShop, error) {
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

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	readonlyCache, err := do.Invoke[caching.ReadOnlyCache](container)
	if err != nil {
		return nil, err
	}

	serviceCurrency, err := do.Invoke[*ServiceCurrency](container)
	if err != nil {
		return nil, err
	}

	webhook, err := do.Invoke[*AuditWebhook](container)
	if err != nil {
		return nil, err
	}

	return &ServiceShop{container, postgresDB, readonlyPostgresDB, rs, cache, readonlyCache, serviceCurrency, webhook}, nil
}

func (service *ServiceShop) GetItems(ctx context.Context) ([]*models.ShopItem, error) {
	callback := func() ([]*models.ShopItem, error) {
		return datastore.GetShopItems(ctx, service.readonlyPostgresDB, true)
	}
	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyShopItems(), CACHE_TTL_1_MIN, callback)
}

func (service *ServiceShop) GetAllItems(ctx context.Context) ([]*models.ShopItem, error) {
	return datastore.GetShopItems(ctx, service.readonlyPostgresDB, false)
}

func (service *ServiceShop) GetItem(ctx context.Context, id int64) (*models.ShopItem, error) {
	return datastore.GetShopItem(ctx, service.readonlyPostgresDB, id)
}

func validateShopItem(item *models.ShopItem) error {
	if item.Price <= 0 {
		return errorx.Wrap(ErrInvalidPrice, errorx.Validation)
	}
	if !item.Currency.Valid() {
		return errorx.Wrap(models.ErrUnknownCurrency, errorx.Validation)
	}
	return nil
}

func (service *ServiceShop) CreateItem(ctx context.Context, item *models.ShopItem) (*models.ShopItem, error) {
	if err := validateShopItem(item); err != nil {
		return nil, err
	}

	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now
	if err := datastore.InsertShopItem(ctx, service.postgresDB, item); err != nil {
		return nil, err
	}

	_ = service.cache.Delete(ctx, DBKeyShopItems())
	return item, nil
}

func (service *ServiceShop) UpdateItem(ctx context.Context, item *models.ShopItem) (*models.ShopItem, error) {
	if err := validateShopItem(item); err != nil {
		return nil, err
	}

	if _, err := datastore.GetShopItem(ctx, service.postgresDB, item.ID); err != nil {
		return nil, err
	}

	item, err := datastore.EditShopItem(ctx, service.postgresDB, item)
	if err != nil {
		return nil, err
	}

	_ = service.cache.Delete(ctx, DBKeyShopItems())
	return item, nil
}

func (service *ServiceShop) SetStock(ctx context.Context, id int64, inStock bool) (*models.ShopItem, error) {
	item, err := datastore.GetShopItem(ctx, service.postgresDB, id)
	if err != nil {
		return nil, err
	}

	item.InStock = inStock
	return service.UpdateItem(ctx, item)
}

func (service *ServiceShop) DeleteItem(ctx context.Context, id int64) error {
	deleted, err := datastore.DeleteShopItem(ctx, service.postgresDB, id)
	if err != nil {
		return err
	}
	if !deleted {
		return errorx.Wrap(errors.New("item not found"), errorx.NotExist)
	}

	_ = service.cache.Delete(ctx, DBKeyShopItems())
	return nil
}

// Purchase debits the price and records the purchase snapshot in one transaction.
func (service *ServiceShop) Purchase(ctx context.Context, user *models.User, itemID int64) (*models.PurchaseHistory, error) {
	mutex := service.rs.NewMutex(LockKeyUserWallet(user.ID))
	if err := mutex.TryLock(); err != nil {
		return nil, errorx.Wrap(ErrUserLock, errorx.Invalid)
	}
	//nolint:errcheck
	defer mutex.Unlock()

	var purchase *models.PurchaseHistory
	var movement *Movement
	err := service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		item, err := datastore.GetShopItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if !item.InStock {
			return errorx.Wrap(ErrItemOutOfStock, errorx.Invalid)
		}

		purchase = &models.PurchaseHistory{
			ID:          uuid.NewString(),
			UserID:      user.ID,
			ItemID:      item.ID,
			ItemName:    item.Name,
			Price:       item.Price,
			Currency:    item.Currency,
			FileURL:     item.FileURL,
			PurchasedAt: time.Now(),
		}

		movement, err = applyMovement(ctx, tx, user.ID, item.Currency, -item.Price, models.PurchaseAction(purchase.ID))
		if err != nil {
			return err
		}

		return datastore.InsertPurchaseHistory(ctx, tx, purchase)
	})
	if err != nil {
		return nil, wrapLedgerError(err)
	}

	service.serviceCurrency.AfterCommit(ctx, movement)
	service.webhook.Announce(ctx, &AuditEvent{
		Title: "🛒 Shop purchase",
		Color: AUDIT_COLOR_INFO,
		Fields: []AuditField{
			{Name: "User", Value: fmt.Sprintf("%s (<@%s>)", user.DisplayName(), user.ID), Inline: true},
			{Name: "Item", Value: purchase.ItemName, Inline: true},
			{Name: "Price", Value: fmt.Sprintf("%d %s", purchase.Price, purchase.Currency), Inline: true},
		},
	})

	return purchase, nil
}

func (service *ServiceShop) History(ctx context.Context, userID string, page, limit int) (*models.Page[*models.PurchaseHistory], error) {
	purchases, total, err := datastore.ListPurchaseHistory(ctx, service.readonlyPostgresDB, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	return &models.Page[*models.PurchaseHistory]{Items: purchases, Page: page, Limit: limit, Total: total}, nil
}
