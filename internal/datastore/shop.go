package datastore

import (
	"context"
	"time"

	"hamsterhub/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableShopItem(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.ShopItem)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.ShopItem)(nil)).Index("index_shop_item_in_stock").IfNotExists().Column("in_stock").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateTablePurchaseHistory(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.PurchaseHistory)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.PurchaseHistory)(nil)).Index("index_purchase_history_user_id").IfNotExists().Column("user_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.PurchaseHistory)(nil)).Index("index_purchase_history_purchased_at").IfNotExists().Column("purchased_at").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func GetShopItems(ctx context.Context, db bun.IDB, onlyInStock bool) ([]*models.ShopItem, error) {
	var items []*models.ShopItem
	q := db.NewSelect().Model(&items)
	if onlyInStock {
		q = q.Where("in_stock = ?", true)
	}

	err := q.Order("price ASC", "id ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func GetShopItem(ctx context.Context, db bun.IDB, id int64) (*models.ShopItem, error) {
	var item models.ShopItem
	err := db.NewSelect().Model(&item).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func InsertShopItem(ctx context.Context, db bun.IDB, item *models.ShopItem) error {
	_, err := db.NewInsert().Model(item).Returning("*").Exec(ctx)
	return err
}

func EditShopItem(ctx context.Context, db bun.IDB, item *models.ShopItem) (*models.ShopItem, error) {
	item.UpdatedAt = time.Now()
	_, err := db.NewUpdate().
		Model(item).
		Column("name", "description", "price", "currency", "in_stock", "file_url", "image_url", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func DeleteShopItem(ctx context.Context, db bun.IDB, id int64) (bool, error) {
	res, err := db.NewDelete().Model((*models.ShopItem)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	return n > 0, err
}

func InsertPurchaseHistory(ctx context.Context, db bun.IDB, purchase *models.PurchaseHistory) error {
	_, err := db.NewInsert().Model(purchase).Exec(ctx)
	return err
}

// ListPurchaseHistory lists every purchase when userID is empty.
func ListPurchaseHistory(ctx context.Context, db bun.IDB, userID string, limit, offset int) ([]*models.PurchaseHistory, int, error) {
	var purchases []*models.PurchaseHistory
	q := db.NewSelect().Model(&purchases)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}

	count, err := q.Order("purchased_at DESC").Limit(limit).Offset(offset).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return purchases, count, nil
}
