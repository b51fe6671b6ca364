package datastore

import (
	"context"
	"time"

	"hamsterhub/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableGachaItem(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.GachaItem)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.GachaItem)(nil)).Index("index_gacha_item_rarity_enabled").IfNotExists().Column("rarity", "enabled").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateTableGachaPull(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.GachaPull)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.GachaPull)(nil)).Index("index_gacha_pull_user_id_created_at").IfNotExists().Column("user_id", "created_at").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateTableUserItem(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.UserItem)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.UserItem)(nil)).Index("index_user_item_user_id_item_id").IfNotExists().Unique().Column("user_id", "item_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func GetGachaItems(ctx context.Context, db bun.IDB, onlyEnabled bool) ([]*models.GachaItem, error) {
	var items []*models.GachaItem
	q := db.NewSelect().Model(&items)
	if onlyEnabled {
		q = q.Where("enabled = ?", true)
	}

	err := q.Order("rarity ASC", "id ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func GetGachaItem(ctx context.Context, db bun.IDB, id int64) (*models.GachaItem, error) {
	var item models.GachaItem
	err := db.NewSelect().Model(&item).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func InsertGachaItem(ctx context.Context, db bun.IDB, item *models.GachaItem) error {
	_, err := db.NewInsert().Model(item).Returning("*").Exec(ctx)
	return err
}

func EditGachaItem(ctx context.Context, db bun.IDB, item *models.GachaItem) (*models.GachaItem, error) {
	item.UpdatedAt = time.Now()
	_, err := db.NewUpdate().
		Model(item).
		Column("name", "description", "image_url", "rarity", "drop_rate", "reward_currency", "reward_amount", "enabled", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func DeleteGachaItem(ctx context.Context, db bun.IDB, id int64) (bool, error) {
	res, err := db.NewDelete().Model((*models.GachaItem)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	return n > 0, err
}

func InsertGachaPulls(ctx context.Context, db bun.IDB, pulls []*models.GachaPull) error {
	if len(pulls) == 0 {
		return nil
	}
	_, err := db.NewInsert().Model(&pulls).Exec(ctx)
	return err
}

func ListGachaPulls(ctx context.Context, db bun.IDB, userID string, limit, offset int) ([]*models.GachaPull, int, error) {
	var pulls []*models.GachaPull
	count, err := db.NewSelect().
		Model(&pulls).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return pulls, count, nil
}

func AddUserItem(ctx context.Context, db bun.IDB, userID string, item *models.GachaItem, quantity int) error {
	userItem := &models.UserItem{
		UserID:    userID,
		ItemID:    item.ID,
		ItemName:  item.Name,
		Rarity:    item.Rarity,
		Quantity:  quantity,
		UpdatedAt: time.Now(),
	}

	_, err := db.NewInsert().
		Model(userItem).
		On("CONFLICT (user_id, item_id) DO UPDATE").
		Set("quantity = user_item.quantity + EXCLUDED.quantity").
		Set("item_name = EXCLUDED.item_name").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func GetUserItems(ctx context.Context, db bun.IDB, userID string) ([]*models.UserItem, error) {
	var items []*models.UserItem
	err := db.NewSelect().Model(&items).Where("user_id = ?", userID).Order("rarity DESC", "item_name ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}
