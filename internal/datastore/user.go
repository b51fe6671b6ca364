package datastore

import (
	"context"
	"strings"

	"hamsterhub/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableUser(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.User)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.User)(nil)).Index("index_user_username").IfNotExists().Column("username").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewRaw(`
		alter table "user"
			add if not exists global_name varchar default '';
		alter table "user"
			alter column created_at set default current_timestamp;`).Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func FindUserByID(ctx context.Context, db bun.IDB, userID string) (*models.User, error) {
	var user models.User
	err := db.NewSelect().Model(&user).Where("id = ?", userID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func FindUsersByIDs(ctx context.Context, db bun.IDB, userIDs []string) ([]*models.User, error) {
	var users []*models.User
	if len(userIDs) == 0 {
		return users, nil
	}

	err := db.NewSelect().Model(&users).Where("id IN (?)", bun.In(userIDs)).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser reports false when a row with the same id already exists.
func CreateUser(ctx context.Context, db bun.IDB, user *models.User) (bool, error) {
	res, err := db.NewInsert().Model(user).On("CONFLICT (id) DO NOTHING").Exec(ctx)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func UpdateUserProfile(ctx context.Context, db bun.IDB, user *models.User) error {
	_, err := db.NewUpdate().
		Model(user).
		Column("username", "global_name", "avatar", "updated_at").
		WherePK().
		Exec(ctx)
	return err
}

func SearchUsers(ctx context.Context, db bun.IDB, query string, limit, offset int) ([]*models.User, int, error) {
	var users []*models.User
	q := db.NewSelect().Model(&users)
	if query != "" {
		like := "%" + strings.ToLower(query) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("lower(username) LIKE ?", like).
				WhereOr("lower(global_name) LIKE ?", like).
				WhereOr("id = ?", query)
		})
	}

	count, err := q.Order("created_at DESC").Limit(limit).Offset(offset).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}

	return users, count, nil
}
