package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/samber/do"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"hamsterhub/internal/datastore"
	"hamsterhub/internal/interfaces"
	"hamsterhub/internal/models"
	"hamsterhub/internal/pkg/caching"
)

const MessageNewUser = `Welcome to the Hamstellar, %s! 🐹

Your HamsterCoin and StardustCoin wallets are ready. Hang out in voice channels to earn coins, then spend them in the shop or on the gacha.`

type ServiceUser struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache

	notifier     interfaces.Notifier
	serviceAdmin *ServiceAdmin
}

func NewServiceUser(container *do.Injector) (*ServiceUser, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
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

	bot, err := do.Invoke[*Bot](container)
	if err != nil {
		return nil, err
	}

	serviceAdmin, err := do.Invoke[*ServiceAdmin](container)
	if err != nil {
		return nil, err
	}

	return &ServiceUser{container, postgresDB, readonlyPostgresDB, cache, readonlyCache, bot, serviceAdmin}, nil
}

func profileChanged(user *models.User, session *models.SessionUser) bool {
	if user.Username != session.Username || user.GlobalName != session.GlobalName {
		return true
	}
	if (user.Avatar == nil) != (session.Avatar == nil) {
		return true
	}
	return user.Avatar != nil && *user.Avatar != *session.Avatar
}

func (service *ServiceUser) FindOrCreateUser(ctx context.Context, session *models.SessionUser) (*models.User, error) {
	if session == nil || session.ID == "" {
		return nil, errors.New("session user is empty")
	}

	user, err := service.FindUserByID(ctx, session.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if user != nil {
		if profileChanged(user, session) {
			user.Username = session.Username
			user.GlobalName = session.GlobalName
			user.Avatar = session.Avatar
			user.UpdatedAt = time.Now()
			if err := datastore.UpdateUserProfile(ctx, service.postgresDB, user); err != nil {
				return nil, err
			}
			_ = service.cache.Delete(ctx, DBKeyUser(user.ID))
		}
		return user, nil
	}

	now := time.Now()
	newUser := &models.User{
		ID:         session.ID,
		Username:   session.Username,
		GlobalName: session.GlobalName,
		Avatar:     session.Avatar,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var created bool
	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if created, err = datastore.CreateUser(ctx, tx, newUser); err != nil {
			return err
		}
		return datastore.EnsureAccounts(ctx, tx, newUser.ID)
	})
	if err != nil {
		return nil, err
	}
	if !created {
		// a concurrent login inserted the row first and owns the welcome message
		return service.FindUserByIDNoCache(ctx, session.ID)
	}

	zap.S().Infow("create new user", "user", newUser.ID, "username", newUser.Username)
	newUser.IsNewUser = true

	go func() {
		err := service.notifier.SendDirectMessage(context.Background(), newUser.ID, fmt.Sprintf(MessageNewUser, newUser.DisplayName()))
		if err != nil {
			zap.S().Debugw("welcome message", "user", newUser.ID, "err", err)
		}
	}()

	return newUser, nil
}

func (service *ServiceUser) FindUserByID(ctx context.Context, userID string) (*models.User, error) {
	callback := func() (*models.User, error) {
		return datastore.FindUserByID(ctx, service.readonlyPostgresDB, userID)
	}
	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyUser(userID), CACHE_TTL_5_MINS, callback)
}

func (service *ServiceUser) FindUserByIDNoCache(ctx context.Context, userID string) (*models.User, error) {
	return datastore.FindUserByID(ctx, service.postgresDB, userID)
}

// FindUsersByIDs returns users keyed by id; unknown ids are absent.
func (service *ServiceUser) FindUsersByIDs(ctx context.Context, userIDs []string) (map[string]*models.User, error) {
	users, err := datastore.FindUsersByIDs(ctx, service.readonlyPostgresDB, userIDs)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}

func (service *ServiceUser) SearchUsers(ctx context.Context, query string, page, limit int) (*models.Page[*models.User], error) {
	users, total, err := datastore.SearchUsers(ctx, service.readonlyPostgresDB, query, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	return &models.Page[*models.User]{Items: users, Page: page, Limit: limit, Total: total}, nil
}

func (service *ServiceUser) Me(ctx context.Context, user *models.User) (*models.User, error) {
	serviceCurrency, err := do.Invoke[*ServiceCurrency](service.container)
	if err != nil {
		return nil, err
	}

	balances, err := serviceCurrency.GetAccounts(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	me := *user
	me.Balances = balances
	me.IsAdmin = service.serviceAdmin.IsAdmin(ctx, user.ID)
	return &me, nil
}

func (service *ServiceUser) ClearUserCache(ctx context.Context, userID string) error {
	return service.cache.Delete(ctx, DBKeyUser(userID))
}
