package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hamsterhub/internal/datastore"
	"hamsterhub/internal/interfaces"
	"hamsterhub/internal/models"
	"hamsterhub/internal/pkg/caching"

	"github.com/go-redis/redis_rate/v10"
	"github.com/go-redsync/redsync/v4"
	"github.com/google/uuid"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/mroth/weightedrand/v2"
	"github.com/samber/do"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

var (
	ErrInvalidPullCount = errors.New("pull count must be 1 or 10")
	ErrGachaPoolEmpty   = errors.New("gacha pool is empty")
	ErrInvalidDropRate  = errors.New("drop rate must not be negative")
)

var GachaPullCounts = []int{1, 10}

type ServiceGacha[T any] struct {
	chooser *weightedrand.Chooser[T, int]
}

func NewServiceGacha[T any](choices []weightedrand.Choice[T, int]) (*ServiceGacha[T], error) {
	chooser, err := weightedrand.NewChooser(choices...)
	if err != nil {
		return nil, err
	}

	return &ServiceGacha[T]{chooser}, nil
}

func (service *ServiceGacha[T]) Pick() T {
	return service.chooser.Pick()
}

// GachaPool draws a rarity tier first, then an item inside it.
type GachaPool struct {
	tiers *ServiceGacha[models.Rarity]
	items map[models.Rarity]*ServiceGacha[*models.GachaItem]
	Rates *models.GachaRatesReport
}

// NewGachaPool skips disabled items and tiers whose items weigh nothing.
func NewGachaPool(items []*models.GachaItem, tierWeights map[models.Rarity]int) (*GachaPool, error) {
	report := &models.GachaRatesReport{}
	byTier := map[models.Rarity][]weightedrand.Choice[*models.GachaItem, int]{}
	itemWeights := map[models.Rarity]int{}

	for _, item := range items {
		if !item.Enabled || !item.Rarity.Valid() {
			continue
		}
		report.Items = append(report.Items, item)
		if item.DropRate <= 0 {
			continue
		}
		byTier[item.Rarity] = append(byTier[item.Rarity], weightedrand.NewChoice(item, item.DropRate))
		itemWeights[item.Rarity] += item.DropRate
	}

	pool := &GachaPool{items: map[models.Rarity]*ServiceGacha[*models.GachaItem]{}, Rates: report}
	var tierChoices []weightedrand.Choice[models.Rarity, int]
	drawableWeight := 0

	for _, rarity := range models.Rarities {
		tier := &models.GachaTierReport{
			Rarity:      rarity,
			TierWeight:  tierWeights[rarity],
			ItemWeights: itemWeights[rarity],
		}
		for _, item := range report.Items {
			if item.Rarity == rarity {
				tier.ItemCount++
			}
		}
		report.Tiers = append(report.Tiers, tier)

		if tier.TierWeight <= 0 || tier.ItemWeights <= 0 {
			continue
		}

		chooser, err := NewServiceGacha(byTier[rarity])
		if err != nil {
			return nil, err
		}
		pool.items[rarity] = chooser
		tier.Drawable = true
		tierChoices = append(tierChoices, weightedrand.NewChoice(rarity, tier.TierWeight))
		drawableWeight += tier.TierWeight
	}

	if len(tierChoices) == 0 {
		return nil, ErrGachaPoolEmpty
	}

	tiers, err := NewServiceGacha(tierChoices)
	if err != nil {
		return nil, err
	}
	pool.tiers = tiers

	total := decimal.NewFromInt(int64(drawableWeight))
	for _, tier := range report.Tiers {
		if !tier.Drawable {
			continue
		}
		tierShare := decimal.NewFromInt(int64(tier.TierWeight)).Div(total)
		tier.Probability = tierShare.Round(6).InexactFloat64()

		for _, item := range report.Items {
			if item.Rarity != tier.Rarity || item.DropRate <= 0 {
				continue
			}
			itemShare := decimal.NewFromInt(int64(item.DropRate)).Div(decimal.NewFromInt(int64(tier.ItemWeights)))
			item.Probability = tierShare.Mul(itemShare).Round(6).InexactFloat64()
		}
	}

	return pool, nil
}

func (pool *GachaPool) Draw() *models.GachaItem {
	return pool.items[pool.tiers.Pick()].Pick()
}

type ServiceGachaMachine struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	rs                 *redsync.Redsync
	limiter            interfaces.Limiter
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache

	serviceCurrency *ServiceCurrency
	serviceConfig   *ServiceConfig
	webhook         *AuditWebhook
}

func NewServiceGachaMachine(container *do.Injector) (*ServiceGachaMachine, error) {
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

	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	webhook, err := do.Invoke[*AuditWebhook](container)
	if err != nil {
		return nil, err
	}

	return &ServiceGachaMachine{container, postgresDB, readonlyPostgresDB, rs, limiter, cache, readonlyCache, serviceCurrency, serviceConfig, webhook}, nil
}

func (service *ServiceGachaMachine) enabledItems(ctx context.Context) ([]*models.GachaItem, error) {
	callback := func() ([]*models.GachaItem, error) {
		return datastore.GetGachaItems(ctx, service.readonlyPostgresDB, true)
	}
	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyGachaPool(), CACHE_TTL_1_MIN, callback)
}

func (service *ServiceGachaMachine) rarityWeights(ctx context.Context) map[models.Rarity]int {
	raw, _ := service.serviceConfig.GetStringConfig(ctx, CONFIG_GACHA_RARITY_WEIGHTS, GACHA_DEFAULT_RARITY_WEIGHTS)
	weights, err := models.ParseRarityWeights(raw)
	if err != nil {
		zap.S().Warnw("invalid gacha rarity weights, using defaults", "value", raw, "err", err)
		weights, _ = models.ParseRarityWeights(GACHA_DEFAULT_RARITY_WEIGHTS)
	}
	return weights
}

func (service *ServiceGachaMachine) loadPool(ctx context.Context) (*GachaPool, error) {
	items, err := service.enabledItems(ctx)
	if err != nil {
		return nil, err
	}
	return NewGachaPool(items, service.rarityWeights(ctx))
}

func (service *ServiceGachaMachine) pullPrice(ctx context.Context) (int64, models.Currency) {
	cost, _ := service.serviceConfig.GetIntConfig(ctx, CONFIG_GACHA_PULL_COST, GACHA_DEFAULT_PULL_COST)
	if cost <= 0 {
		cost = GACHA_DEFAULT_PULL_COST
	}

	raw, _ := service.serviceConfig.GetStringConfig(ctx, CONFIG_GACHA_PULL_CURRENCY, GACHA_DEFAULT_PULL_CURRENCY)
	currency, err := models.ParseCurrency(raw)
	if err != nil {
		currency = models.CurrencyStardust
	}
	return int64(cost), currency
}

type GachaPoolResponse struct {
	Cost     int64               `json:"cost"`
	Currency models.Currency     `json:"currency"`
	Items    []*models.GachaItem `json:"items"`
}

func (service *ServiceGachaMachine) Pool(ctx context.Context) (*GachaPoolResponse, error) {
	pool, err := service.loadPool(ctx)
	if errors.Is(err, ErrGachaPoolEmpty) {
		return nil, errorx.Wrap(err, errorx.NotExist)
	}
	if err != nil {
		return nil, err
	}

	cost, currency := service.pullPrice(ctx)
	response := &GachaPoolResponse{Cost: cost, Currency: currency}
	for _, item := range pool.Rates.Items {
		if item.Probability > 0 {
			response.Items = append(response.Items, item)
		}
	}
	return response, nil
}

// RatesReport covers every item, disabled ones included, so admins can spot tiers that can never drop.
func (service *ServiceGachaMachine) RatesReport(ctx context.Context) (*models.GachaRatesReport, error) {
	items, err := datastore.GetGachaItems(ctx, service.readonlyPostgresDB, false)
	if err != nil {
		return nil, err
	}

	weights := service.rarityWeights(ctx)
	pool, err := NewGachaPool(items, weights)
	if err != nil && !errors.Is(err, ErrGachaPoolEmpty) {
		return nil, err
	}

	var report *models.GachaRatesReport
	if pool != nil {
		report = pool.Rates
	} else {
		report = emptyRatesReport(items, weights)
	}

	for _, item := range items {
		if !item.Enabled {
			report.Items = append(report.Items, item)
		}
	}
	return report, nil
}

func emptyRatesReport(items []*models.GachaItem, tierWeights map[models.Rarity]int) *models.GachaRatesReport {
	report := &models.GachaRatesReport{}
	for _, rarity := range models.Rarities {
		tier := &models.GachaTierReport{Rarity: rarity, TierWeight: tierWeights[rarity]}
		for _, item := range items {
			if item.Enabled && item.Rarity == rarity {
				tier.ItemCount++
				if item.DropRate > 0 {
					tier.ItemWeights += item.DropRate
				}
				report.Items = append(report.Items, item)
			}
		}
		report.Tiers = append(report.Tiers, tier)
	}
	return report
}

func (service *ServiceGachaMachine) Pull(ctx context.Context, user *models.User, count int) (*models.GachaResult, error) {
	if count != GachaPullCounts[0] && count != GachaPullCounts[1] {
		return nil, errorx.Wrap(ErrInvalidPullCount, errorx.Invalid)
	}

	perMinute, _ := service.serviceConfig.GetIntConfig(ctx, CONFIG_GACHA_RATE_LIMIT_PER_MINUTE, GACHA_DEFAULT_RATE_LIMIT_PER_MINUTE)
	err := service.limiter.Allow(ctx, LimitKeyUserGacha(user.ID), redis_rate.PerMinute(perMinute))
	if err != nil {
		return nil, err
	}

	pool, err := service.loadPool(ctx)
	if errors.Is(err, ErrGachaPoolEmpty) {
		return nil, errorx.Wrap(err, errorx.NotExist)
	}
	if err != nil {
		return nil, err
	}

	mutex := service.rs.NewMutex(LockKeyUserWallet(user.ID))
	if err := mutex.TryLock(); err != nil {
		return nil, errorx.Wrap(ErrUserLock, errorx.Invalid)
	}
	//nolint:errcheck
	defer mutex.Unlock()

	cost, currency := service.pullPrice(ctx)
	total := cost * int64(count)
	now := time.Now()

	drawn := make([]*models.GachaItem, count)
	pulls := make([]*models.GachaPull, count)
	for i := range drawn {
		drawn[i] = pool.Draw()
		pulls[i] = &models.GachaPull{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			ItemID:    drawn[i].ID,
			ItemName:  drawn[i].Name,
			Rarity:    drawn[i].Rarity,
			Cost:      cost,
			Currency:  currency,
			CreatedAt: now,
		}
	}

	var movements []*Movement
	var balance *models.Account
	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		movement, err := applyMovement(ctx, tx, user.ID, currency, -total, models.GachaCostAction(uuid.NewString()))
		if err != nil {
			return err
		}
		movements = append(movements, movement)
		balance = movement.Account

		for i, item := range drawn {
			if err := datastore.AddUserItem(ctx, tx, user.ID, item, 1); err != nil {
				return err
			}

			if item.RewardCurrency == nil || item.RewardAmount <= 0 {
				continue
			}
			movement, err := applyMovement(ctx, tx, user.ID, *item.RewardCurrency, item.RewardAmount, models.GachaRewardAction(pulls[i].ID))
			if err != nil {
				return err
			}
			movements = append(movements, movement)
			if *item.RewardCurrency == currency {
				balance = movement.Account
			}
		}

		return datastore.InsertGachaPulls(ctx, tx, pulls)
	})
	if err != nil {
		return nil, wrapLedgerError(err)
	}

	service.serviceCurrency.AfterCommit(ctx, movements...)
	for _, pull := range pulls {
		if pull.Rarity == models.RarityLegendary {
			service.webhook.Announce(ctx, &AuditEvent{
				Title:       "🌟 Legendary pull",
				Description: fmt.Sprintf("%s pulled **%s**", user.DisplayName(), pull.ItemName),
				Color:       AUDIT_COLOR_SUCCESS,
			})
		}
	}

	return &models.GachaResult{Pulls: pulls, Cost: total, Balance: balance}, nil
}

func (service *ServiceGachaMachine) History(ctx context.Context, userID string, page, limit int) (*models.Page[*models.GachaPull], error) {
	pulls, total, err := datastore.ListGachaPulls(ctx, service.readonlyPostgresDB, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	return &models.Page[*models.GachaPull]{Items: pulls, Page: page, Limit: limit, Total: total}, nil
}

func (service *ServiceGachaMachine) Inventory(ctx context.Context, userID string) ([]*models.UserItem, error) {
	return datastore.GetUserItems(ctx, service.readonlyPostgresDB, userID)
}

func (service *ServiceGachaMachine) GetItems(ctx context.Context) ([]*models.GachaItem, error) {
	return datastore.GetGachaItems(ctx, service.readonlyPostgresDB, false)
}

func validateGachaItem(item *models.GachaItem) error {
	if !item.Rarity.Valid() {
		return errorx.Wrap(fmt.Errorf("unknown rarity %q", item.Rarity), errorx.Validation)
	}
	if item.DropRate < 0 {
		return errorx.Wrap(ErrInvalidDropRate, errorx.Validation)
	}
	if item.RewardCurrency != nil && !item.RewardCurrency.Valid() {
		return errorx.Wrap(models.ErrUnknownCurrency, errorx.Validation)
	}
	if item.RewardAmount < 0 {
		return errorx.Wrap(ErrInvalidAmount, errorx.Validation)
	}
	return nil
}

func (service *ServiceGachaMachine) CreateItem(ctx context.Context, item *models.GachaItem) (*models.GachaItem, error) {
	if err := validateGachaItem(item); err != nil {
		return nil, err
	}

	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now
	if err := datastore.InsertGachaItem(ctx, service.postgresDB, item); err != nil {
		return nil, err
	}

	_ = service.cache.Delete(ctx, DBKeyGachaPool())
	return item, nil
}

func (service *ServiceGachaMachine) UpdateItem(ctx context.Context, item *models.GachaItem) (*models.GachaItem, error) {
	if err := validateGachaItem(item); err != nil {
		return nil, err
	}

	if _, err := datastore.GetGachaItem(ctx, service.postgresDB, item.ID); err != nil {
		return nil, err
	}

	item, err := datastore.EditGachaItem(ctx, service.postgresDB, item)
	if err != nil {
		return nil, err
	}

	_ = service.cache.Delete(ctx, DBKeyGachaPool())
	return item, nil
}

func (service *ServiceGachaMachine) DeleteItem(ctx context.Context, id int64) error {
	deleted, err := datastore.DeleteGachaItem(ctx, service.postgresDB, id)
	if err != nil {
		return err
	}
	if !deleted {
		return errorx.Wrap(errors.New("item not found"), errorx.NotExist)
	}

	_ = service.cache.Delete(ctx, DBKeyGachaPool())
	return nil
}
