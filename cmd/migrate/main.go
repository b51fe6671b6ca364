package main

import (
	"context"
	"log"
	"os"
	"strconv"

	"hamsterhub/internal/container"
	"hamsterhub/internal/datastore"
	"hamsterhub/internal/models"
	"hamsterhub/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"github.com/urfave/cli/v2"
)

func init() {
	// for development
	//nolint:errcheck
	godotenv.Load("../../.env")

	// for production
	//nolint:errcheck
	godotenv.Load("./.env")
}

func main() {
	vs, err := env.EnvsRequired(
		"DB_DSN",
		"SESSION_SECRET",
	)
	if err != nil {
		log.Fatal(err)
	}

	injector := container.New(vs)

	app := &cli.App{
		Name: "migrate",
		Commands: []*cli.Command{
			commandMigration(injector),
			commandConfigMigration(injector),
			commandSeedItems(injector),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandMigration(injector *do.Injector) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "create tables and indexes",
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db := do.MustInvoke[*bun.DB](injector)

			steps := []struct {
				name   string
				create func(context.Context, *bun.DB) error
			}{
				{"user", datastore.CreateTableUser},
				{"config", datastore.CreateTableConfig},
				{"account", datastore.CreateTableAccount},
				{"currency_transaction", datastore.CreateTableCurrencyTransaction},
				{"shop_item", datastore.CreateTableShopItem},
				{"purchase_history", datastore.CreateTablePurchaseHistory},
				{"gacha_item", datastore.CreateTableGachaItem},
				{"gacha_pull", datastore.CreateTableGachaPull},
				{"user_item", datastore.CreateTableUserItem},
				{"task", datastore.CreateTableTask},
				{"task_submission", datastore.CreateTableTaskSubmission},
				{"voice_activity", datastore.CreateTableVoiceActivity},
				{"voice_session", datastore.CreateTableVoiceSession},
			}

			for _, step := range steps {
				if err := step.create(ctx, db); err != nil {
					log.Fatalf("create table %s: %v", step.name, err)
				}
			}

			log.Println("Migration success")
			return nil
		},
	}
}

func commandConfigMigration(injector *do.Injector) *cli.Command {
	return &cli.Command{
		Name:        "migrate-config",
		Description: "Insert default configs to db, existing keys are kept",
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db := do.MustInvoke[*bun.DB](injector)

			configs := []models.Config{
				{Key: services.CONFIG_SERVER_MODE, Value: services.SERVER_MODE_PRODUCTION},
				{Key: services.CONFIG_ADMIN_IDS, Value: ""},
				{Key: services.CONFIG_LEADERBOARD_LIMIT, Value: strconv.Itoa(services.LEADERBOARD_DEFAULT_LIMIT)},
				{Key: services.CONFIG_GACHA_PULL_COST, Value: strconv.Itoa(services.GACHA_DEFAULT_PULL_COST)},
				{Key: services.CONFIG_GACHA_PULL_CURRENCY, Value: services.GACHA_DEFAULT_PULL_CURRENCY},
				{Key: services.CONFIG_GACHA_RARITY_WEIGHTS, Value: services.GACHA_DEFAULT_RARITY_WEIGHTS},
				{Key: services.CONFIG_GACHA_RATE_LIMIT_PER_MINUTE, Value: strconv.Itoa(services.GACHA_DEFAULT_RATE_LIMIT_PER_MINUTE)},
				{Key: services.CONFIG_VOICE_SESSION_MAX_MINUTES, Value: strconv.Itoa(services.VOICE_DEFAULT_SESSION_MAX_MINUTES)},
				{Key: services.CONFIG_VOICE_COINS_PER_MINUTE, Value: strconv.Itoa(services.VOICE_DEFAULT_COINS_PER_MINUTE)},
				{Key: services.CONFIG_CRONJOB_TIME_WEEKLY_RESET, Value: services.CRONJOB_DEFAULT_TIME_WEEKLY_RESET},
				{Key: services.CONFIG_CRONJOB_TIME_VOICE_SWEEP, Value: services.CRONJOB_DEFAULT_TIME_VOICE_SWEEP},
			}

			for i := range configs {
				if err := datastore.InsertConfig(ctx, db, &configs[i]); err != nil {
					log.Fatal(err)
				}
			}

			log.Println("Config migration success")
			return nil
		},
	}
}

func commandSeedItems(injector *do.Injector) *cli.Command {
	return &cli.Command{
		Name:        "seed-items",
		Description: "Insert a starter shop and gacha pool when both are empty",
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db := do.MustInvoke[*bun.DB](injector)

			shopItems, err := datastore.GetShopItems(ctx, db, false)
			if err != nil {
				return err
			}
			if len(shopItems) == 0 {
				for _, item := range starterShop() {
					if err := datastore.InsertShopItem(ctx, db, item); err != nil {
						return err
					}
				}
				log.Println("Shop seeded")
			}

			gachaItems, err := datastore.GetGachaItems(ctx, db, false)
			if err != nil {
				return err
			}
			if len(gachaItems) == 0 {
				for _, item := range starterGacha() {
					if err := datastore.InsertGachaItem(ctx, db, item); err != nil {
						return err
					}
				}
				log.Println("Gacha pool seeded")
			}

			return nil
		},
	}
}

func starterShop() []*models.ShopItem {
	return []*models.ShopItem{
		{Name: "Custom role color", Description: "Pick the color of your name for a month", Price: 500, Currency: models.CurrencyHamsterCoin, InStock: true},
		{Name: "Sunflower seed pack", Description: "Emoji pack for the server", Price: 150, Currency: models.CurrencyHamsterCoin, InStock: true},
		{Name: "Stardust wallpaper", Description: "Exclusive wallpaper download", Price: 40, Currency: models.CurrencyStardust, InStock: true},
	}
}

func starterGacha() []*models.GachaItem {
	coins := models.CurrencyHamsterCoin
	stardust := models.CurrencyStardust
	return []*models.GachaItem{
		{Name: "Sunflower seed", Rarity: models.RarityCommon, DropRate: 60, RewardCurrency: &coins, RewardAmount: 5, Enabled: true},
		{Name: "Hay bale", Rarity: models.RarityCommon, DropRate: 40, Enabled: true},
		{Name: "Exercise wheel", Rarity: models.RarityRare, DropRate: 70, RewardCurrency: &coins, RewardAmount: 50, Enabled: true},
		{Name: "Tiny top hat", Rarity: models.RarityRare, DropRate: 30, Enabled: true},
		{Name: "Crystal tube", Rarity: models.RarityEpic, DropRate: 100, RewardCurrency: &stardust, RewardAmount: 50, Enabled: true},
		{Name: "Golden hamster", Rarity: models.RarityLegendary, DropRate: 100, RewardCurrency: &stardust, RewardAmount: 500, Enabled: true},
	}
}
