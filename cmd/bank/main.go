package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"hamsterhub/internal/container"
	"hamsterhub/internal/models"
	"hamsterhub/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	"github.com/samber/do"
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

var errRecordLength = errors.New("invalid record length")

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
		Name: "bank",
		Commands: []*cli.Command{
			commandImportShop(injector),
			commandImportGacha(injector),
			commandAirdrop(injector),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// readRecords calls fn for every row after the header. Rows fn rejects are logged and skipped.
func readRecords(r io.Reader, fn func(line int, record []string) error) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	if _, err := reader.Read(); err != nil {
		return 0, err
	}

	imported := 0
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			return imported, nil
		}
		if err != nil {
			return imported, err
		}

		if err := fn(line, record); err != nil {
			log.Printf("line %d skipped: %v", line, err)
			continue
		}
		imported++
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func column(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// name, description, price, currency, in_stock, image_url, file_url
func parseShopRecord(record []string) (*models.ShopItem, error) {
	if len(record) < 4 {
		return nil, errRecordLength
	}

	price, err := strconv.ParseInt(column(record, 2), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("price: %w", err)
	}

	currency, err := models.ParseCurrency(column(record, 3))
	if err != nil {
		return nil, err
	}

	inStock := true
	if v := column(record, 4); v != "" {
		inStock, err = strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("in_stock: %w", err)
		}
	}

	return &models.ShopItem{
		Name:        column(record, 0),
		Description: column(record, 1),
		Price:       price,
		Currency:    currency,
		InStock:     inStock,
		ImageURL:    optional(column(record, 5)),
		FileURL:     optional(column(record, 6)),
	}, nil
}

// name, description, rarity, drop_rate, reward_currency, reward_amount, image_url
func parseGachaRecord(record []string) (*models.GachaItem, error) {
	if len(record) < 4 {
		return nil, errRecordLength
	}

	rarity := models.Rarity(strings.ToLower(column(record, 2)))
	if !rarity.Valid() {
		return nil, fmt.Errorf("unknown rarity %q", column(record, 2))
	}

	dropRate, err := strconv.Atoi(column(record, 3))
	if err != nil {
		return nil, fmt.Errorf("drop_rate: %w", err)
	}

	item := &models.GachaItem{
		Name:        column(record, 0),
		Description: column(record, 1),
		Rarity:      rarity,
		DropRate:    dropRate,
		ImageURL:    optional(column(record, 6)),
		Enabled:     true,
	}

	if v := column(record, 4); v != "" {
		currency, err := models.ParseCurrency(v)
		if err != nil {
			return nil, err
		}
		amount, err := strconv.ParseInt(column(record, 5), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("reward_amount: %w", err)
		}
		item.RewardCurrency = &currency
		item.RewardAmount = amount
	}

	return item, nil
}

// user_id, currency, amount, reason
func airdropActionKey(batch string, line int) string {
	return fmt.Sprintf("airdrop:%s:%d", batch, line)
}

// airdrop grants every row once per batch; a rerun hits the ledger's action key and is skipped.
func airdrop(r io.Reader, batch string, grant func(input *services.AdjustBalanceInput) error) (int, error) {
	return readRecords(r, func(line int, record []string) error {
		input, err := parseAirdropRecord(record)
		if err != nil {
			return err
		}
		input.ActionKey = airdropActionKey(batch, line)
		return grant(input)
	})
}

func parseAirdropRecord(record []string) (*services.AdjustBalanceInput, error) {
	if len(record) < 3 {
		return nil, errRecordLength
	}

	currency, err := models.ParseCurrency(column(record, 1))
	if err != nil {
		return nil, err
	}

	amount, err := strconv.ParseInt(column(record, 2), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("amount: %w", err)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %d", amount)
	}

	userID := column(record, 0)
	if userID == "" {
		return nil, errors.New("missing user id")
	}

	return &services.AdjustBalanceInput{
		UserID:   userID,
		Currency: currency,
		Amount:   amount,
		Reason:   column(record, 3),
	}, nil
}

func inputFlag(value string) cli.Flag {
	return &cli.StringFlag{
		Name:  "input",
		Value: value,
	}
}

func openInput(c *cli.Context) (*os.File, error) {
	inputPath := c.String("input")
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return nil, err
	}
	return os.Open(inputPath)
}

func commandImportShop(injector *do.Injector) *cli.Command {
	return &cli.Command{
		Name:  "import-shop",
		Flags: []cli.Flag{inputFlag("./shop.csv")},
		Action: func(c *cli.Context) error {
			serviceShop, err := do.Invoke[*services.ServiceShop](injector)
			if err != nil {
				return err
			}

			file, err := openInput(c)
			if err != nil {
				return err
			}
			defer file.Close()

			ctx := context.Background()
			imported, err := readRecords(file, func(line int, record []string) error {
				item, err := parseShopRecord(record)
				if err != nil {
					return err
				}
				_, err = serviceShop.CreateItem(ctx, item)
				return err
			})
			if err != nil {
				return err
			}

			log.Println("Imported shop items:", imported)
			return nil
		},
	}
}

func commandImportGacha(injector *do.Injector) *cli.Command {
	return &cli.Command{
		Name:  "import-gacha",
		Flags: []cli.Flag{inputFlag("./gacha.csv")},
		Action: func(c *cli.Context) error {
			serviceGacha, err := do.Invoke[*services.ServiceGachaMachine](injector)
			if err != nil {
				return err
			}

			file, err := openInput(c)
			if err != nil {
				return err
			}
			defer file.Close()

			ctx := context.Background()
			imported, err := readRecords(file, func(line int, record []string) error {
				item, err := parseGachaRecord(record)
				if err != nil {
					return err
				}
				_, err = serviceGacha.CreateItem(ctx, item)
				return err
			})
			if err != nil {
				return err
			}

			log.Println("Imported gacha items:", imported)
			return nil
		},
	}
}

// commandAirdrop grants currency to every row of the file. Each grant is posted to the audit webhook.
func commandAirdrop(injector *do.Injector) *cli.Command {
	return &cli.Command{
		Name: "airdrop",
		Flags: []cli.Flag{
			inputFlag("./airdrop.csv"),
			&cli.StringFlag{
				Name:     "admin",
				Usage:    "discord id recorded as the granting admin",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "batch",
				Usage: "key shared by reruns of the same airdrop, defaults to the input file name",
			},
		},
		Action: func(c *cli.Context) error {
			serviceAdmin, err := do.Invoke[*services.ServiceAdmin](injector)
			if err != nil {
				return err
			}

			file, err := openInput(c)
			if err != nil {
				return err
			}
			defer file.Close()

			batch := c.String("batch")
			if batch == "" {
				batch = filepath.Base(c.String("input"))
			}

			ctx := context.Background()
			admin := &models.User{ID: c.String("admin"), IsAdmin: true}
			imported, err := airdrop(file, batch, func(input *services.AdjustBalanceInput) error {
				_, err := serviceAdmin.GrantCurrency(ctx, admin, input)
				return err
			})
			if err != nil {
				return err
			}

			log.Println("Airdrop grants:", imported)
			return nil
		},
	}
}
