package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"hamsterhub/internal/container"
	"hamsterhub/internal/datastore"
	"hamsterhub/internal/datastore/redis_store"
	"hamsterhub/internal/models"
	"hamsterhub/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
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

const ledgerPageSize = 1000

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
		Name: "export",
		Commands: []*cli.Command{
			commandExportLeaderboard(injector),
			commandExportLedger(injector),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func output(c *cli.Context) (io.WriteCloser, error) {
	path := c.String("output")
	if path == "" || path == "-" {
		return os.Stdout, nil
	}
	return os.Create(path)
}

func writeLeaderboard(w io.Writer, items []*models.LeaderboardItem) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"rank", "user_id", "username", "score"}); err != nil {
		return err
	}

	for i, item := range items {
		record := []string{
			strconv.Itoa(i + 1),
			item.UserId,
			item.Username,
			strconv.FormatFloat(item.Score, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func ledgerRecord(transaction *models.CurrencyTransaction) []string {
	return []string{
		strconv.FormatInt(transaction.ID, 10),
		transaction.CreatedAt.UTC().Format(time.RFC3339),
		transaction.UserID,
		transaction.Currency.String(),
		strconv.FormatInt(transaction.Amount, 10),
		strconv.FormatInt(transaction.BalanceAfter, 10),
		transaction.Action,
	}
}

func commandExportLeaderboard(injector *do.Injector) *cli.Command {
	return &cli.Command{
		Name: "leaderboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "board", Value: services.LEADERBOARD_HAMSTERCOIN},
			&cli.IntFlag{Name: "top", Value: 100},
			&cli.StringFlag{Name: "output"},
		},
		Action: func(c *cli.Context) error {
			board := c.String("board")
			if !services.IsLeaderboard(board) {
				return fmt.Errorf("unknown board %q", board)
			}

			dbRedis, err := do.InvokeNamed[redis.UniversalClient](injector, "redis-db")
			if err != nil {
				return err
			}

			serviceUser, err := do.Invoke[*services.ServiceUser](injector)
			if err != nil {
				return err
			}

			ctx := context.Background()
			items, err := redis_store.GetLeaderboard(ctx, dbRedis, board, c.Int("top"))
			if err != nil {
				return err
			}

			ids := make([]string, 0, len(items))
			for _, item := range items {
				ids = append(ids, item.UserId)
			}
			users, err := serviceUser.FindUsersByIDs(ctx, ids)
			if err != nil {
				return err
			}
			for _, item := range items {
				if u, ok := users[item.UserId]; ok {
					item.Username = u.DisplayName()
				}
			}

			w, err := output(c)
			if err != nil {
				return err
			}
			defer w.Close()

			return writeLeaderboard(w, items)
		},
	}
}

func commandExportLedger(injector *do.Injector) *cli.Command {
	return &cli.Command{
		Name:  "ledger",
		Usage: "dump every currency movement for auditing",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output"},
		},
		Action: func(c *cli.Context) error {
			db, err := do.InvokeNamed[*bun.DB](injector, "db-readonly")
			if err != nil {
				return err
			}

			w, err := output(c)
			if err != nil {
				return err
			}
			defer w.Close()

			writer := csv.NewWriter(w)
			if err := writer.Write([]string{"id", "created_at", "user_id", "currency", "amount", "balance_after", "action"}); err != nil {
				return err
			}

			ctx := context.Background()
			var afterID int64
			total := 0
			for {
				transactions, err := datastore.ListTransactionsAfter(ctx, db, afterID, ledgerPageSize)
				if err != nil {
					return err
				}
				if len(transactions) == 0 {
					break
				}

				for _, transaction := range transactions {
					if err := writer.Write(ledgerRecord(transaction)); err != nil {
						return err
					}
				}
				afterID = transactions[len(transactions)-1].ID
				total += len(transactions)
				writer.Flush()
			}

			writer.Flush()
			log.Println("Exported ledger rows:", total)
			return writer.Error()
		},
	}
}
