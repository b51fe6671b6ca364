package models

import (
	"time"

	"github.com/uptrace/bun"
)

type ShopItem struct {
	bun.BaseModel `bun:"table:shop_item"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	Name          string    `bun:"name" json:"name"`
	Description   string    `bun:"description" json:"description"`
	Price         int64     `bun:"price" json:"price"`
	Currency      Currency  `bun:"currency" json:"currency"`
	InStock       bool      `bun:"in_stock" json:"in_stock"`
	FileURL       *string   `bun:"file_url" json:"file_url"`
	ImageURL      *string   `bun:"image_url" json:"image_url"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,default:current_timestamp" json:"updated_at"`
}

// PurchaseHistory is written once at sale time and never updated.
type PurchaseHistory struct {
	bun.BaseModel `bun:"table:purchase_history"`
	ID            string    `bun:"id,pk" json:"id"`
	UserID        string    `bun:"user_id" json:"user_id"`
	ItemID        int64     `bun:"item_id" json:"item_id"`
	ItemName      string    `bun:"item_name" json:"item_name"`
	Price         int64     `bun:"price" json:"price"`
	Currency      Currency  `bun:"currency" json:"currency"`
	FileURL       *string   `bun:"file_url" json:"file_url"`
	PurchasedAt   time.Time `bun:"purchased_at,default:current_timestamp" json:"purchased_at"`
}

func PurchaseAction(purchaseID string) string {
	return "purchase:" + purchaseID
}
