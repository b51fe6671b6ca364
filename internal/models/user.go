package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:user"`
	ID            string    `bun:"id,pk" json:"id"`
	Username      string    `bun:"username" json:"username"`
	GlobalName    string    `bun:"global_name" json:"global_name"`
	Avatar        *string   `bun:"avatar" json:"avatar"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at" json:"updated_at"`

	IsNewUser bool       `bun:"-" json:"is_new_user"`
	IsAdmin   bool       `bun:"-" json:"is_admin"`
	Balances  []*Account `bun:"-" json:"balances,omitempty"`
}

// DisplayName prefers the Discord global name over the unique username.
func (u *User) DisplayName() string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// SessionUser only use in middleware
type SessionUser struct {
	ID         string  `json:"id"`
	Username   string  `json:"username"`
	GlobalName string  `json:"global_name"`
	Avatar     *string `json:"avatar"`
}
