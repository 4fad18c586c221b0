package domain

import "time"

// Store is the tenant boundary. Every catalog record references
// exactly one store, and mutations require the caller to own it.
type Store struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"index;size:128" json:"user_id"`
	Name      string    `gorm:"size:200" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Store) TableName() string {
	return "stores"
}
