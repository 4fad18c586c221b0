package domain

import "time"

type Category struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	StoreID    string    `gorm:"index;size:36" json:"store_id"`
	Name       string    `gorm:"index;size:200" json:"name"`
	IsFeatured bool      `json:"is_featured"`
	IsArchived bool      `gorm:"index" json:"is_archived"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Category) TableName() string {
	return "categories"
}
