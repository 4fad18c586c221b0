package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	StoreID     string          `gorm:"index;size:36" json:"store_id"`
	Name        string          `gorm:"index;size:200" json:"name"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2)" json:"price"`
	Quantity    int             `json:"quantity"`
	Description string          `gorm:"size:2000" json:"description,omitempty"`
	IsFeatured  bool            `json:"is_featured"`
	IsArchived  bool            `gorm:"index" json:"is_archived"`
	Images      []ProductImage  `gorm:"constraint:OnDelete:CASCADE" json:"images"`
	Categories  []Category      `gorm:"many2many:product_categories" json:"categories,omitempty"`
	Catalogues  []Catalogue     `gorm:"many2many:product_catalogues" json:"catalogues,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

// ProductImage is an owned storage-object reference. Key is the only
// handle needed to delete the underlying object.
type ProductImage struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ProductID string    `gorm:"index;size:36" json:"product_id"`
	URL       string    `gorm:"size:1024" json:"url"`
	Key       string    `gorm:"index;size:512" json:"key"`
	CreatedAt time.Time `json:"created_at"`
}

func (ProductImage) TableName() string {
	return "product_images"
}
