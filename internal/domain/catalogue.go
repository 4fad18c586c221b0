package domain

import "time"

// Catalogue is a labeled grouping of products, distinct from Category.
// It carries a single billboard image.
type Catalogue struct {
	ID         string           `gorm:"primaryKey;size:36" json:"id"`
	StoreID    string           `gorm:"index;size:36" json:"store_id"`
	Label      string           `gorm:"index;size:200" json:"label"`
	IsFeatured bool             `json:"is_featured"`
	IsArchived bool             `gorm:"index" json:"is_archived"`
	Images     []CatalogueImage `gorm:"constraint:OnDelete:CASCADE" json:"images"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func (Catalogue) TableName() string {
	return "catalogues"
}

type CatalogueImage struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	CatalogueID string    `gorm:"index;size:36" json:"catalogue_id"`
	URL         string    `gorm:"size:1024" json:"url"`
	Key         string    `gorm:"index;size:512" json:"key"`
	CreatedAt   time.Time `json:"created_at"`
}

func (CatalogueImage) TableName() string {
	return "catalogue_images"
}
