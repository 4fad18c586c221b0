package catalog

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/webstorehq/storeadmin/internal/domain"
)

// StoreRepository handles tenant records.
type StoreRepository interface {
	Create(ctx context.Context, store *domain.Store) error
	GetByID(ctx context.Context, id string) (*domain.Store, error)
	// GetOwned returns the store only when the given user owns it.
	GetOwned(ctx context.Context, id, userID string) (*domain.Store, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Store, error)
	Update(ctx context.Context, store *domain.Store) error
	Delete(ctx context.Context, id string) error
	// HasCatalogRecords reports whether any product, category or
	// catalogue still references the store.
	HasCatalogRecords(ctx context.Context, storeID string) (bool, error)
}

// ProductFilter narrows product listings. A nil IsFeatured leaves the
// flag unconstrained; archived rows are excluded unless asked for.
type ProductFilter struct {
	IsFeatured      *bool
	IncludeArchived bool
	CategoryIDs     []string
	CatalogueIDs    []string
	CreatedAfter    *time.Time
	CreatedBefore   *time.Time
	Page            int
	PerPage         int
}

// ProductRepository handles product rows together with their owned
// images and membership links. Multi-row writes run in one database
// transaction so a failed step never leaves a half-replaced record.
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product, categories []domain.Category, catalogues []domain.Catalogue) error
	GetByID(ctx context.Context, storeID, id string) (*domain.Product, error)
	List(ctx context.Context, storeID string, f ProductFilter) ([]domain.Product, int64, error)
	// Replace overwrites scalar fields, both membership sets and the
	// whole image set (full-replace, not a diff).
	Replace(ctx context.Context, p *domain.Product, categories []domain.Category, catalogues []domain.Catalogue, images []domain.ProductImage) error
	Delete(ctx context.Context, storeID, id string) error
	StockCount(ctx context.Context, storeID string) (int64, error)
	Count(ctx context.Context, storeID string) (int64, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, c *domain.Category) error
	GetByID(ctx context.Context, storeID, id string) (*domain.Category, error)
	GetByIDs(ctx context.Context, storeID string, ids []string) ([]domain.Category, error)
	List(ctx context.Context, storeID string, isFeatured *bool, includeArchived bool) ([]domain.Category, error)
	Update(ctx context.Context, c *domain.Category) error
	Delete(ctx context.Context, storeID, id string) error
	Count(ctx context.Context, storeID string) (int64, error)
}

type CatalogueRepository interface {
	Create(ctx context.Context, c *domain.Catalogue) error
	GetByID(ctx context.Context, storeID, id string) (*domain.Catalogue, error)
	GetByIDs(ctx context.Context, storeID string, ids []string) ([]domain.Catalogue, error)
	List(ctx context.Context, storeID string, isFeatured *bool, includeArchived bool) ([]domain.Catalogue, error)
	Replace(ctx context.Context, c *domain.Catalogue, images []domain.CatalogueImage) error
	Delete(ctx context.Context, storeID, id string) error
	Count(ctx context.Context, storeID string) (int64, error)
}

// OrphanRepository tracks object keys pending reference (see the
// reconciliation sweep).
type OrphanRepository interface {
	Record(ctx context.Context, keys ...string) error
	Clear(ctx context.Context, keys []string) error
	ListOlderThan(ctx context.Context, cutoff time.Time) ([]domain.StorageOrphan, error)
	Delete(ctx context.Context, key string) error
	// Referenced reports whether any image record still points at key.
	Referenced(ctx context.Context, key string) (bool, error)
}

type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
	PruneBefore(ctx context.Context, cutoff time.Time) error
}

// ---------------------------------------------------------------------
// GORM implementations

type GormStoreRepository struct {
	db *gorm.DB
}

func NewGormStoreRepository(db *gorm.DB) *GormStoreRepository {
	return &GormStoreRepository{db: db}
}

func (r *GormStoreRepository) Create(ctx context.Context, store *domain.Store) error {
	return r.db.WithContext(ctx).Create(store).Error
}

func (r *GormStoreRepository) GetByID(ctx context.Context, id string) (*domain.Store, error) {
	var store domain.Store
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&store).Error
	if err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *GormStoreRepository) GetOwned(ctx context.Context, id, userID string) (*domain.Store, error) {
	var store domain.Store
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&store).Error
	if err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *GormStoreRepository) ListByUser(ctx context.Context, userID string) ([]domain.Store, error) {
	var stores []domain.Store
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&stores).Error
	return stores, err
}

func (r *GormStoreRepository) Update(ctx context.Context, store *domain.Store) error {
	return r.db.WithContext(ctx).Save(store).Error
}

func (r *GormStoreRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Store{}).Error
}

func (r *GormStoreRepository) HasCatalogRecords(ctx context.Context, storeID string) (bool, error) {
	db := r.db.WithContext(ctx)
	for _, model := range []interface{}{&domain.Product{}, &domain.Category{}, &domain.Catalogue{}} {
		var count int64
		if err := db.Model(model).Where("store_id = ?", storeID).Count(&count).Error; err != nil {
			return false, err
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) Create(ctx context.Context, p *domain.Product, categories []domain.Category, catalogues []domain.Catalogue) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(p).Error; err != nil {
			return err
		}
		if len(p.Images) > 0 {
			if err := tx.Create(&p.Images).Error; err != nil {
				return err
			}
		}
		if len(categories) > 0 {
			if err := tx.Model(p).Association("Categories").Append(&categories); err != nil {
				return err
			}
		}
		if len(catalogues) > 0 {
			if err := tx.Model(p).Association("Catalogues").Append(&catalogues); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormProductRepository) GetByID(ctx context.Context, storeID, id string) (*domain.Product, error) {
	var p domain.Product
	err := r.db.WithContext(ctx).
		Preload("Images").
		Preload("Categories").
		Preload("Catalogues").
		Where("id = ? AND store_id = ?", id, storeID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormProductRepository) List(ctx context.Context, storeID string, f ProductFilter) ([]domain.Product, int64, error) {
	db := r.db.WithContext(ctx).Model(&domain.Product{}).Where("store_id = ?", storeID)
	if !f.IncludeArchived {
		db = db.Where("is_archived = ?", false)
	}
	if f.IsFeatured != nil {
		db = db.Where("is_featured = ?", *f.IsFeatured)
	}
	if len(f.CategoryIDs) > 0 {
		db = db.Where("id IN (?)", r.db.Table("product_categories").
			Select("product_id").Where("category_id IN ?", f.CategoryIDs))
	}
	if len(f.CatalogueIDs) > 0 {
		db = db.Where("id IN (?)", r.db.Table("product_catalogues").
			Select("product_id").Where("catalogue_id IN ?", f.CatalogueIDs))
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *f.CreatedBefore)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = db.Preload("Images").Order("created_at DESC")
	if f.PerPage > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		db = db.Offset((page - 1) * f.PerPage).Limit(f.PerPage)
	}

	var products []domain.Product
	if err := db.Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *GormProductRepository) Replace(ctx context.Context, p *domain.Product, categories []domain.Category, catalogues []domain.Catalogue, images []domain.ProductImage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Select forces zero-valued fields (false flags, empty
		// description) to be written as well.
		err := tx.Model(&domain.Product{}).
			Where("id = ?", p.ID).
			Select("name", "price", "quantity", "description", "is_featured", "is_archived", "updated_at").
			Updates(p).Error
		if err != nil {
			return err
		}
		ref := &domain.Product{ID: p.ID}
		if err := tx.Model(ref).Association("Categories").Replace(&categories); err != nil {
			return err
		}
		if err := tx.Model(ref).Association("Catalogues").Replace(&catalogues); err != nil {
			return err
		}
		// Full-replace of the image set. Running delete and insert in
		// the same transaction keeps a failed insert from leaving the
		// product imageless.
		if err := tx.Where("product_id = ?", p.ID).Delete(&domain.ProductImage{}).Error; err != nil {
			return err
		}
		if len(images) > 0 {
			if err := tx.Create(&images).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormProductRepository) Delete(ctx context.Context, storeID, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM product_categories WHERE product_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM product_catalogues WHERE product_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&domain.ProductImage{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND store_id = ?", id, storeID).Delete(&domain.Product{}).Error
	})
}

func (r *GormProductRepository) StockCount(ctx context.Context, storeID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("store_id = ? AND is_archived = ?", storeID, false).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	return total, err
}

func (r *GormProductRepository) Count(ctx context.Context, storeID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("store_id = ?", storeID).Count(&count).Error
	return count, err
}

type GormCategoryRepository struct {
	db *gorm.DB
}

func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

func (r *GormCategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *GormCategoryRepository) GetByID(ctx context.Context, storeID, id string) (*domain.Category, error) {
	var c domain.Category
	err := r.db.WithContext(ctx).
		Where("id = ? AND store_id = ?", id, storeID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormCategoryRepository) GetByIDs(ctx context.Context, storeID string, ids []string) ([]domain.Category, error) {
	var cats []domain.Category
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND id IN ?", storeID, ids).
		Find(&cats).Error
	return cats, err
}

func (r *GormCategoryRepository) List(ctx context.Context, storeID string, isFeatured *bool, includeArchived bool) ([]domain.Category, error) {
	db := r.db.WithContext(ctx).Where("store_id = ?", storeID)
	if isFeatured != nil {
		db = db.Where("is_featured = ?", *isFeatured)
	}
	if !includeArchived {
		db = db.Where("is_archived = ?", false)
	}
	var cats []domain.Category
	err := db.Order("created_at DESC").Find(&cats).Error
	return cats, err
}

func (r *GormCategoryRepository) Update(ctx context.Context, c *domain.Category) error {
	return r.db.WithContext(ctx).Model(&domain.Category{}).
		Where("id = ?", c.ID).
		Select("name", "is_featured", "is_archived", "updated_at").
		Updates(c).Error
}

func (r *GormCategoryRepository) Delete(ctx context.Context, storeID, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM product_categories WHERE category_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND store_id = ?", id, storeID).Delete(&domain.Category{}).Error
	})
}

func (r *GormCategoryRepository) Count(ctx context.Context, storeID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Category{}).
		Where("store_id = ?", storeID).Count(&count).Error
	return count, err
}

type GormCatalogueRepository struct {
	db *gorm.DB
}

func NewGormCatalogueRepository(db *gorm.DB) *GormCatalogueRepository {
	return &GormCatalogueRepository{db: db}
}

func (r *GormCatalogueRepository) Create(ctx context.Context, c *domain.Catalogue) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(c).Error; err != nil {
			return err
		}
		if len(c.Images) > 0 {
			if err := tx.Create(&c.Images).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormCatalogueRepository) GetByID(ctx context.Context, storeID, id string) (*domain.Catalogue, error) {
	var c domain.Catalogue
	err := r.db.WithContext(ctx).
		Preload("Images").
		Where("id = ? AND store_id = ?", id, storeID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormCatalogueRepository) GetByIDs(ctx context.Context, storeID string, ids []string) ([]domain.Catalogue, error) {
	var cats []domain.Catalogue
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND id IN ?", storeID, ids).
		Find(&cats).Error
	return cats, err
}

func (r *GormCatalogueRepository) List(ctx context.Context, storeID string, isFeatured *bool, includeArchived bool) ([]domain.Catalogue, error) {
	db := r.db.WithContext(ctx).Where("store_id = ?", storeID)
	if isFeatured != nil {
		db = db.Where("is_featured = ?", *isFeatured)
	}
	if !includeArchived {
		db = db.Where("is_archived = ?", false)
	}
	var cats []domain.Catalogue
	err := db.Preload("Images").Order("created_at DESC").Find(&cats).Error
	return cats, err
}

func (r *GormCatalogueRepository) Replace(ctx context.Context, c *domain.Catalogue, images []domain.CatalogueImage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&domain.Catalogue{}).
			Where("id = ?", c.ID).
			Select("label", "is_featured", "is_archived", "updated_at").
			Updates(c).Error
		if err != nil {
			return err
		}
		if err := tx.Where("catalogue_id = ?", c.ID).Delete(&domain.CatalogueImage{}).Error; err != nil {
			return err
		}
		if len(images) > 0 {
			if err := tx.Create(&images).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormCatalogueRepository) Delete(ctx context.Context, storeID, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM product_catalogues WHERE catalogue_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Where("catalogue_id = ?", id).Delete(&domain.CatalogueImage{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND store_id = ?", id, storeID).Delete(&domain.Catalogue{}).Error
	})
}

func (r *GormCatalogueRepository) Count(ctx context.Context, storeID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Catalogue{}).
		Where("store_id = ?", storeID).Count(&count).Error
	return count, err
}

type GormOrphanRepository struct {
	db *gorm.DB
}

func NewGormOrphanRepository(db *gorm.DB) *GormOrphanRepository {
	return &GormOrphanRepository{db: db}
}

func (r *GormOrphanRepository) Record(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	rows := make([]domain.StorageOrphan, 0, len(keys))
	now := time.Now()
	for _, key := range keys {
		rows = append(rows, domain.StorageOrphan{Key: key, RecordedAt: now})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

func (r *GormOrphanRepository) Clear(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("key IN ?", keys).
		Delete(&domain.StorageOrphan{}).Error
}

func (r *GormOrphanRepository) ListOlderThan(ctx context.Context, cutoff time.Time) ([]domain.StorageOrphan, error) {
	var rows []domain.StorageOrphan
	err := r.db.WithContext(ctx).
		Where("recorded_at < ?", cutoff).
		Order("recorded_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *GormOrphanRepository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Where("key = ?", key).Delete(&domain.StorageOrphan{}).Error
}

func (r *GormOrphanRepository) Referenced(ctx context.Context, key string) (bool, error) {
	db := r.db.WithContext(ctx)
	var count int64
	if err := db.Model(&domain.ProductImage{}).Where("key = ?", key).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}
	if err := db.Model(&domain.CatalogueImage{}).Where("key = ?", key).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

type GormAuditRepository struct {
	db *gorm.DB
}

func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

func (r *GormAuditRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *GormAuditRepository) PruneBefore(ctx context.Context, cutoff time.Time) error {
	return r.db.WithContext(ctx).
		Where("opt_time < ?", cutoff).
		Delete(&domain.AuditLog{}).Error
}
