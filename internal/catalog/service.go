package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/webstorehq/storeadmin/internal/domain"
	"github.com/webstorehq/storeadmin/pkg/common"
)

// ObjectStore is the slice of the storage gateway the orchestrator
// needs: best-effort, idempotent object deletion.
type ObjectStore interface {
	DeleteObject(ctx context.Context, key string) error
}

type ImageInput struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

type ProductInput struct {
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Quantity     *int            `json:"quantity"`
	Description  string          `json:"description"`
	CategoryIDs  []string        `json:"categoryIds"`
	CatalogueIDs []string        `json:"catalogueIds"`
	Images       []ImageInput    `json:"images"`
	IsFeatured   bool            `json:"isFeatured"`
	IsArchived   bool            `json:"isArchived"`
}

type CategoryInput struct {
	Name       string `json:"name"`
	IsFeatured bool   `json:"isFeatured"`
	IsArchived bool   `json:"isArchived"`
}

type CatalogueInput struct {
	Label      string       `json:"label"`
	Images     []ImageInput `json:"images"`
	IsFeatured bool         `json:"isFeatured"`
	IsArchived bool         `json:"isArchived"`
}

type StoreSummary struct {
	StockCount     int64 `json:"stock_count"`
	ProductCount   int64 `json:"product_count"`
	CategoryCount  int64 `json:"category_count"`
	CatalogueCount int64 `json:"catalogue_count"`
}

// Options tunes the mutation workflows.
type Options struct {
	MaxProductImages int
	DeleteTimeout    time.Duration
	OrphanGrace      time.Duration
	SweepWorkers     int
}

// Service is the mutation orchestrator: it sequences ownership checks,
// validation, object-store cleanup and repository writes for every
// entity mutation, and serves the read side on top of the same
// repositories.
type Service struct {
	stores     StoreRepository
	products   ProductRepository
	categories CategoryRepository
	catalogues CatalogueRepository
	orphans    OrphanRepository
	audit      AuditRepository
	store      ObjectStore
	bus        EventBus.Bus

	maxProductImages int
	deleteTimeout    time.Duration
	orphanGrace      time.Duration
	sweepWorkers     int
}

func NewService(
	stores StoreRepository,
	products ProductRepository,
	categories CategoryRepository,
	catalogues CatalogueRepository,
	orphans OrphanRepository,
	audit AuditRepository,
	store ObjectStore,
	bus EventBus.Bus,
	opts Options,
) *Service {
	if opts.MaxProductImages <= 0 {
		opts.MaxProductImages = 5
	}
	if opts.DeleteTimeout <= 0 {
		opts.DeleteTimeout = 10 * time.Second
	}
	if opts.OrphanGrace <= 0 {
		opts.OrphanGrace = time.Hour
	}
	if opts.SweepWorkers <= 0 {
		opts.SweepWorkers = 8
	}
	return &Service{
		stores:           stores,
		products:         products,
		categories:       categories,
		catalogues:       catalogues,
		orphans:          orphans,
		audit:            audit,
		store:            store,
		bus:              bus,
		maxProductImages: opts.MaxProductImages,
		deleteTimeout:    opts.DeleteTimeout,
		orphanGrace:      opts.OrphanGrace,
		sweepWorkers:     opts.SweepWorkers,
	}
}

// NewGormService wires the service with GORM repositories on db.
func NewGormService(db *gorm.DB, store ObjectStore, bus EventBus.Bus, opts Options) *Service {
	return NewService(
		NewGormStoreRepository(db),
		NewGormProductRepository(db),
		NewGormCategoryRepository(db),
		NewGormCatalogueRepository(db),
		NewGormOrphanRepository(db),
		NewGormAuditRepository(db),
		store, bus, opts,
	)
}

// ---------------------------------------------------------------------
// Stores

// AuthorizeStore is the ownership guard. It must run before any
// catalog write. A store that exists but belongs to someone else is
// indistinguishable from one that does not: both yield ErrNotOwner.
func (s *Service) AuthorizeStore(ctx context.Context, userID, storeID string) (*domain.Store, error) {
	store, err := s.stores.GetOwned(ctx, storeID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotOwner
		}
		return nil, errors.Wrap(err, "authorize store")
	}
	return store, nil
}

func (s *Service) CreateStore(ctx context.Context, userID, name string) (*domain.Store, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name", "name is required")
	}
	now := time.Now()
	store := &domain.Store{
		ID:        common.UUID(),
		UserID:    userID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.stores.Create(ctx, store); err != nil {
		return nil, errors.Wrap(err, "create store")
	}
	s.publish(userID, store.ID, "store", store.ID, ActionCreated)
	return store, nil
}

func (s *Service) ListStores(ctx context.Context, userID string) ([]domain.Store, error) {
	return s.stores.ListByUser(ctx, userID)
}

func (s *Service) GetStore(ctx context.Context, userID, storeID string) (*domain.Store, error) {
	return s.AuthorizeStore(ctx, userID, storeID)
}

func (s *Service) UpdateStore(ctx context.Context, userID, storeID, name string) (*domain.Store, error) {
	store, err := s.AuthorizeStore(ctx, userID, storeID)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name", "name is required")
	}
	store.Name = name
	store.UpdatedAt = time.Now()
	if err := s.stores.Update(ctx, store); err != nil {
		return nil, errors.Wrap(err, "update store")
	}
	s.publish(userID, storeID, "store", storeID, ActionUpdated)
	return store, nil
}

// DeleteStore refuses to remove a store that still has catalog
// records; callers must empty it first.
func (s *Service) DeleteStore(ctx context.Context, userID, storeID string) error {
	if _, err := s.AuthorizeStore(ctx, userID, storeID); err != nil {
		return err
	}
	busy, err := s.stores.HasCatalogRecords(ctx, storeID)
	if err != nil {
		return errors.Wrap(err, "check store records")
	}
	if busy {
		return ErrStoreNotEmpty
	}
	if err := s.stores.Delete(ctx, storeID); err != nil {
		return errors.Wrap(err, "delete store")
	}
	s.publish(userID, storeID, "store", storeID, ActionDeleted)
	return nil
}

func (s *Service) Summary(ctx context.Context, userID, storeID string) (*StoreSummary, error) {
	if _, err := s.AuthorizeStore(ctx, userID, storeID); err != nil {
		return nil, err
	}
	summary := &StoreSummary{}
	var err error
	if summary.StockCount, err = s.products.StockCount(ctx, storeID); err != nil {
		return nil, errors.Wrap(err, "stock count")
	}
	if summary.ProductCount, err = s.products.Count(ctx, storeID); err != nil {
		return nil, errors.Wrap(err, "product count")
	}
	if summary.CategoryCount, err = s.categories.Count(ctx, storeID); err != nil {
		return nil, errors.Wrap(err, "category count")
	}
	if summary.CatalogueCount, err = s.catalogues.Count(ctx, storeID); err != nil {
		return nil, errors.Wrap(err, "catalogue count")
	}
	return summary, nil
}

// StockCount sums quantity over the store's non-archived products.
func (s *Service) StockCount(ctx context.Context, storeID string) (int64, error) {
	return s.products.StockCount(ctx, storeID)
}

// ---------------------------------------------------------------------
// Products

func (s *Service) validateProduct(in *ProductInput) error {
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		return invalid("name", "name is required")
	case !in.Price.IsPositive():
		return invalid("price", "price must be greater than zero")
	case in.Quantity == nil:
		return invalid("quantity", "quantity is required")
	case *in.Quantity < 0:
		return invalid("quantity", "quantity must be zero or more")
	case len(in.CategoryIDs) == 0:
		return invalid("categoryIds", "at least one category is required")
	case len(in.CatalogueIDs) == 0:
		return invalid("catalogueIds", "at least one catalogue is required")
	case len(in.Images) > s.maxProductImages:
		return invalid("images", fmt.Sprintf("products are limited to %d images", s.maxProductImages))
	}
	for _, img := range in.Images {
		if img.URL == "" || img.Key == "" {
			return invalid("images", "each image needs url and key")
		}
	}
	return nil
}

func (s *Service) resolveCategories(ctx context.Context, storeID string, ids []string) ([]domain.Category, error) {
	ids = uniqueStrings(ids)
	cats, err := s.categories.GetByIDs(ctx, storeID, ids)
	if err != nil {
		return nil, errors.Wrap(err, "resolve categories")
	}
	if len(cats) != len(ids) {
		return nil, invalid("categoryIds", "unknown category id")
	}
	return cats, nil
}

func (s *Service) resolveCatalogues(ctx context.Context, storeID string, ids []string) ([]domain.Catalogue, error) {
	ids = uniqueStrings(ids)
	cats, err := s.catalogues.GetByIDs(ctx, storeID, ids)
	if err != nil {
		return nil, errors.Wrap(err, "resolve catalogues")
	}
	if len(cats) != len(ids) {
		return nil, invalid("catalogueIds", "unknown catalogue id")
	}
	return cats, nil
}

func (s *Service) CreateProduct(ctx context.Context, userID, storeID string, in ProductInput) (*domain.Product, error) {
	if err := s.validateProduct(&in); err != nil {
		return nil, err
	}
	if _, err := s.AuthorizeStore(ctx, userID, storeID); err != nil {
		return nil, err
	}
	categories, err := s.resolveCategories(ctx, storeID, in.CategoryIDs)
	if err != nil {
		return nil, err
	}
	catalogues, err := s.resolveCatalogues(ctx, storeID, in.CatalogueIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	p := &domain.Product{
		ID:          common.UUID(),
		StoreID:     storeID,
		Name:        in.Name,
		Price:       in.Price,
		Quantity:    *in.Quantity,
		Description: in.Description,
		IsFeatured:  in.IsFeatured,
		IsArchived:  in.IsArchived,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	p.Images = productImageRows(p.ID, in.Images)

	if err := s.products.Create(ctx, p, categories, catalogues); err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	s.clearOrphans(ctx, imageKeys(in.Images))
	s.publish(userID, storeID, "product", p.ID, ActionCreated)
	return s.products.GetByID(ctx, storeID, p.ID)
}

// UpdateProduct is a full-replace: scalars, both membership sets and
// the image set all end up exactly as supplied. Keys dropped from the
// image set are handed to the orphan sweep rather than deleted inline.
func (s *Service) UpdateProduct(ctx context.Context, userID, storeID, productID string, in ProductInput) (*domain.Product, error) {
	if _, err := s.AuthorizeStore(ctx, userID, storeID); err != nil {
		return nil, err
	}
	existing, err := s.products.GetByID(ctx, storeID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "load product")
	}
	if err := s.validateProduct(&in); err != nil {
		return nil, err
	}
	categories, err := s.resolveCategories(ctx, storeID, in.CategoryIDs)
	if err != nil {
		return nil, err
	}
	catalogues, err := s.resolveCatalogues(ctx, storeID, in.CatalogueIDs)
	if err != nil {
		return nil, err
	}

	p := &domain.Product{
		ID:          productID,
		StoreID:     storeID,
		Name:        in.Name,
		Price:       in.Price,
		Quantity:    *in.Quantity,
		Description: in.Description,
		IsFeatured:  in.IsFeatured,
		IsArchived:  in.IsArchived,
		UpdatedAt:   time.Now(),
	}
	images := productImageRows(productID, in.Images)

	if err := s.products.Replace(ctx, p, categories, catalogues, images); err != nil {
		return nil, errors.Wrap(err, "replace product")
	}

	newKeys := imageKeys(in.Images)
	s.clearOrphans(ctx, newKeys)
	if dropped := droppedKeys(productKeys(existing.Images), newKeys); len(dropped) > 0 {
		if err := s.orphans.Record(ctx, dropped...); err != nil {
			zap.L().Warn("failed to record dropped image keys", zap.Error(err))
		}
	}

	s.publish(userID, storeID, "product", productID, ActionUpdated)
	return s.products.GetByID(ctx, storeID, productID)
}

// DeleteProduct releases the owned objects first, then removes the
// record with its image rows and membership links. Failed object
// deletions are collected as warnings and never block the record
// delete; a stuck external object costs less than an undeletable
// product.
func (s *Service) DeleteProduct(ctx context.Context, userID, storeID, productID string) ([]string, error) {
	if _, err := s.AuthorizeStore(ctx, userID, storeID); err != nil {
		return nil, err
	}
	p, err := s.products.GetByID(ctx, storeID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "load product")
	}

	warnings := s.deleteObjects(ctx, productKeys(p.Images))

	if err := s.products.Delete(ctx, storeID, productID); err != nil {
		return warnings, errors.Wrap(err, "delete product")
	}
	s.publish(userID, storeID, "product", productID, ActionDeleted)
	return warnings, nil
}

func (s *Service) GetProduct(ctx context.Context, storeID, productID string) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, storeID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *Service) ListProducts(ctx context.Context, storeID string, f ProductFilter) ([]domain.Product, int64, error) {
	return s.products.List(ctx, storeID, f)
}

// ---------------------------------------------------------------------
// Categories

func validateCategory(in *CategoryInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return invalid("name", "name is required")
	}
	return nil
}

func (s *Service) CreateCategory(ctx context.Context, userID, storeID string, in CategoryInput) (*domain.Category, error) {
	if err := validateCategory(&in); err != nil {
		return nil, err
	}
	if _, err := s.AuthorizeStore(ctx, userID, storeID); err != nil {
		return nil, err
	}
	now := time.Now()
	c := &domain.Category{
		ID:         common.UUID(),
		StoreID:    storeID,
		Name:       in.Name,
		IsFeatured: in.IsFeatured,
		IsArchived: in.IsArchived,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, errors.Wrap(err, "create category")
	}
	s.publish(userID, storeID, "category", c.ID, ActionCreated)
	return c, nil
}

func (s *Service) UpdateCategory(ctx context.Context, userID, storeID, categoryID string, in CategoryInput) (*domain.Category, error) {
	if _, err := s.AuthorizeStore(ctx, userID, storeID); err != nil {
		return nil, err
	}
	if _, err := s.GetCategory(ctx, storeID, categoryID); err != nil {
		return nil, err
	}
	if err := validateCategory(&in); err != nil {
		return nil, err
	}
	c := &domain.Category{
		ID:         categoryID,
		StoreID:    storeID,
		Name:       in.Name,
		IsFeatured: in.IsFeatured,
		IsArchived: in.IsArchived,
		UpdatedAt:  time.Now(),
	}
	if err := s.categories.Update(ctx, c); err != nil {
		return nil, errors.Wrap(err, "update category")
	}
	s.publish(userID, storeID, "category", categoryID, ActionUpdated)
	return s.GetCategory(ctx, storeID, categoryID)
}

// DeleteCategory removes the category and its membership links.
// Products linked to it stay alive; only the links go.
func (s *Service) DeleteCategory(ctx context.Context, userID, storeID, categoryID string) error {
	if _, err := s.AuthorizeStore(ctx, userID, storeID); err != nil {
		return err
	}
	if _, err := s.GetCategory(ctx, storeID, categoryID); err != nil {
		return err
	}
	if err := s.categories.Delete(ctx, storeID, categoryID); err != nil {
		return errors.Wrap(err, "delete category")
	}
	s.publish(userID, storeID, "category", categoryID, ActionDeleted)
	return nil
}

func (s *Service) GetCategory(ctx context.Context, storeID, categoryID string) (*domain.Category, error) {
	c, err := s.categories.GetByID(ctx, storeID, categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *Service) ListCategories(ctx context.Context, storeID string, isFeatured *bool, includeArchived bool) ([]domain.Category, error) {
	return s.categories.List(ctx, storeID, isFeatured, includeArchived)
}

// ---------------------------------------------------------------------
// Catalogues

func validateCatalogue(in *CatalogueInput) error {
	in.Label = strings.TrimSpace(in.Label)
	switch {
	case in.Label == "":
		return invalid("label", "label is required")
	case len(in.Images) == 0:
		return invalid("images", "an image is required")
	case len(in.Images) > 1:
		return invalid("images", "catalogues are limited to 1 image")
	}
	for _, img := range in.Images {
		if img.URL == "" || img.Key == "" {
			return invalid("images", "each image needs url and key")
		}
	}
	return nil
}

func (s *Service) CreateCatalogue(ctx context.Context, userID, storeID string, in CatalogueInput) (*domain.Catalogue, error) {
	if err := validateCatalogue(&in); err != nil {
		return nil, err
	}
	if _, err := s.AuthorizeStore(ctx, userID, storeID); err != nil {
		return nil, err
	}
	now := time.Now()
	c := &domain.Catalogue{
		ID:         common.UUID(),
		StoreID:    storeID,
		Label:      in.Label,
		IsFeatured: in.IsFeatured,
		IsArchived: in.IsArchived,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	c.Images = catalogueImageRows(c.ID, in.Images)
	if err := s.catalogues.Create(ctx, c); err != nil {
		return nil, errors.Wrap(err, "create catalogue")
	}
	s.clearOrphans(ctx, imageKeys(in.Images))
	s.publish(userID, storeID, "catalogue", c.ID, ActionCreated)
	return s.GetCatalogue(ctx, storeID, c.ID)
}

func (s *Service) UpdateCatalogue(ctx context.Context, userID, storeID, catalogueID string, in CatalogueInput) (*domain.Catalogue, error) {
	if _, err := s.AuthorizeStore(ctx, userID, storeID); err != nil {
		return nil, err
	}
	existing, err := s.GetCatalogue(ctx, storeID, catalogueID)
	if err != nil {
		return nil, err
	}
	if err := validateCatalogue(&in); err != nil {
		return nil, err
	}
	c := &domain.Catalogue{
		ID:         catalogueID,
		StoreID:    storeID,
		Label:      in.Label,
		IsFeatured: in.IsFeatured,
		IsArchived: in.IsArchived,
		UpdatedAt:  time.Now(),
	}
	images := catalogueImageRows(catalogueID, in.Images)
	if err := s.catalogues.Replace(ctx, c, images); err != nil {
		return nil, errors.Wrap(err, "replace catalogue")
	}

	newKeys := imageKeys(in.Images)
	s.clearOrphans(ctx, newKeys)
	if dropped := droppedKeys(catalogueKeys(existing.Images), newKeys); len(dropped) > 0 {
		if err := s.orphans.Record(ctx, dropped...); err != nil {
			zap.L().Warn("failed to record dropped image keys", zap.Error(err))
		}
	}

	s.publish(userID, storeID, "catalogue", catalogueID, ActionUpdated)
	return s.GetCatalogue(ctx, storeID, catalogueID)
}

func (s *Service) DeleteCatalogue(ctx context.Context, userID, storeID, catalogueID string) ([]string, error) {
	if _, err := s.AuthorizeStore(ctx, userID, storeID); err != nil {
		return nil, err
	}
	c, err := s.GetCatalogue(ctx, storeID, catalogueID)
	if err != nil {
		return nil, err
	}

	warnings := s.deleteObjects(ctx, catalogueKeys(c.Images))

	if err := s.catalogues.Delete(ctx, storeID, catalogueID); err != nil {
		return warnings, errors.Wrap(err, "delete catalogue")
	}
	s.publish(userID, storeID, "catalogue", catalogueID, ActionDeleted)
	return warnings, nil
}

func (s *Service) GetCatalogue(ctx context.Context, storeID, catalogueID string) (*domain.Catalogue, error) {
	c, err := s.catalogues.GetByID(ctx, storeID, catalogueID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *Service) ListCatalogues(ctx context.Context, storeID string, isFeatured *bool, includeArchived bool) ([]domain.Catalogue, error) {
	return s.catalogues.List(ctx, storeID, isFeatured, includeArchived)
}

// ---------------------------------------------------------------------
// Object lifecycle

// RecordPendingUpload marks a freshly issued upload key as
// unreferenced. The first create/update that uses the key clears the
// mark; the sweep reclaims keys nobody claims within the grace period.
func (s *Service) RecordPendingUpload(ctx context.Context, key string) {
	if err := s.orphans.Record(ctx, key); err != nil {
		zap.L().Warn("failed to record pending upload", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) clearOrphans(ctx context.Context, keys []string) {
	if err := s.orphans.Clear(ctx, keys); err != nil {
		zap.L().Warn("failed to clear orphan marks", zap.Error(err))
	}
}

// deleteObjects fans out object deletions. Each call gets its own
// timeout; failures are logged and collected, never fatal. The fan-out
// detaches from request cancellation so an aborting client cannot
// strand half-issued deletions.
func (s *Service) deleteObjects(ctx context.Context, keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	base := context.WithoutCancel(ctx)

	var mu sync.Mutex
	var warnings []string

	g := new(errgroup.Group)
	g.SetLimit(4)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(base, s.deleteTimeout)
			defer cancel()
			if err := s.store.DeleteObject(cctx, key); err != nil {
				zap.L().Warn("object deletion failed",
					zap.String("key", key),
					zap.Error(err))
				mu.Lock()
				warnings = append(warnings, fmt.Sprintf("object %s not deleted: %v", key, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return warnings
}

// SweepOrphans reclaims objects whose keys have been unreferenced for
// longer than the grace period. Keys that gained a reference in the
// meantime only lose their orphan mark.
func (s *Service) SweepOrphans(ctx context.Context) error {
	cutoff := time.Now().Add(-s.orphanGrace)
	rows, err := s.orphans.ListOlderThan(ctx, cutoff)
	if err != nil {
		return errors.Wrap(err, "list orphans")
	}
	if len(rows) == 0 {
		return nil
	}

	pool, err := ants.NewPool(s.sweepWorkers)
	if err != nil {
		return errors.Wrap(err, "sweep pool")
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for _, row := range rows {
		row := row
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			s.sweepOne(ctx, row.Key)
		}); err != nil {
			wg.Done()
			zap.L().Warn("sweep submit failed", zap.Error(err))
		}
	}
	wg.Wait()
	return nil
}

func (s *Service) sweepOne(ctx context.Context, key string) {
	referenced, err := s.orphans.Referenced(ctx, key)
	if err != nil {
		zap.L().Warn("orphan reference check failed", zap.String("key", key), zap.Error(err))
		return
	}
	if !referenced {
		cctx, cancel := context.WithTimeout(ctx, s.deleteTimeout)
		defer cancel()
		if err := s.store.DeleteObject(cctx, key); err != nil {
			// keep the row; the next sweep retries
			zap.L().Warn("orphan object deletion failed", zap.String("key", key), zap.Error(err))
			return
		}
		zap.L().Info("reclaimed orphaned object", zap.String("key", key))
	}
	if err := s.orphans.Delete(ctx, key); err != nil {
		zap.L().Warn("failed to drop orphan mark", zap.String("key", key), zap.Error(err))
	}
}

// WriteAudit persists one audit entry; wired to TopicMutation by the app.
func (s *Service) WriteAudit(evt MutationEvent) {
	entry := &domain.AuditLog{
		ID:       common.UUIDint64(),
		UserID:   evt.UserID,
		StoreID:  evt.StoreID,
		Entity:   evt.Entity,
		EntityID: evt.EntityID,
		Action:   evt.Action,
		OptTime:  evt.At,
	}
	if err := s.audit.Create(context.Background(), entry); err != nil {
		zap.L().Error("failed to write audit entry", zap.Error(err))
	}
}

// PruneAudit drops audit entries older than the retention window.
func (s *Service) PruneAudit(ctx context.Context, retention time.Duration) error {
	return s.audit.PruneBefore(ctx, time.Now().Add(-retention))
}

func (s *Service) publish(userID, storeID, entity, entityID, action string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(TopicMutation, MutationEvent{
		UserID:   userID,
		StoreID:  storeID,
		Entity:   entity,
		EntityID: entityID,
		Action:   action,
		At:       time.Now(),
	})
}

// ---------------------------------------------------------------------
// helpers

func productImageRows(productID string, images []ImageInput) []domain.ProductImage {
	rows := make([]domain.ProductImage, 0, len(images))
	now := time.Now()
	for _, img := range images {
		rows = append(rows, domain.ProductImage{
			ID:        common.UUID(),
			ProductID: productID,
			URL:       img.URL,
			Key:       img.Key,
			CreatedAt: now,
		})
	}
	return rows
}

func catalogueImageRows(catalogueID string, images []ImageInput) []domain.CatalogueImage {
	rows := make([]domain.CatalogueImage, 0, len(images))
	now := time.Now()
	for _, img := range images {
		rows = append(rows, domain.CatalogueImage{
			ID:          common.UUID(),
			CatalogueID: catalogueID,
			URL:         img.URL,
			Key:         img.Key,
			CreatedAt:   now,
		})
	}
	return rows
}

func imageKeys(images []ImageInput) []string {
	keys := make([]string, 0, len(images))
	for _, img := range images {
		keys = append(keys, img.Key)
	}
	return keys
}

func productKeys(images []domain.ProductImage) []string {
	keys := make([]string, 0, len(images))
	for _, img := range images {
		keys = append(keys, img.Key)
	}
	return keys
}

func catalogueKeys(images []domain.CatalogueImage) []string {
	keys := make([]string, 0, len(images))
	for _, img := range images {
		keys = append(keys, img.Key)
	}
	return keys
}

func droppedKeys(old, current []string) []string {
	kept := make(map[string]struct{}, len(current))
	for _, k := range current {
		kept[k] = struct{}{}
	}
	var dropped []string
	for _, k := range old {
		if _, ok := kept[k]; !ok {
			dropped = append(dropped, k)
		}
	}
	return dropped
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
