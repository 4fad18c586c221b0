package catalog

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/webstorehq/storeadmin/internal/domain"
)

type fakeObjectStore struct {
	mu       sync.Mutex
	deleted  []string
	failKeys map[string]bool
}

func (f *fakeObjectStore) DeleteObject(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failKeys[key] {
		return errors.New("storage unavailable")
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeObjectStore) deletedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.deleted))
	copy(out, f.deleted)
	return out
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(domain.Tables...); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *fakeObjectStore) {
	t.Helper()
	db := newTestDB(t)
	store := &fakeObjectStore{failKeys: map[string]bool{}}
	svc := NewGormService(db, store, EventBus.New(), Options{
		DeleteTimeout: time.Second,
		OrphanGrace:   time.Minute,
		SweepWorkers:  2,
	})
	return svc, db, store
}

type fixture struct {
	store     *domain.Store
	category  *domain.Category
	catalogue *domain.Catalogue
}

func seedStore(t *testing.T, svc *Service, userID string) fixture {
	t.Helper()
	ctx := context.Background()
	store, err := svc.CreateStore(ctx, userID, "sneaker shop")
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
	cat, err := svc.CreateCategory(ctx, userID, store.ID, CategoryInput{Name: "shoes"})
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}
	cl, err := svc.CreateCatalogue(ctx, userID, store.ID, CatalogueInput{
		Label:  "summer",
		Images: []ImageInput{{URL: "https://cdn.example/summer.png", Key: "summer.png"}},
	})
	if err != nil {
		t.Fatalf("seed catalogue: %v", err)
	}
	return fixture{store: store, category: cat, catalogue: cl}
}

func productInput(fx fixture, quantity int, keys ...string) ProductInput {
	images := make([]ImageInput, 0, len(keys))
	for _, k := range keys {
		images = append(images, ImageInput{URL: "https://cdn.example/" + k, Key: k})
	}
	return ProductInput{
		Name:         "runner",
		Price:        decimal.NewFromInt(120),
		Quantity:     &quantity,
		CategoryIDs:  []string{fx.category.ID},
		CatalogueIDs: []string{fx.catalogue.ID},
		Images:       images,
	}
}

func TestCreateProductPersistsImagesAndLinks(t *testing.T) {
	svc, db, _ := newTestService(t)
	fx := seedStore(t, svc, "user-1")
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, "user-1", fx.store.ID, productInput(fx, 3, "a.png", "b.png"))
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if p.StoreID != fx.store.ID {
		t.Errorf("product store = %q, want %q", p.StoreID, fx.store.ID)
	}
	if len(p.Images) != 2 {
		t.Fatalf("got %d images, want 2", len(p.Images))
	}
	if len(p.Categories) != 1 || p.Categories[0].ID != fx.category.ID {
		t.Errorf("category link not persisted: %+v", p.Categories)
	}
	if len(p.Catalogues) != 1 || p.Catalogues[0].ID != fx.catalogue.ID {
		t.Errorf("catalogue link not persisted: %+v", p.Catalogues)
	}

	var imageRows int64
	db.Model(&domain.ProductImage{}).Where("product_id = ?", p.ID).Count(&imageRows)
	if imageRows != 2 {
		t.Errorf("image rows = %d, want 2", imageRows)
	}
}

func TestCreateProductRejectsForeignStore(t *testing.T) {
	svc, db, _ := newTestService(t)
	fx := seedStore(t, svc, "owner")
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, "intruder", fx.store.ID, productInput(fx, 1, "x.png"))
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}

	var count int64
	db.Model(&domain.Product{}).Count(&count)
	if count != 0 {
		t.Errorf("denied create wrote %d product rows", count)
	}
}

func TestCreateProductValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	fx := seedStore(t, svc, "user-1")
	ctx := context.Background()

	cases := []struct {
		name  string
		field string
		mut   func(*ProductInput)
	}{
		{"empty name", "name", func(in *ProductInput) { in.Name = "  " }},
		{"zero price", "price", func(in *ProductInput) { in.Price = decimal.Zero }},
		{"nil quantity", "quantity", func(in *ProductInput) { in.Quantity = nil }},
		{"no categories", "categoryIds", func(in *ProductInput) { in.CategoryIDs = nil }},
		{"no catalogues", "catalogueIds", func(in *ProductInput) { in.CatalogueIDs = nil }},
		{"unknown category", "categoryIds", func(in *ProductInput) { in.CategoryIDs = []string{"nope"} }},
		{"image without key", "images", func(in *ProductInput) { in.Images = []ImageInput{{URL: "u"}} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := productInput(fx, 1, "x.png")
			tc.mut(&in)
			_, err := svc.CreateProduct(ctx, "user-1", fx.store.ID, in)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if ve.Field != tc.field {
				t.Errorf("field = %q, want %q", ve.Field, tc.field)
			}
		})
	}
}

func TestCreateProductImageCap(t *testing.T) {
	svc, _, _ := newTestService(t)
	fx := seedStore(t, svc, "user-1")

	keys := []string{"1.png", "2.png", "3.png", "4.png", "5.png", "6.png"}
	_, err := svc.CreateProduct(context.Background(), "user-1", fx.store.ID, productInput(fx, 1, keys...))
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "images" {
		t.Fatalf("err = %v, want images ValidationError", err)
	}
}

func TestUpdateProductFullReplace(t *testing.T) {
	svc, db, _ := newTestService(t)
	fx := seedStore(t, svc, "user-1")
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, "user-1", fx.store.ID, productInput(fx, 2, "old-1.png", "old-2.png"))
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	other, err := svc.CreateCategory(ctx, "user-1", fx.store.ID, CategoryInput{Name: "boots"})
	if err != nil {
		t.Fatalf("second category: %v", err)
	}

	in := productInput(fx, 9, "old-1.png", "new.png")
	in.Name = "trail runner"
	in.Price = decimal.NewFromInt(150)
	in.IsArchived = true
	in.CategoryIDs = []string{other.ID}

	updated, err := svc.UpdateProduct(ctx, "user-1", fx.store.ID, p.ID, in)
	if err != nil {
		t.Fatalf("update product: %v", err)
	}
	if updated.Name != "trail runner" || updated.Quantity != 9 || !updated.IsArchived {
		t.Errorf("scalars not replaced: %+v", updated)
	}
	if len(updated.Categories) != 1 || updated.Categories[0].ID != other.ID {
		t.Errorf("category set not replaced: %+v", updated.Categories)
	}

	got := map[string]bool{}
	for _, img := range updated.Images {
		got[img.Key] = true
	}
	if len(got) != 2 || !got["old-1.png"] || !got["new.png"] {
		t.Errorf("image set = %v, want {old-1.png new.png}", got)
	}

	var stale int64
	db.Model(&domain.ProductImage{}).Where("product_id = ? AND key = ?", p.ID, "old-2.png").Count(&stale)
	if stale != 0 {
		t.Errorf("dropped image row survived the replace")
	}

	// the dropped key is handed to the sweep, not deleted inline
	var orphan int64
	db.Model(&domain.StorageOrphan{}).Where("key = ?", "old-2.png").Count(&orphan)
	if orphan != 1 {
		t.Errorf("dropped key not recorded as orphan")
	}
}

func TestReplaceRollsBackOnFailedImageInsert(t *testing.T) {
	svc, db, _ := newTestService(t)
	fx := seedStore(t, svc, "user-1")
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, "user-1", fx.store.ID, productInput(fx, 2, "keep-1.png", "keep-2.png"))
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	// duplicate primary keys make the image insert fail after the
	// old rows were already deleted inside the transaction
	repo := NewGormProductRepository(db)
	upd := &domain.Product{
		ID:        p.ID,
		StoreID:   fx.store.ID,
		Name:      "renamed",
		Price:     decimal.NewFromInt(1),
		Quantity:  1,
		UpdatedAt: time.Now(),
	}
	images := []domain.ProductImage{
		{ID: "dup", ProductID: p.ID, URL: "u1", Key: "n1.png"},
		{ID: "dup", ProductID: p.ID, URL: "u2", Key: "n2.png"},
	}
	if err := repo.Replace(ctx, upd, p.Categories, p.Catalogues, images); err == nil {
		t.Fatal("replace with colliding image ids succeeded, want error")
	}

	got, err := svc.GetProduct(ctx, fx.store.ID, p.ID)
	if err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if got.Name != "runner" {
		t.Errorf("scalar update survived the rollback: name = %q", got.Name)
	}
	keys := map[string]bool{}
	for _, img := range got.Images {
		keys[img.Key] = true
	}
	if len(keys) != 2 || !keys["keep-1.png"] || !keys["keep-2.png"] {
		t.Errorf("image set after failed replace = %v, want the original pair", keys)
	}
}

func TestDeleteProductReleasesObjects(t *testing.T) {
	svc, db, store := newTestService(t)
	fx := seedStore(t, svc, "user-1")
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, "user-1", fx.store.ID, productInput(fx, 1, "a.png", "b.png"))
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	warnings, err := svc.DeleteProduct(ctx, "user-1", fx.store.ID, p.ID)
	if err != nil {
		t.Fatalf("delete product: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}

	deleted := map[string]bool{}
	for _, k := range store.deletedKeys() {
		deleted[k] = true
	}
	if !deleted["a.png"] || !deleted["b.png"] {
		t.Errorf("object deletions = %v, want a.png and b.png", store.deletedKeys())
	}

	var rows int64
	db.Model(&domain.ProductImage{}).Where("product_id = ?", p.ID).Count(&rows)
	if rows != 0 {
		t.Errorf("image rows left behind: %d", rows)
	}
	if _, err := svc.GetProduct(ctx, fx.store.ID, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("product still readable after delete: %v", err)
	}
}

func TestDeleteProductObjectFailureIsWarning(t *testing.T) {
	svc, _, store := newTestService(t)
	fx := seedStore(t, svc, "user-1")
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, "user-1", fx.store.ID, productInput(fx, 1, "stuck.png", "fine.png"))
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	store.failKeys["stuck.png"] = true

	warnings, err := svc.DeleteProduct(ctx, "user-1", fx.store.ID, p.ID)
	if err != nil {
		t.Fatalf("delete product: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one", warnings)
	}
	if _, err := svc.GetProduct(ctx, fx.store.ID, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("record delete blocked by storage failure: %v", err)
	}
}

func TestStockCount(t *testing.T) {
	svc, _, _ := newTestService(t)
	fx := seedStore(t, svc, "user-1")
	ctx := context.Background()

	if _, err := svc.CreateProduct(ctx, "user-1", fx.store.ID, productInput(fx, 5, "a.png")); err != nil {
		t.Fatalf("create product: %v", err)
	}
	archived := productInput(fx, 7, "b.png")
	archived.IsArchived = true
	if _, err := svc.CreateProduct(ctx, "user-1", fx.store.ID, archived); err != nil {
		t.Fatalf("create archived product: %v", err)
	}

	total, err := svc.StockCount(ctx, fx.store.ID)
	if err != nil {
		t.Fatalf("stock count: %v", err)
	}
	if total != 5 {
		t.Errorf("stock count = %d, want 5 (archived excluded)", total)
	}

	empty, err := svc.CreateStore(ctx, "user-1", "empty shop")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	total, err = svc.StockCount(ctx, empty.ID)
	if err != nil {
		t.Fatalf("stock count on empty store: %v", err)
	}
	if total != 0 {
		t.Errorf("empty store stock count = %d, want 0", total)
	}
}

func TestDeleteStoreRequiresEmptyCatalog(t *testing.T) {
	svc, _, _ := newTestService(t)
	fx := seedStore(t, svc, "user-1")
	ctx := context.Background()

	err := svc.DeleteStore(ctx, "user-1", fx.store.ID)
	if !errors.Is(err, ErrStoreNotEmpty) {
		t.Fatalf("err = %v, want ErrStoreNotEmpty", err)
	}

	if err := svc.DeleteCategory(ctx, "user-1", fx.store.ID, fx.category.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	if _, err := svc.DeleteCatalogue(ctx, "user-1", fx.store.ID, fx.catalogue.ID); err != nil {
		t.Fatalf("delete catalogue: %v", err)
	}
	if err := svc.DeleteStore(ctx, "user-1", fx.store.ID); err != nil {
		t.Fatalf("delete emptied store: %v", err)
	}
	if _, err := svc.GetStore(ctx, "user-1", fx.store.ID); !errors.Is(err, ErrNotOwner) {
		t.Errorf("deleted store still resolves: %v", err)
	}
}

func TestCatalogueSingleImageCap(t *testing.T) {
	svc, db, _ := newTestService(t)
	fx := seedStore(t, svc, "user-1")
	ctx := context.Background()

	_, err := svc.CreateCatalogue(ctx, "user-1", fx.store.ID, CatalogueInput{
		Label: "winter",
		Images: []ImageInput{
			{URL: "u1", Key: "k1"},
			{URL: "u2", Key: "k2"},
		},
	})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "images" {
		t.Fatalf("err = %v, want images ValidationError", err)
	}

	var count int64
	db.Model(&domain.Catalogue{}).Where("label = ?", "winter").Count(&count)
	if count != 0 {
		t.Errorf("rejected catalogue was persisted")
	}
}

func TestCategoryDeleteKeepsProducts(t *testing.T) {
	svc, db, _ := newTestService(t)
	fx := seedStore(t, svc, "user-1")
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, "user-1", fx.store.ID, productInput(fx, 1, "a.png"))
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if err := svc.DeleteCategory(ctx, "user-1", fx.store.ID, fx.category.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}

	got, err := svc.GetProduct(ctx, fx.store.ID, p.ID)
	if err != nil {
		t.Fatalf("product gone after category delete: %v", err)
	}
	if len(got.Categories) != 0 {
		t.Errorf("membership links survived: %+v", got.Categories)
	}

	var links int64
	db.Table("product_categories").Where("category_id = ?", fx.category.ID).Count(&links)
	if links != 0 {
		t.Errorf("join rows left behind: %d", links)
	}
}

func TestSweepOrphans(t *testing.T) {
	svc, db, store := newTestService(t)
	fx := seedStore(t, svc, "user-1")
	ctx := context.Background()

	if _, err := svc.CreateProduct(ctx, "user-1", fx.store.ID, productInput(fx, 1, "claimed.png")); err != nil {
		t.Fatalf("create product: %v", err)
	}

	svc.RecordPendingUpload(ctx, "abandoned.png")
	// re-mark the claimed key to exercise the reference check
	if err := db.Create(&domain.StorageOrphan{Key: "claimed.png", RecordedAt: time.Now()}).Error; err != nil {
		t.Fatalf("seed orphan: %v", err)
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := db.Model(&domain.StorageOrphan{}).Where("1 = 1").Update("recorded_at", old).Error; err != nil {
		t.Fatalf("age orphans: %v", err)
	}

	if err := svc.SweepOrphans(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	deleted := map[string]bool{}
	for _, k := range store.deletedKeys() {
		deleted[k] = true
	}
	if !deleted["abandoned.png"] {
		t.Errorf("abandoned key not reclaimed")
	}
	if deleted["claimed.png"] {
		t.Errorf("referenced key was deleted from storage")
	}

	var marks int64
	db.Model(&domain.StorageOrphan{}).Count(&marks)
	if marks != 0 {
		t.Errorf("%d orphan marks left after sweep", marks)
	}
}

func TestMutationEventsWriteAudit(t *testing.T) {
	db := newTestDB(t)
	bus := EventBus.New()
	svc := NewGormService(db, &fakeObjectStore{failKeys: map[string]bool{}}, bus, Options{})
	if err := bus.Subscribe(TopicMutation, svc.WriteAudit); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	store, err := svc.CreateStore(context.Background(), "user-1", "audited shop")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	var entries []domain.AuditLog
	if err := db.Find(&entries).Error; err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.UserID != "user-1" || e.StoreID != store.ID || e.Entity != "store" || e.Action != ActionCreated {
		t.Errorf("audit entry = %+v", e)
	}
}

func TestPruneAudit(t *testing.T) {
	db := newTestDB(t)
	svc := NewGormService(db, &fakeObjectStore{failKeys: map[string]bool{}}, nil, Options{})

	db.Create(&domain.AuditLog{ID: 1, Action: ActionCreated, OptTime: time.Now().Add(-48 * time.Hour)})
	db.Create(&domain.AuditLog{ID: 2, Action: ActionCreated, OptTime: time.Now()})

	if err := svc.PruneAudit(context.Background(), 24*time.Hour); err != nil {
		t.Fatalf("prune: %v", err)
	}

	var remaining []domain.AuditLog
	db.Find(&remaining)
	if len(remaining) != 1 || remaining[0].ID != 2 {
		t.Errorf("remaining entries = %+v, want only the fresh one", remaining)
	}
}
