package catalog

import (
	"context"
	"io"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
)

type productExportRow struct {
	ID         string `csv:"id"`
	Name       string `csv:"name"`
	Price      string `csv:"price"`
	Quantity   int    `csv:"quantity"`
	IsFeatured bool   `csv:"is_featured"`
	IsArchived bool   `csv:"is_archived"`
	CreatedAt  string `csv:"created_at"`
}

// ExportProductsCSV writes the store's full product list, archived
// rows included, as CSV.
func (s *Service) ExportProductsCSV(ctx context.Context, userID, storeID string, w io.Writer) error {
	if _, err := s.AuthorizeStore(ctx, userID, storeID); err != nil {
		return err
	}
	products, _, err := s.products.List(ctx, storeID, ProductFilter{IncludeArchived: true})
	if err != nil {
		return errors.Wrap(err, "list products for export")
	}
	rows := make([]productExportRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, productExportRow{
			ID:         p.ID,
			Name:       p.Name,
			Price:      p.Price.StringFixed(2),
			Quantity:   p.Quantity,
			IsFeatured: p.IsFeatured,
			IsArchived: p.IsArchived,
			CreatedAt:  p.CreatedAt.Format(time.RFC3339),
		})
	}
	return gocsv.Marshal(&rows, w)
}
