package adminapi

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/webstorehq/storeadmin/internal/catalog"
	"github.com/webstorehq/storeadmin/internal/webserver"
)

type imagePayload struct {
	URL string `json:"url" validate:"required"`
	Key string `json:"key" validate:"required"`
}

type productPayload struct {
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Quantity     *int            `json:"quantity"`
	Description  string          `json:"description" validate:"omitempty,max=2000"`
	CategoryIDs  []string        `json:"categoryIds"`
	CatalogueIDs []string        `json:"catalogueIds"`
	Images       []imagePayload  `json:"images" validate:"dive"`
	IsFeatured   bool            `json:"isFeatured"`
	IsArchived   bool            `json:"isArchived"`
}

func (p *productPayload) toInput() catalog.ProductInput {
	images := make([]catalog.ImageInput, 0, len(p.Images))
	for _, img := range p.Images {
		images = append(images, catalog.ImageInput{URL: img.URL, Key: img.Key})
	}
	return catalog.ProductInput{
		Name:         p.Name,
		Price:        p.Price,
		Quantity:     p.Quantity,
		Description:  p.Description,
		CategoryIDs:  p.CategoryIDs,
		CatalogueIDs: p.CatalogueIDs,
		Images:       images,
		IsFeatured:   p.IsFeatured,
		IsArchived:   p.IsArchived,
	}
}

func registerProductRoutes() {
	// storefront reads are public by design
	webserver.PubGET("/stores/:storeId/products", listProducts)
	webserver.PubGET("/stores/:storeId/products/:productId", getProduct)

	// admin side
	webserver.ApiGET("/stores/:storeId/products", listProductsAdmin)
	webserver.ApiGET("/stores/:storeId/products/export", exportProducts)
	webserver.ApiPOST("/stores/:storeId/products", createProduct)
	webserver.ApiPATCH("/stores/:storeId/products/:productId", updateProduct)
	webserver.ApiDELETE("/stores/:storeId/products/:productId", deleteProduct)
}

func productFilterFromQuery(c echo.Context) catalog.ProductFilter {
	return catalog.ProductFilter{
		IsFeatured:    parseFeatured(c),
		CategoryIDs:   c.QueryParams()["categories"],
		CatalogueIDs:  c.QueryParams()["catalogues"],
		CreatedAfter:  parseDateParam(c, "created_after"),
		CreatedBefore: parseDateParam(c, "created_before"),
	}
}

func listProducts(c echo.Context) error {
	f := productFilterFromQuery(c)
	products, _, err := service.ListProducts(c.Request().Context(), c.Param("storeId"), f)
	if err != nil {
		return failFromErr(c, "PRODUCTS_GET", err)
	}
	return ok(c, products)
}

func listProductsAdmin(c echo.Context) error {
	if _, err := requireUser(c); err != nil {
		return err
	}
	f := productFilterFromQuery(c)
	f.IncludeArchived = strings.TrimSpace(c.QueryParam("includeArchived")) != ""
	f.Page, f.PerPage = parsePagination(c)
	products, total, err := service.ListProducts(c.Request().Context(), c.Param("storeId"), f)
	if err != nil {
		return failFromErr(c, "PRODUCTS_LIST", err)
	}
	return paged(c, products, total, f.Page, f.PerPage)
}

func getProduct(c echo.Context) error {
	p, err := service.GetProduct(c.Request().Context(), c.Param("storeId"), c.Param("productId"))
	if err != nil {
		return failFromErr(c, "PRODUCT_GET", err)
	}
	return ok(c, p)
}

func createProduct(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return err
	}
	p, err := service.CreateProduct(c.Request().Context(), userID, c.Param("storeId"), payload.toInput())
	if err != nil {
		return failFromErr(c, "PRODUCTS_POST", err)
	}
	return created(c, p)
}

func updateProduct(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return err
	}
	p, err := service.UpdateProduct(c.Request().Context(), userID,
		c.Param("storeId"), c.Param("productId"), payload.toInput())
	if err != nil {
		return failFromErr(c, "PRODUCT_PATCH", err)
	}
	return ok(c, p)
}

func deleteProduct(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	productID := c.Param("productId")
	warnings, err := service.DeleteProduct(c.Request().Context(), userID, c.Param("storeId"), productID)
	if err != nil {
		return failFromErr(c, "PRODUCT_DELETE", err)
	}
	return ok(c, echo.Map{"id": productID, "warnings": warnings})
}

func exportProducts(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	// buffer the whole file so a failed export never commits a 200
	var buf bytes.Buffer
	if err := service.ExportProductsCSV(c.Request().Context(), userID, c.Param("storeId"), &buf); err != nil {
		return failFromErr(c, "PRODUCTS_EXPORT", err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="products.csv"`)
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}
