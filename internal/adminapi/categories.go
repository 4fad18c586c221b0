package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/webstorehq/storeadmin/internal/catalog"
	"github.com/webstorehq/storeadmin/internal/webserver"
)

type categoryPayload struct {
	Name       string `json:"name"`
	IsFeatured bool   `json:"isFeatured"`
	IsArchived bool   `json:"isArchived"`
}

func (p *categoryPayload) toInput() catalog.CategoryInput {
	return catalog.CategoryInput{
		Name:       p.Name,
		IsFeatured: p.IsFeatured,
		IsArchived: p.IsArchived,
	}
}

func registerCategoryRoutes() {
	webserver.PubGET("/stores/:storeId/categories", listCategories)
	webserver.PubGET("/stores/:storeId/categories/:categoryId", getCategory)

	webserver.ApiPOST("/stores/:storeId/categories", createCategory)
	webserver.ApiPATCH("/stores/:storeId/categories/:categoryId", updateCategory)
	webserver.ApiDELETE("/stores/:storeId/categories/:categoryId", deleteCategory)
}

func listCategories(c echo.Context) error {
	cats, err := service.ListCategories(c.Request().Context(), c.Param("storeId"), parseFeatured(c), false)
	if err != nil {
		return failFromErr(c, "CATEGORIES_GET", err)
	}
	return ok(c, cats)
}

func getCategory(c echo.Context) error {
	cat, err := service.GetCategory(c.Request().Context(), c.Param("storeId"), c.Param("categoryId"))
	if err != nil {
		return failFromErr(c, "CATEGORY_GET", err)
	}
	return ok(c, cat)
}

func createCategory(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	var payload categoryPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse category", nil)
	}
	cat, err := service.CreateCategory(c.Request().Context(), userID, c.Param("storeId"), payload.toInput())
	if err != nil {
		return failFromErr(c, "CATEGORIES_POST", err)
	}
	return created(c, cat)
}

func updateCategory(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	var payload categoryPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse category", nil)
	}
	cat, err := service.UpdateCategory(c.Request().Context(), userID,
		c.Param("storeId"), c.Param("categoryId"), payload.toInput())
	if err != nil {
		return failFromErr(c, "CATEGORY_PATCH", err)
	}
	return ok(c, cat)
}

func deleteCategory(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	categoryID := c.Param("categoryId")
	if err := service.DeleteCategory(c.Request().Context(), userID, c.Param("storeId"), categoryID); err != nil {
		return failFromErr(c, "CATEGORY_DELETE", err)
	}
	return ok(c, echo.Map{"id": categoryID})
}
