package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/webstorehq/storeadmin/internal/catalog"
	"github.com/webstorehq/storeadmin/internal/webserver"
)

type cataloguePayload struct {
	Label      string         `json:"label"`
	Images     []imagePayload `json:"images" validate:"dive"`
	IsFeatured bool           `json:"isFeatured"`
	IsArchived bool           `json:"isArchived"`
}

func (p *cataloguePayload) toInput() catalog.CatalogueInput {
	images := make([]catalog.ImageInput, 0, len(p.Images))
	for _, img := range p.Images {
		images = append(images, catalog.ImageInput{URL: img.URL, Key: img.Key})
	}
	return catalog.CatalogueInput{
		Label:      p.Label,
		Images:     images,
		IsFeatured: p.IsFeatured,
		IsArchived: p.IsArchived,
	}
}

func registerCatalogueRoutes() {
	webserver.PubGET("/stores/:storeId/catalogues", listCatalogues)
	webserver.PubGET("/stores/:storeId/catalogues/:catalogueId", getCatalogue)

	webserver.ApiPOST("/stores/:storeId/catalogues", createCatalogue)
	webserver.ApiPATCH("/stores/:storeId/catalogues/:catalogueId", updateCatalogue)
	webserver.ApiDELETE("/stores/:storeId/catalogues/:catalogueId", deleteCatalogue)
}

func listCatalogues(c echo.Context) error {
	cats, err := service.ListCatalogues(c.Request().Context(), c.Param("storeId"), parseFeatured(c), false)
	if err != nil {
		return failFromErr(c, "CATALOGUES_GET", err)
	}
	return ok(c, cats)
}

func getCatalogue(c echo.Context) error {
	cat, err := service.GetCatalogue(c.Request().Context(), c.Param("storeId"), c.Param("catalogueId"))
	if err != nil {
		return failFromErr(c, "CATALOGUE_GET", err)
	}
	return ok(c, cat)
}

func createCatalogue(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	var payload cataloguePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse catalogue", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return err
	}
	cat, err := service.CreateCatalogue(c.Request().Context(), userID, c.Param("storeId"), payload.toInput())
	if err != nil {
		return failFromErr(c, "CATALOGUES_POST", err)
	}
	return created(c, cat)
}

func updateCatalogue(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	var payload cataloguePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse catalogue", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return err
	}
	cat, err := service.UpdateCatalogue(c.Request().Context(), userID,
		c.Param("storeId"), c.Param("catalogueId"), payload.toInput())
	if err != nil {
		return failFromErr(c, "CATALOGUE_PATCH", err)
	}
	return ok(c, cat)
}

func deleteCatalogue(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	catalogueID := c.Param("catalogueId")
	warnings, err := service.DeleteCatalogue(c.Request().Context(), userID, c.Param("storeId"), catalogueID)
	if err != nil {
		return failFromErr(c, "CATALOGUE_DELETE", err)
	}
	return ok(c, echo.Map{"id": catalogueID, "warnings": warnings})
}
