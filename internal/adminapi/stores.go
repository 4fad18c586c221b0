package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/webstorehq/storeadmin/internal/webserver"
)

type storePayload struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
}

func registerStoreRoutes() {
	webserver.ApiPOST("/stores", createStore)
	webserver.ApiGET("/stores", listStores)
	webserver.ApiGET("/stores/:storeId", getStore)
	webserver.ApiPATCH("/stores/:storeId", updateStore)
	webserver.ApiDELETE("/stores/:storeId", deleteStore)
	webserver.ApiGET("/stores/:storeId/summary", storeSummary)
}

func createStore(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	var payload storePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse store", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return err
	}
	store, err := service.CreateStore(c.Request().Context(), userID, payload.Name)
	if err != nil {
		return failFromErr(c, "STORE_CREATE", err)
	}
	return created(c, store)
}

func listStores(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	stores, err := service.ListStores(c.Request().Context(), userID)
	if err != nil {
		return failFromErr(c, "STORE_LIST", err)
	}
	return ok(c, stores)
}

func getStore(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	store, err := service.GetStore(c.Request().Context(), userID, c.Param("storeId"))
	if err != nil {
		return failFromErr(c, "STORE_GET", err)
	}
	return ok(c, store)
}

func updateStore(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	var payload storePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse store", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return err
	}
	store, err := service.UpdateStore(c.Request().Context(), userID, c.Param("storeId"), payload.Name)
	if err != nil {
		return failFromErr(c, "STORE_UPDATE", err)
	}
	return ok(c, store)
}

func deleteStore(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	storeID := c.Param("storeId")
	if err := service.DeleteStore(c.Request().Context(), userID, storeID); err != nil {
		return failFromErr(c, "STORE_DELETE", err)
	}
	return ok(c, echo.Map{"id": storeID})
}

func storeSummary(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	summary, err := service.Summary(c.Request().Context(), userID, c.Param("storeId"))
	if err != nil {
		return failFromErr(c, "STORE_SUMMARY", err)
	}
	return ok(c, summary)
}
