package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/webstorehq/storeadmin/internal/webserver"
)

type uploadSlotPayload struct {
	FileName    string `json:"fileName" validate:"required,max=255"`
	ContentType string `json:"contentType" validate:"required"`
	Size        int64  `json:"size" validate:"required,gt=0"`
}

type objectKeyPayload struct {
	Key string `json:"key" validate:"required"`
}

func registerStorageRoutes() {
	webserver.ApiPOST("/storage/upload-slot", requestUploadSlot)
	webserver.ApiDELETE("/storage/object", deleteObject)
	// presigned reads carry their own expiry; the URL itself is the gate
	webserver.PubGET("/storage/object", getObjectURL)
}

// requestUploadSlot hands the client a short-lived write URL. The key
// is always chosen server-side; it is also recorded as a pending
// upload so the sweep can reclaim it if no record ever claims it.
func requestUploadSlot(c echo.Context) error {
	if _, err := requireUser(c); err != nil {
		return err
	}
	var payload uploadSlotPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse upload request", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return err
	}
	slot, err := gateway.RequestUploadSlot(c.Request().Context(),
		payload.FileName, payload.ContentType, payload.Size)
	if err != nil {
		return failFromErr(c, "IMAGE_UPLOAD", err)
	}
	service.RecordPendingUpload(c.Request().Context(), slot.Key)
	return ok(c, slot)
}

func deleteObject(c echo.Context) error {
	if _, err := requireUser(c); err != nil {
		return err
	}
	var payload objectKeyPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse delete request", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return err
	}
	if err := gateway.DeleteObject(c.Request().Context(), payload.Key); err != nil {
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "Object deletion failed", nil)
	}
	return ok(c, echo.Map{"key": payload.Key})
}

func getObjectURL(c echo.Context) error {
	key := strings.TrimSpace(c.QueryParam("key"))
	if key == "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Image key is required", nil)
	}
	url, err := gateway.RequestRetrievalURL(c.Request().Context(), key)
	if err != nil {
		return failFromErr(c, "IMAGE_RETRIEVAL", err)
	}
	return ok(c, echo.Map{"url": url})
}
