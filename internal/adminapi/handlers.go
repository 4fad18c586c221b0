package adminapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/webstorehq/storeadmin/internal/catalog"
	"github.com/webstorehq/storeadmin/internal/storage"
	"github.com/webstorehq/storeadmin/internal/webserver"
)

// ObjectGateway is the slice of the storage gateway the handlers use.
type ObjectGateway interface {
	RequestUploadSlot(ctx context.Context, fileName, contentType string, size int64) (*storage.UploadSlot, error)
	RequestRetrievalURL(ctx context.Context, key string) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

var (
	service *catalog.Service
	gateway ObjectGateway
)

// Init wires the handler package; call before RegisterRoutes.
func Init(svc *catalog.Service, gw ObjectGateway) {
	service = svc
	gateway = gw
}

// RegisterRoutes registers every admin and storefront route on the
// webserver singleton.
func RegisterRoutes() {
	registerStoreRoutes()
	registerProductRoutes()
	registerCategoryRoutes()
	registerCatalogueRoutes()
	registerStorageRoutes()
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

func created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, data)
}

func fail(c echo.Context, status int, code, msg string, details interface{}) error {
	return c.JSON(status, echo.Map{
		"error":   true,
		"code":    code,
		"message": msg,
		"details": details,
	})
}

func paged(c echo.Context, rows interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, echo.Map{
		"items":   rows,
		"total":   total,
		"page":    page,
		"perPage": pageSize,
	})
}

// parsePagination accepts both perPage and the legacy pageSize param.
func parsePagination(c echo.Context) (page, pageSize int) {
	page = 1
	if p, err := strconv.Atoi(c.QueryParam("page")); err == nil && p > 0 {
		page = p
	}
	pageSize = 20
	for _, name := range []string{"perPage", "pageSize"} {
		if ps, err := strconv.Atoi(c.QueryParam(name)); err == nil && ps > 0 && ps <= 500 {
			pageSize = ps
			break
		}
	}
	return page, pageSize
}

// requireUser backstops the JWT middleware: handlers on mutation
// routes must see a resolved identity before doing anything.
func requireUser(c echo.Context) (string, error) {
	userID := webserver.CurrentUserID(c)
	if userID == "" {
		return "", fail(c, http.StatusUnauthorized, "UNAUTHENTICATED", "No identity resolved", nil)
	}
	return userID, nil
}

// failFromErr maps service errors onto the HTTP taxonomy. Unexpected
// errors are logged with an operation tag and surfaced as a generic
// internal failure.
func failFromErr(c echo.Context, op string, err error) error {
	var ve *catalog.ValidationError
	switch {
	case errors.As(err, &ve):
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", ve.Error(), ve.Field)
	case errors.Is(err, catalog.ErrNotOwner):
		return fail(c, http.StatusForbidden, "UNAUTHORIZED", "Store not owned by caller", nil)
	case errors.Is(err, catalog.ErrStoreNotEmpty):
		return fail(c, http.StatusConflict, "STORE_NOT_EMPTY", "Store still has catalog records", nil)
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Record not found", nil)
	default:
		zap.L().Error("request failed", zap.String("op", op), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error", nil)
	}
}

// parseFeatured treats any non-empty value as true, matching the
// storefront contract where the filter is either on or absent.
func parseFeatured(c echo.Context) *bool {
	if strings.TrimSpace(c.QueryParam("isFeatured")) == "" {
		return nil
	}
	t := true
	return &t
}

func parseDateParam(c echo.Context, name string) *time.Time {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return nil
	}
	return &t
}
