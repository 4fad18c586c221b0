package webserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	jsoniter "github.com/json-iterator/go"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/webstorehq/storeadmin/config"
)

// WebServer hosts two route groups: the token-gated /api group for
// store owners and the ungrouped public routes for storefront reads.
type WebServer struct {
	root *echo.Echo
	api  *echo.Group
	cfg  *config.AppConfig
}

var server *WebServer

func Init(cfg *config.AppConfig) *WebServer {
	server = NewWebServer(cfg)
	return server
}

func NewWebServer(cfg *config.AppConfig) *WebServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = &JsoniterSerializer{}
	e.Validator = &payloadValidator{}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			zap.L().Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency))
			return nil
		},
	}))

	// The identity gate: bearer tokens issued by the external identity
	// provider, verified against the shared secret. A missing or bad
	// token never reaches a handler.
	api := e.Group("/api", echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(cfg.Web.Secret),
	}))

	return &WebServer{root: e, api: api, cfg: cfg}
}

func (s *WebServer) Echo() *echo.Echo {
	return s.root
}

// Instance returns the package singleton's echo engine, used by tests
// to serve requests without binding a port.
func Instance() *echo.Echo {
	return server.root
}

func Listen() error {
	addr := fmt.Sprintf("%s:%d", server.cfg.Web.Host, server.cfg.Web.Port)
	zap.S().Infof("admin api listening on %s", addr)
	return server.root.Start(addr)
}

func Shutdown(ctx context.Context) error {
	return server.root.Shutdown(ctx)
}

func ApiGET(path string, h echo.HandlerFunc) {
	server.api.GET(path, h)
}

func ApiPOST(path string, h echo.HandlerFunc) {
	server.api.POST(path, h)
}

func ApiPATCH(path string, h echo.HandlerFunc) {
	server.api.PATCH(path, h)
}

func ApiDELETE(path string, h echo.HandlerFunc) {
	server.api.DELETE(path, h)
}

// PubGET registers a public storefront read; no identity required.
func PubGET(path string, h echo.HandlerFunc) {
	server.root.GET(path, h)
}

// CurrentUserID resolves the authenticated user from the verified
// token. Empty means no identity.
func CurrentUserID(c echo.Context) string {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return ""
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}

// JsoniterSerializer swaps echo's JSON codec for jsoniter.
type JsoniterSerializer struct{}

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

func (JsoniterSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := jsonCodec.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (JsoniterSerializer) Deserialize(c echo.Context, i interface{}) error {
	return jsonCodec.NewDecoder(c.Request().Body).Decode(i)
}

type payloadValidator struct{}

var validate = validator.New()

func (payloadValidator) Validate(i interface{}) error {
	if err := validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// SignTestToken issues a short-lived HS256 token; test helper.
func SignTestToken(secret, userID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
