package config

import (
	"os"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v2"
)

type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type WebConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
	// Secret is the HS256 key shared with the external identity provider.
	// Bearer tokens presented by admin clients are verified against it.
	Secret string `yaml:"secret" json:"secret"`
}

type DBConfig struct {
	Type     string `yaml:"type" json:"type"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Name     string `yaml:"name" json:"name"`
	User     string `yaml:"user" json:"user"`
	Passwd   string `yaml:"passwd" json:"passwd"`
	MaxConn  int    `yaml:"max_conn" json:"max_conn"`
	IdleConn int    `yaml:"idle_conn" json:"idle_conn"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

// StorageConfig describes the S3-compatible object store used for
// product and catalogue images. Clients upload directly through
// presigned URLs; the server never proxies image payloads.
type StorageConfig struct {
	Endpoint      string `yaml:"endpoint" json:"endpoint"`
	Region        string `yaml:"region" json:"region"`
	Bucket        string `yaml:"bucket" json:"bucket"`
	AccessKey     string `yaml:"access_key" json:"access_key"`
	SecretKey     string `yaml:"secret_key" json:"secret_key"`
	PublicBaseURL string `yaml:"public_base_url" json:"public_base_url"`
	PathStyle     bool   `yaml:"path_style" json:"path_style"`
	// UploadTTL / ReadTTL are presigned URL lifetimes in seconds.
	UploadTTL int `yaml:"upload_ttl" json:"upload_ttl"`
	ReadTTL   int `yaml:"read_ttl" json:"read_ttl"`
}

// CatalogConfig holds tunables for the mutation workflows.
type CatalogConfig struct {
	MaxProductImages int `yaml:"max_product_images" json:"max_product_images"`
	// DeleteTimeout bounds each object-store deletion in seconds.
	DeleteTimeout int `yaml:"delete_timeout" json:"delete_timeout"`
	// OrphanGraceMinutes is how long an uploaded object may stay
	// unreferenced before the sweep job reclaims it.
	OrphanGraceMinutes int `yaml:"orphan_grace_minutes" json:"orphan_grace_minutes"`
}

type LogConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

type AppConfig struct {
	System   SysConfig     `yaml:"system" json:"system"`
	Web      WebConfig     `yaml:"web" json:"web"`
	Database DBConfig      `yaml:"database" json:"database"`
	Storage  StorageConfig `yaml:"storage" json:"storage"`
	Catalog  CatalogConfig `yaml:"catalog" json:"catalog"`
	Logger   LogConfig     `yaml:"logger" json:"logger"`
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "storeadmin",
		Location: "Asia/Shanghai",
		Workdir:  "/var/storeadmin",
		Debug:    true,
	},
	Web: WebConfig{
		Host:   "0.0.0.0",
		Port:   1816,
		Secret: "9b6de5cc-storeadmin-0cfb5e1e",
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "storeadmin",
		User:     "postgres",
		Passwd:   "",
		MaxConn:  100,
		IdleConn: 10,
	},
	Storage: StorageConfig{
		Endpoint:      "https://t3.storage.dev",
		Region:        "auto",
		Bucket:        "file-webstore",
		PublicBaseURL: "https://file-webstore.t3.storageapi.dev",
		UploadTTL:     360,
		ReadTTL:       900,
	},
	Catalog: CatalogConfig{
		MaxProductImages:   5,
		DeleteTimeout:      10,
		OrphanGraceMinutes: 60,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/storeadmin/storeadmin.log",
	},
}

func setEnvValue(name string, f func(v string)) {
	if v, ok := os.LookupEnv(name); ok {
		f(v)
	}
}

func setEnvBoolValue(name string, f func(v bool)) {
	if v, ok := os.LookupEnv(name); ok {
		f(cast.ToBool(v))
	}
}

func setEnvIntValue(name string, f func(v int)) {
	if v, ok := os.LookupEnv(name); ok {
		f(cast.ToInt(v))
	}
}

// LoadConfig reads the YAML config file and applies STOREADMIN_*
// environment overrides on top. A missing file yields the defaults.
func LoadConfig(cfile string) *AppConfig {
	clone := *DefaultAppConfig
	cfg := &clone
	if cfile != "" {
		if data, err := os.ReadFile(cfile); err == nil {
			_ = yaml.Unmarshal(data, cfg)
		}
	}

	setEnvValue("STOREADMIN_SYSTEM_WORKDIR", func(v string) { cfg.System.Workdir = v })
	setEnvValue("STOREADMIN_SYSTEM_LOCATION", func(v string) { cfg.System.Location = v })
	setEnvBoolValue("STOREADMIN_SYSTEM_DEBUG", func(v bool) { cfg.System.Debug = v })

	setEnvValue("STOREADMIN_WEB_HOST", func(v string) { cfg.Web.Host = v })
	setEnvIntValue("STOREADMIN_WEB_PORT", func(v int) { cfg.Web.Port = v })
	setEnvValue("STOREADMIN_WEB_SECRET", func(v string) { cfg.Web.Secret = v })

	setEnvValue("STOREADMIN_DB_TYPE", func(v string) { cfg.Database.Type = v })
	setEnvValue("STOREADMIN_DB_HOST", func(v string) { cfg.Database.Host = v })
	setEnvIntValue("STOREADMIN_DB_PORT", func(v int) { cfg.Database.Port = v })
	setEnvValue("STOREADMIN_DB_NAME", func(v string) { cfg.Database.Name = v })
	setEnvValue("STOREADMIN_DB_USER", func(v string) { cfg.Database.User = v })
	setEnvValue("STOREADMIN_DB_PWD", func(v string) { cfg.Database.Passwd = v })
	setEnvBoolValue("STOREADMIN_DB_DEBUG", func(v bool) { cfg.Database.Debug = v })

	setEnvValue("STOREADMIN_S3_ENDPOINT", func(v string) { cfg.Storage.Endpoint = v })
	setEnvValue("STOREADMIN_S3_REGION", func(v string) { cfg.Storage.Region = v })
	setEnvValue("STOREADMIN_S3_BUCKET", func(v string) { cfg.Storage.Bucket = v })
	setEnvValue("STOREADMIN_S3_ACCESS_KEY", func(v string) { cfg.Storage.AccessKey = v })
	setEnvValue("STOREADMIN_S3_SECRET_KEY", func(v string) { cfg.Storage.SecretKey = v })
	setEnvValue("STOREADMIN_S3_PUBLIC_BASE_URL", func(v string) { cfg.Storage.PublicBaseURL = v })

	setEnvIntValue("STOREADMIN_CATALOG_MAX_PRODUCT_IMAGES", func(v int) { cfg.Catalog.MaxProductImages = v })
	setEnvIntValue("STOREADMIN_CATALOG_ORPHAN_GRACE_MINUTES", func(v int) { cfg.Catalog.OrphanGraceMinutes = v })

	setEnvValue("STOREADMIN_LOGGER_MODE", func(v string) { cfg.Logger.Mode = v })
	setEnvBoolValue("STOREADMIN_LOGGER_FILE_ENABLE", func(v bool) { cfg.Logger.FileEnable = v })
	setEnvValue("STOREADMIN_LOGGER_FILENAME", func(v string) { cfg.Logger.Filename = v })

	return cfg
}
