package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	if cfg.Web.Port == 0 || cfg.Catalog.MaxProductImages != 5 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadConfigFileAndEnvOverride(t *testing.T) {
	cfile := filepath.Join(t.TempDir(), "storeadmin.yml")
	data := []byte("web:\n  port: 9000\nstorage:\n  bucket: from-file\n")
	if err := os.WriteFile(cfile, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("STOREADMIN_S3_BUCKET", "from-env")

	cfg := LoadConfig(cfile)
	if cfg.Web.Port != 9000 {
		t.Errorf("web port = %d, want 9000 from file", cfg.Web.Port)
	}
	if cfg.Storage.Bucket != "from-env" {
		t.Errorf("bucket = %q, env override lost", cfg.Storage.Bucket)
	}
}
