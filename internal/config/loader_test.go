package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nsls2-sst/ucal-export/internal/config"
	"github.com/nsls2-sst/ucal-export/internal/logging"
)

const baseContent = `
catalog:
  url: "http://localhost:8000"
  beamline: ucal
export:
  proposal_root: /tmp/proposals
processing:
  info_dir: /tmp/process_info
database:
  driver: sqlite
  url: "file::memory:?mode=memory&cache=shared"
env:
  mappings:
    tiled_url: catalog.url
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return dir
}

func TestLoadConfig(t *testing.T) {
	logger := logging.FallbackLogger()

	t.Run("loading the bundled config", func(t *testing.T) {
		conf, err := config.LoadConfig(logger, "0.0.1", "local", time.Now().Format(time.RFC3339), "../../config")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if conf.Catalog.Beamline != "ucal" {
			t.Fatalf("Expected beamline ucal, got %s", conf.Catalog.Beamline)
		}
		if conf.Service.Version != "0.0.1" {
			t.Fatalf("Expected version 0.0.1, got %s", conf.Service.Version)
		}
	})

	t.Run("applying defaults", func(t *testing.T) {
		conf, err := config.LoadConfig(logger, "0.0.1", "local", "", writeConfig(t, baseContent))
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if conf.Export.Retries != 2 || conf.Export.RetryDelay != 10*time.Second {
			t.Fatalf("Expected 2 retries every 10s, got %d every %s", conf.Export.Retries, conf.Export.RetryDelay)
		}
		if conf.Export.AthenaNameFormat != "scan_{scan}.dat" {
			t.Fatalf("Unexpected athena name format %s", conf.Export.AthenaNameFormat)
		}
		if conf.Catalog.HTTPTimeout != 30*time.Second {
			t.Fatalf("Unexpected http timeout %s", conf.Catalog.HTTPTimeout)
		}
	})

	t.Run("setting environment variables", func(t *testing.T) {
		os.Setenv("TILED_URL", "http://localhost:9999")
		t.Cleanup(func() {
			os.Unsetenv("TILED_URL")
		})
		conf, err := config.LoadConfig(logger, "0.0.1", "local", "", writeConfig(t, baseContent))
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if conf.Catalog.URL != "http://localhost:9999" {
			t.Fatalf("Catalog URL is not http://localhost:9999, got %s", conf.Catalog.URL)
		}
	})

	t.Run("rejecting an invalid config", func(t *testing.T) {
		content := `
catalog:
  beamline: ucal
export:
  proposal_root: /tmp/proposals
`
		if _, err := config.LoadConfig(logger, "0.0.1", "local", "", writeConfig(t, content)); err == nil {
			t.Fatalf("Expected a validation error without a catalog url")
		}
	})

	t.Run("CONFIG_PATH overrides base config values", func(t *testing.T) {
		baseDir := writeConfig(t, baseContent)
		operatorDir := writeConfig(t, `
database:
  driver: pgx
  url: "postgres://localhost:5432/ucal"
`)
		os.Setenv("CONFIG_PATH", filepath.Join(operatorDir, "config.yaml"))
		t.Cleanup(func() {
			os.Unsetenv("CONFIG_PATH")
		})

		conf, err := config.LoadConfig(logger, "0.0.1", "local", "", baseDir)
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		db := *conf.Database
		if driver, ok := db["driver"]; !ok || driver.(string) != "pgx" {
			t.Fatalf("Expected database driver pgx from CONFIG_PATH, got %v", db["driver"])
		}
		// the catalog should be preserved from the base config
		if conf.Catalog.Beamline != "ucal" {
			t.Fatalf("Expected beamline ucal from base config, got %s", conf.Catalog.Beamline)
		}
	})

	t.Run("CONFIG_PATH replaces bundled secret mappings", func(t *testing.T) {
		// The bundled mapping is not optional and its file does not exist.
		baseDir := writeConfig(t, baseContent+`
secrets:
  dir: /tmp
  mappings:
    ucal_missing_password: database.password
`)
		operatorDir := writeConfig(t, `
secrets:
  dir: /tmp
  mappings:
    ucal-db-url:optional: database.url
`)
		os.Setenv("CONFIG_PATH", filepath.Join(operatorDir, "config.yaml"))
		t.Cleanup(func() {
			os.Unsetenv("CONFIG_PATH")
		})

		if _, err := config.LoadConfig(logger, "0.0.1", "local", "", baseDir); err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
	})

	t.Run("loading config from secrets directory", func(t *testing.T) {
		secretsDir := t.TempDir()
		secret := "mysecret"
		if err := os.WriteFile(filepath.Join(secretsDir, "db_password"), []byte(secret+"\n"), 0600); err != nil {
			t.Fatalf("Failed to create secret: %v", err)
		}
		conf, err := config.LoadConfig(logger, "0.0.1", "local", "", writeConfig(t, baseContent+`
secrets:
  dir: `+secretsDir+`
  mappings:
    db_password: database.password
    api_key:optional: catalog.api_key
`))
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		db := *conf.Database
		if password, ok := db["password"]; !ok || password.(string) != secret {
			t.Fatalf("Database password is not %s, got %v", secret, db["password"])
		}
		if conf.Catalog.APIKey != "" {
			t.Fatalf("Optional secret should be empty, got %s", conf.Catalog.APIKey)
		}
	})
}
