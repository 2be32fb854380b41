package sql

import (
	"testing"
	"time"
)

func TestDecodeDatabaseConfig(t *testing.T) {
	t.Run("sqlite defaults", func(t *testing.T) {
		db, err := decodeDatabaseConfig(map[string]any{"driver": "sqlite"})
		if err != nil {
			t.Fatalf("Failed to decode: %v", err)
		}
		if db.URL != DEFAULT_SQLITE_URL || db.DatabaseName != DEFAULT_DATABASE_NAME {
			t.Fatalf("Unexpected defaults %+v", db)
		}
	})

	t.Run("pool settings", func(t *testing.T) {
		db, err := decodeDatabaseConfig(map[string]any{
			"driver":            "pgx",
			"url":               "postgres://ucal@localhost/ucal",
			"conn_max_lifetime": "5m",
			"max_open_conns":    4,
		})
		if err != nil {
			t.Fatalf("Failed to decode: %v", err)
		}
		if db.ConnMaxLifetime == nil || *db.ConnMaxLifetime != 5*time.Minute {
			t.Fatalf("Unexpected lifetime %v", db.ConnMaxLifetime)
		}
		if db.MaxOpenConns == nil || *db.MaxOpenConns != 4 || db.MaxIdleConns != nil {
			t.Fatalf("Unexpected pool settings %+v", db)
		}
	})

	errorCases := []struct {
		name   string
		config map[string]any
	}{
		{"unknown driver", map[string]any{"driver": "mysql"}},
		{"missing driver", map[string]any{}},
		{"postgres without url", map[string]any{"driver": "pgx"}},
		{"negative idle connections", map[string]any{"driver": "sqlite", "max_idle_conns": -1}},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeDatabaseConfig(tt.config); err == nil {
				t.Fatalf("Expected an error for %v", tt.config)
			}
		})
	}
}
