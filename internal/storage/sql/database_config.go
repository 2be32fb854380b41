package sql

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

const (
	// The processed run table is small, sqlite runs in memory unless a file is named.
	DEFAULT_SQLITE_URL    = "file:processed_runs?mode=memory&cache=shared"
	DEFAULT_DATABASE_NAME = "ucal_export"
)

// processingDatabase is the database section of the configuration.
type processingDatabase struct {
	Driver          string         `mapstructure:"driver" validate:"required,oneof=sqlite pgx"`
	URL             string         `mapstructure:"url"`
	ConnMaxLifetime *time.Duration `mapstructure:"conn_max_lifetime,omitempty"`
	MaxIdleConns    *int           `mapstructure:"max_idle_conns,omitempty" validate:"omitempty,gte=0"`
	MaxOpenConns    *int           `mapstructure:"max_open_conns,omitempty" validate:"omitempty,gte=1"`
	DatabaseName    string         `mapstructure:"database_name,omitempty"`
}

func decodeDatabaseConfig(config map[string]any) (*processingDatabase, error) {
	var db processingDatabase
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     &db,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("invalid database section: %w", err)
	}
	if err := validator.New().Struct(&db); err != nil {
		if db.Driver != SQLITE_DRIVER && db.Driver != POSTGRES_DRIVER {
			return nil, getUnsupportedDriverError(db.Driver)
		}
		return nil, fmt.Errorf("invalid database section: %w", err)
	}
	if db.URL == "" {
		if db.Driver != SQLITE_DRIVER {
			return nil, fmt.Errorf("the %s driver needs a database url", db.Driver)
		}
		db.URL = DEFAULT_SQLITE_URL
	}
	if db.DatabaseName == "" {
		db.DatabaseName = DEFAULT_DATABASE_NAME
	}
	return &db, nil
}
