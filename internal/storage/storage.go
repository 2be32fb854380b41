package storage

import (
	"errors"
	"log/slog"

	"github.com/nsls2-sst/ucal-export/internal/abstractions"
	"github.com/nsls2-sst/ucal-export/internal/serviceerrors"
	"github.com/nsls2-sst/ucal-export/internal/storage/sql"
)

// NewStorage creates a new processing store based on the configuration.
// It currently uses the SQL storage implementation.
func NewStorage(databaseConfig *map[string]any, logger *slog.Logger) (abstractions.Storage, error) {
	if databaseConfig == nil {
		return nil, serviceerrors.StorageFailed("open", "", errors.New("database configuration is required"))
	}
	return sql.NewStorage(*databaseConfig, logger)
}
