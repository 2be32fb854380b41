package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/nsls2-sst/ucal-export/internal/messages"
	"github.com/nsls2-sst/ucal-export/internal/serviceerrors"
	"github.com/nsls2-sst/ucal-export/pkg/api"
)

// IsProcessed reports whether the analysis results of uid were saved under
// saveDirectory.
func (s *SQLStorage) IsProcessed(ctx context.Context, uid string, saveDirectory string) (bool, error) {
	countQuery, err := createCountProcessedStatement(s.db.Driver, TABLE_PROCESSED_RUNS)
	if err != nil {
		return false, err
	}
	var count int
	if err := s.pool.QueryRowContext(ctx, countQuery, uid, saveDirectory).Scan(&count); err != nil {
		s.logger.Error("Failed to count processed runs", "error", err, "uid", uid)
		return false, serviceerrors.StorageFailed("count processed runs", uid, err)
	}
	return count > 0, nil
}

// GetProcessedRun loads the record saved for uid. The entity column holds
// the CBOR encoded record.
func (s *SQLStorage) GetProcessedRun(ctx context.Context, uid string) (*api.ProcessedRun, error) {
	selectQuery, err := createGetEntityStatement(s.db.Driver, TABLE_PROCESSED_RUNS)
	if err != nil {
		return nil, err
	}

	var dbUID string
	var updatedAt timestamp
	var entity []byte
	err = s.pool.QueryRowContext(ctx, selectQuery, uid).Scan(&dbUID, &updatedAt, &entity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, serviceerrors.ProcessedRunNotFound(uid)
		}
		s.logger.Error("Failed to get processed run", "error", err, "uid", uid)
		return nil, serviceerrors.StorageFailed("get processed run", uid, err)
	}

	var record api.ProcessedRun
	if err := cbor.Unmarshal(entity, &record); err != nil {
		s.logger.Error("Failed to unmarshal processed run entity", "error", err, "uid", uid)
		return nil, serviceerrors.StorageFailed("decode processed run", uid, err)
	}
	record.UID = dbUID
	record.UpdatedAt = updatedAt.Time
	return &record, nil
}

// SaveProcessedRun inserts or replaces the record of run.UID.
func (s *SQLStorage) SaveProcessedRun(ctx context.Context, run *api.ProcessedRun) error {
	entity, err := cbor.Marshal(run)
	if err != nil {
		return serviceerrors.StorageFailed("encode processed run", run.UID, err)
	}
	upsertQuery, err := createUpsertStatement(s.db.Driver, TABLE_PROCESSED_RUNS)
	if err != nil {
		return err
	}
	return s.withTransaction(ctx, "save processed run", run.UID, func(txn *sql.Tx) error {
		if _, err := txn.ExecContext(ctx, upsertQuery, run.UID, run.ScanID, run.SaveDirectory, entity); err != nil {
			s.logger.Error("Failed to save processed run", "error", err, "uid", run.UID)
			return serviceerrors.NewServiceError(messages.DatabaseOperationFailed, "Type", "processed run", "ResourceId", run.UID, "Error", err.Error()).WithCause(err)
		}
		s.logger.Info("Saved processed run", "uid", run.UID, "scan_id", run.ScanID, "channels", len(run.Channels))
		return nil
	})
}

func (s *SQLStorage) DeleteProcessedRun(ctx context.Context, uid string) error {
	deleteQuery, err := createDeleteEntityStatement(s.db.Driver, TABLE_PROCESSED_RUNS)
	if err != nil {
		return err
	}
	result, err := s.exec(ctx, deleteQuery, uid)
	if err != nil {
		s.logger.Error("Failed to delete processed run", "error", err, "uid", uid)
		return serviceerrors.StorageFailed("delete processed run", uid, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.Error("Failed to get rows affected", "error", err, "uid", uid)
		return serviceerrors.StorageFailed("count deleted rows", uid, err)
	}
	if rowsAffected == 0 {
		return serviceerrors.ProcessedRunNotFound(uid)
	}
	s.logger.Info("Deleted processed run", "uid", uid)
	return nil
}

// timestamp scans the text or native time values the drivers return.
type timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	}
	return fmt.Errorf("cannot scan %T into a timestamp", src)
}

func (t *timestamp) parse(s string) error {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("cannot parse timestamp %q", s)
}
