package sql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nsls2-sst/ucal-export/internal/abstractions"
	"github.com/nsls2-sst/ucal-export/internal/messages"
	"github.com/nsls2-sst/ucal-export/internal/serviceerrors"
)

type TransactionFunction func(*sql.Tx) error

// keepsChanges reports whether work done before err may still be committed.
// Only non fatal service errors keep it.
func keepsChanges(err error) bool {
	if err == nil {
		return true
	}
	var se abstractions.ServiceError
	return errors.As(err, &se) && !se.IsFatal()
}

func (s *SQLStorage) withTransaction(ctx context.Context, op string, uid string, fn TransactionFunction) error {
	txn, err := s.pool.BeginTx(ctx, nil)
	if err != nil {
		return s.transactionFailed("begin", op, uid, err)
	}
	fnErr := fn(txn)
	if keepsChanges(fnErr) {
		if err := txn.Commit(); err != nil {
			return s.transactionFailed("commit", op, uid, err)
		}
		return fnErr
	}
	if err := txn.Rollback(); err != nil {
		return s.transactionFailed("rollback", op, uid, err)
	}
	return fnErr
}

func (s *SQLStorage) transactionFailed(step string, op string, uid string, err error) error {
	s.logger.Error("Transaction failed", "step", step, "operation", op, "uid", uid, "error", err.Error())
	return serviceerrors.NewServiceError(messages.DatabaseOperationFailed, "Type", step+" "+op, "ResourceId", uid, "Error", err.Error()).WithCause(err)
}
