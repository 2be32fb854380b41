package serviceerrors

import (
	"errors"
	"fmt"
)

// StorageError is a failed operation of the processing store.
type StorageError struct {
	// Op names the store operation, i.e. "count processed runs".
	Op       string
	UID      string
	NotFound bool
	cause    error
}

func (e *StorageError) Error() string {
	if e.NotFound {
		return fmt.Sprintf("processed run '%s' not found", e.UID)
	}
	if e.UID == "" {
		return fmt.Sprintf("processing store: %s: %v", e.Op, e.cause)
	}
	return fmt.Sprintf("processing store: %s for run '%s': %v", e.Op, e.UID, e.cause)
}

func (e *StorageError) Unwrap() error {
	return e.cause
}

func StorageFailed(op string, uid string, err error) *StorageError {
	return &StorageError{Op: op, UID: uid, cause: err}
}

func ProcessedRunNotFound(uid string) *StorageError {
	return &StorageError{Op: "find processed run", UID: uid, NotFound: true}
}

// IsNotFound reports whether err says no processed run exists.
func IsNotFound(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.NotFound
}
