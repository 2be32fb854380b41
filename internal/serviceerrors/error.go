package serviceerrors

import (
	"errors"

	"github.com/nsls2-sst/ucal-export/internal/messages"
)

type ServiceError struct {
	messageCode   *messages.MessageCode
	messageParams []any
	cause         error
}

func (e *ServiceError) Error() string {
	return messages.GetErrorMessage(e.messageCode, e.messageParams...)
}

func (e *ServiceError) Unwrap() error {
	return e.cause
}

func (e *ServiceError) MessageCode() *messages.MessageCode {
	return e.messageCode
}

func (e *ServiceError) MessageParams() []any {
	return e.messageParams
}

// IsFatal reports whether the export of the run should be aborted.
func (e *ServiceError) IsFatal() bool {
	return e.messageCode == nil || e.messageCode.GetKind() == messages.KindFatal
}

func NewServiceError(messageCode *messages.MessageCode, messageParams ...any) *ServiceError {
	return &ServiceError{
		messageCode:   messageCode,
		messageParams: messageParams,
	}
}

// WithCause returns a copy of the error that unwraps to cause.
func (e *ServiceError) WithCause(cause error) *ServiceError {
	return &ServiceError{
		messageCode:   e.messageCode,
		messageParams: e.messageParams,
		cause:         cause,
	}
}

// IsMessage reports whether any error in err's chain is a ServiceError with the given code.
func IsMessage(err error, messageCode *messages.MessageCode) bool {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.messageCode == messageCode
	}
	return false
}
