package abstractions

import "github.com/nsls2-sst/ucal-export/internal/messages"

// ServiceError is an interface that represents an error in the exporter.
// Error() can be used to log the error, MessageCode() and MessageParams()
// can be used to report the error to the orchestrator.
type ServiceError interface {
	Error() string                      // This allows this to be used with the error interface
	MessageCode() *messages.MessageCode // The message code to report
	MessageParams() []any               // The parameters to the message code
	IsFatal() bool                      // Whether the export of the run must be aborted
}
