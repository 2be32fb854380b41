package messages

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// This package provides all the error messages that should be reported to the operator.
// Note that we add a comment with the message parameters so that it is possible
// to see the parameters in the IDE when creating an error message.
var (
	// Run identity errors

	// InvalidRunID The run identifier '{{.RunId}}' is not a valid uid.
	InvalidRunID = createMessage(
		KindFatal,
		"The run identifier '{{.RunId}}' is not a valid uid.",
	)

	// RunNotFound The run {{.RunId}} was not found in the {{.Beamline}} catalog.
	RunNotFound = createMessage(
		KindFatal,
		"The run {{.RunId}} was not found in the {{.Beamline}} catalog.",
	)

	// StartDocumentInvalid The start document of run {{.RunId}} is invalid: '{{.Error}}'.
	StartDocumentInvalid = createMessage(
		KindFatal,
		"The start document of run {{.RunId}} is invalid: '{{.Error}}'.",
	)

	// CatalogRequestFailed The catalog request for {{.Path}} failed: '{{.Error}}'.
	CatalogRequestFailed = createMessage(
		KindFatal,
		"The catalog request for {{.Path}} failed: '{{.Error}}'.",
	)

	// Proposal and path errors

	// ProposalMetadataMissing Proposal metadata not loaded for scan {{.ScanId}}.
	ProposalMetadataMissing = createMessage(
		KindFatal,
		"Proposal metadata not loaded for scan {{.ScanId}}.",
	)

	// ExportDateInvalid The start_datetime '{{.Value}}' of scan {{.ScanId}} could not be parsed.
	ExportDateInvalid = createMessage(
		KindFatal,
		"The start_datetime '{{.Value}}' of scan {{.ScanId}} could not be parsed.",
	)

	// ExportPathFailed The export directory {{.Path}} could not be created: '{{.Error}}'.
	ExportPathFailed = createMessage(
		KindFatal,
		"The export directory {{.Path}} could not be created: '{{.Error}}'.",
	)

	// Serialization errors

	// WriteFailed The {{.Format}} file {{.Path}} could not be written: '{{.Error}}'.
	WriteFailed = createMessage(
		KindFatal,
		"The {{.Format}} file {{.Path}} could not be written: '{{.Error}}'.",
	)

	// NoPrimaryStream {{.Format}} export does not support streams other than primary, skipping scan {{.ScanId}}.
	NoPrimaryStream = createMessage(
		KindSkip,
		"{{.Format}} export does not support streams other than primary, skipping scan {{.ScanId}}.",
	)

	// Processing errors

	// ProcessingFailed The processing of run {{.RunId}} failed: '{{.Error}}'.
	ProcessingFailed = createMessage(
		KindFatal,
		"The processing of run {{.RunId}} failed: '{{.Error}}'.",
	)

	// CacheWriteFailed Could not write {{.Kind}} info to {{.Path}}: '{{.Error}}'.
	CacheWriteFailed = createMessage(
		KindLogged,
		"Could not write {{.Kind}} info to {{.Path}}: '{{.Error}}'.",
	)

	// ProcessingUnavailable Processing needs a database section in the configuration.
	ProcessingUnavailable = createMessage(
		KindFatal,
		"Processing needs a database section in the configuration.",
	)

	// Trigger server errors

	// MethodNotAllowed The HTTP method {{.Method}} is not allowed for the API {{.Api}}.
	MethodNotAllowed = createMessage(
		KindFatal,
		"The HTTP method {{.Method}} is not allowed for the API {{.Api}}.",
	)

	// Storage related errors

	// DatabaseOperationFailed The request for the {{.Type}} resource {{.ResourceId}} failed: '{{.Error}}'.
	DatabaseOperationFailed = createMessage(
		KindFatal,
		"The request for the {{.Type}} resource {{.ResourceId}} failed: '{{.Error}}'.",
	)

	// Configuration related errors

	// ConfigurationFailed The exporter startup failed: '{{.Error}}'.
	ConfigurationFailed = createMessage(
		KindFatal,
		"The exporter startup failed: '{{.Error}}'.",
	)

	// InternalError An internal error occurred: '{{.Error}}'.
	InternalError = createMessage(
		KindFatal,
		"An internal error occurred: '{{.Error}}'.",
	)
)

// Kind classifies how a message is handled by the caller.
type Kind int

const (
	// KindFatal aborts the export of the run.
	KindFatal Kind = iota
	// KindSkip is an expected outcome, reported but not an error.
	KindSkip
	// KindLogged is logged and otherwise ignored.
	KindLogged
)

func (k Kind) String() string {
	switch k {
	case KindSkip:
		return "skip"
	case KindLogged:
		return "logged"
	default:
		return "fatal"
	}
}

type MessageCode struct {
	kind Kind
	one  string
}

func (m *MessageCode) GetKind() Kind {
	return m.kind
}

func (m *MessageCode) GetMessage() string {
	return m.one
}

func createMessage(kind Kind, one string) *MessageCode {
	return &MessageCode{
		kind,
		one,
	}
}

// GetErrorMessage renders the message template. The params are name/value pairs,
// i.e. "RunId", uid, "Error", err.Error().
func GetErrorMessage(messageCode *MessageCode, messageParams ...any) string {
	if messageCode == nil {
		return "unknown error"
	}
	values := make(map[string]any, len(messageParams)/2)
	for i := 0; i+1 < len(messageParams); i += 2 {
		values[fmt.Sprint(messageParams[i])] = messageParams[i+1]
	}
	tmpl, err := template.New("message").Option("missingkey=zero").Parse(messageCode.one)
	if err != nil {
		return messageCode.one
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, values); err != nil {
		return messageCode.one
	}
	return strings.ReplaceAll(buf.String(), "<no value>", "")
}
