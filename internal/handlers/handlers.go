// Package handlers serves the export trigger endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nsls2-sst/ucal-export/internal/export"
	"github.com/nsls2-sst/ucal-export/internal/logging"
	"github.com/nsls2-sst/ucal-export/internal/messages"
	"github.com/nsls2-sst/ucal-export/internal/metrics"
	"github.com/nsls2-sst/ucal-export/internal/serviceerrors"
)

// RunExporter is export.Service as seen by the trigger endpoints.
type RunExporter interface {
	ExportRun(ctx context.Context, uid string) (*export.Result, error)
}

// RunProcessor is processing.Service as seen by the trigger endpoints.
type RunProcessor interface {
	Process(ctx context.Context, uid string, reprocess bool) (bool, error)
}

// Request is the request scoped state the server hands every handler.
type Request struct {
	Ctx       context.Context
	RequestID string
	Logger    *slog.Logger
	Method    string
	URI       string
}

type Handlers struct {
	exporter  RunExporter
	processor RunProcessor
	retry     export.RetryPolicy
	metrics   *metrics.Metrics
	build     string
	buildDate string
}

// New returns the handlers. processor may be nil when no processing store
// is configured; the process endpoint then answers 503.
func New(exporter RunExporter, processor RunProcessor, retry export.RetryPolicy, m *metrics.Metrics, build string, buildDate string) *Handlers {
	return &Handlers{
		exporter:  exporter,
		processor: processor,
		retry:     retry,
		metrics:   m,
		build:     build,
		buildDate: buildDate,
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
	Trace string `json:"trace"`
}

// StatusFor maps an error to the HTTP status reported to the caller.
func StatusFor(err error) int {
	if serviceerrors.IsNotFound(err) {
		return http.StatusNotFound
	}
	var se *serviceerrors.ServiceError
	if !errors.As(err, &se) {
		return http.StatusInternalServerError
	}
	switch se.MessageCode() {
	case messages.InvalidRunID:
		return http.StatusBadRequest
	case messages.RunNotFound:
		return http.StatusNotFound
	case messages.MethodNotAllowed:
		return http.StatusMethodNotAllowed
	case messages.StartDocumentInvalid, messages.ProposalMetadataMissing, messages.ExportDateInvalid:
		return http.StatusUnprocessableEntity
	case messages.CatalogRequestFailed:
		return http.StatusBadGateway
	case messages.ProcessingUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) ErrorWithMessageCode(req *Request, w http.ResponseWriter, messageCode *messages.MessageCode, messageParams ...any) {
	h.errorResponse(req, w, serviceerrors.NewServiceError(messageCode, messageParams...))
}

func (h *Handlers) errorResponse(req *Request, w http.ResponseWriter, err error) {
	code := StatusFor(err)
	header := w.Header()
	header.Del("Content-Length")
	header.Set("X-Content-Type-Options", "nosniff")
	h.writeJSON(req, w, ErrorResponse{Error: err.Error(), Code: code, Trace: req.RequestID}, code)
	logging.LogRequestFailed(req.Ctx, req.Logger, code, err.Error())
}

func (h *Handlers) successResponse(req *Request, w http.ResponseWriter, response any, code int) {
	h.writeJSON(req, w, response, code)
	logging.LogRequestSuccess(req.Ctx, req.Logger, code)
}

func (h *Handlers) writeJSON(req *Request, w http.ResponseWriter, v any, code int) {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		req.Logger.Error("Failed to serialize the response", "error", err.Error())
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(body); err != nil {
		req.Logger.Warn("Failed to write the response", "error", err.Error())
	}
}
