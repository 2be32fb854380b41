package handlers

import (
	"context"
	"net/http"

	"github.com/nsls2-sst/ucal-export/internal/export"
	"github.com/nsls2-sst/ucal-export/internal/messages"
)

type ExportResponse struct {
	UID        string   `json:"uid"`
	ExportPath string   `json:"export_path"`
	Written    []string `json:"written"`
	Skipped    []string `json:"skipped"`
}

type ProcessResponse struct {
	UID       string `json:"uid"`
	Processed bool   `json:"processed"`
}

// HandleExport exports one run with the same retry policy as the CLI and
// answers once every format has been attempted.
func (h *Handlers) HandleExport(req *Request, w http.ResponseWriter, uid string) {
	logger := req.Logger.With("uid", uid)
	result, err := export.WithRetry(req.Ctx, h.retry, logger, func(ctx context.Context) (*export.Result, error) {
		return h.exporter.ExportRun(ctx, uid)
	})
	if err != nil {
		h.errorResponse(req, w, err)
		return
	}
	h.successResponse(req, w, ExportResponse{
		UID:        uid,
		ExportPath: result.ExportPath,
		Written:    nonNil(result.Written),
		Skipped:    nonNil(result.Skipped),
	}, http.StatusOK)
}

func (h *Handlers) HandleProcess(req *Request, w http.ResponseWriter, uid string, reprocess bool) {
	if h.processor == nil {
		h.ErrorWithMessageCode(req, w, messages.ProcessingUnavailable)
		return
	}
	processed, err := h.processor.Process(req.Ctx, uid, reprocess)
	if h.metrics != nil {
		h.metrics.ObserveProcessing(processed, err)
	}
	if err != nil {
		h.errorResponse(req, w, err)
		return
	}
	h.successResponse(req, w, ProcessResponse{UID: uid, Processed: processed}, http.StatusOK)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
