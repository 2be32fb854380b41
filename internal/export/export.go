// Package export sequences the file format exports of one run.
package export

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nsls2-sst/ucal-export/internal/abstractions"
	"github.com/nsls2-sst/ucal-export/internal/logging"
	"github.com/nsls2-sst/ucal-export/internal/messages"
	"github.com/nsls2-sst/ucal-export/internal/metrics"
	"github.com/nsls2-sst/ucal-export/internal/paths"
	"github.com/nsls2-sst/ucal-export/internal/serviceerrors"
	"github.com/nsls2-sst/ucal-export/internal/writers"
	"github.com/nsls2-sst/ucal-export/pkg/api"
)

const uploadTimeout = 2 * time.Minute

var tracer = otel.Tracer("github.com/nsls2-sst/ucal-export/internal/export")

// Target is an exporter and the sub-directory of the export path it writes to.
type Target struct {
	Dir      string
	Exporter writers.Exporter
}

// Uploader mirrors a written file, see objectstore.Mirror.
type Uploader interface {
	Upload(ctx context.Context, path string) error
}

// Result lists the formats written for a run, in order.
type Result struct {
	ExportPath string
	Written    []string
	Skipped    []string
}

type Service struct {
	catalog   abstractions.Catalog
	proposals *paths.Proposals
	targets   []Target
	metrics   *metrics.Metrics
	mirror    Uploader
	logger    *slog.Logger
}

func NewService(catalog abstractions.Catalog, proposals *paths.Proposals, targets []Target, logger *slog.Logger) *Service {
	return &Service{catalog: catalog, proposals: proposals, targets: targets, logger: logger}
}

func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

func (s *Service) WithMirror(mirror Uploader) *Service {
	s.mirror = mirror
	return s
}

// ExportRun writes every target format for uid. Directories are created
// when missing; a partial export from an earlier attempt is overwritten.
func (s *Service) ExportRun(ctx context.Context, uid string) (result *Result, err error) {
	started := time.Now()
	ctx, span := tracer.Start(ctx, "export.ExportRun",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("run.uid", uid)))
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		if s.metrics != nil {
			s.metrics.ObserveRun(started, err)
		}
		span.End()
	}()

	run, err := s.catalog.GetRun(ctx, uid)
	if err != nil {
		return nil, err
	}
	logger := logging.RunLogger(s.logger, run.UID(), run.ScanID())

	exportPath, err := s.proposals.ExportPath(run)
	if err != nil {
		logging.LogStageFailed(ctx, logger, "resolve", err)
		return nil, err
	}
	logging.LogStageSuccess(ctx, logger, "resolve", "export_path", exportPath)
	if err := makeDir(logger, exportPath); err != nil {
		return nil, err
	}

	result = &Result{ExportPath: exportPath}
	for _, target := range s.targets {
		format := target.Exporter.Format()
		folder := filepath.Join(exportPath, target.Dir)
		if err := makeDir(logger, folder); err != nil {
			return result, err
		}
		logging.LogStageStarted(ctx, logger, format, "folder", folder)
		written, err := s.exportFormat(ctx, target.Exporter, folder, run)
		if s.metrics != nil {
			s.metrics.ObserveExport(format, written, err)
		}
		if err != nil {
			logging.LogStageFailed(ctx, logger, format, err)
			return result, err
		}
		if written {
			result.Written = append(result.Written, format)
			logging.LogStageSuccess(ctx, logger, format)
		} else {
			result.Skipped = append(result.Skipped, format)
		}
	}
	return result, nil
}

func (s *Service) exportFormat(ctx context.Context, exporter writers.Exporter, folder string, run *api.Run) (bool, error) {
	ctx, span := tracer.Start(ctx, "export."+exporter.Format(),
		trace.WithAttributes(attribute.String("export.folder", folder)))
	defer span.End()
	written, err := exporter.Export(ctx, folder, run)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.Bool("export.written", written))
	return written, err
}

// FileWritten mirrors a written file to the object store when one is
// configured. Upload failures are logged only.
func (s *Service) FileWritten(format, path string) {
	if s.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()
	err := s.mirror.Upload(ctx, path)
	if s.metrics != nil {
		s.metrics.ObserveUpload(err)
	}
	if err != nil {
		s.logger.Warn("Failed to mirror export file", "format", format, "path", path, "error", err.Error())
	}
}

func makeDir(logger *slog.Logger, dir string) error {
	if _, err := os.Stat(dir); err == nil {
		return nil
	}
	logger.Info("Export path does not exist, making it", "path", dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return serviceerrors.NewServiceError(messages.ExportPathFailed, "Path", dir, "Error", err.Error()).WithCause(err)
	}
	return nil
}
