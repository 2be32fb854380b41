// Package processing hands runs to the external analysis step and records
// what it computed, so later exports pick the derived channels up.
package processing

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cast"

	"github.com/nsls2-sst/ucal-export/internal/abstractions"
	"github.com/nsls2-sst/ucal-export/internal/logging"
	"github.com/nsls2-sst/ucal-export/internal/messages"
	"github.com/nsls2-sst/ucal-export/internal/serviceerrors"
	"github.com/nsls2-sst/ucal-export/pkg/api"
)

const (
	KindCalibration = "calibration"
	KindProcessing  = "processing"
)

// SaveDirectoryFunc resolves where the analysis step keeps results for a run.
type SaveDirectoryFunc func(run *api.Run) (string, error)

type Service struct {
	catalog       abstractions.Catalog
	processor     abstractions.Processor
	store         abstractions.Storage
	saveDirectory SaveDirectoryFunc
	infoDir       string
	logger        *slog.Logger
}

func NewService(catalog abstractions.Catalog, processor abstractions.Processor, store abstractions.Storage, saveDirectory SaveDirectoryFunc, infoDir string, logger *slog.Logger) *Service {
	return &Service{
		catalog:       catalog,
		processor:     processor,
		store:         store,
		saveDirectory: saveDirectory,
		infoDir:       infoDir,
		logger:        logger,
	}
}

// Process runs the analysis for uid. It returns false when the run has no
// primary stream and nothing was processed.
func (s *Service) Process(ctx context.Context, uid string, reprocess bool) (bool, error) {
	run, err := s.catalog.GetRun(ctx, uid)
	if err != nil {
		return false, err
	}
	return s.ProcessRun(ctx, run, reprocess)
}

func (s *Service) ProcessRun(ctx context.Context, run *api.Run, reprocess bool) (bool, error) {
	logger := logging.RunLogger(s.logger, run.UID(), run.ScanID())
	if !run.HasPrimary() {
		logger.Info("Run has no primary stream, skipping processing")
		return false, nil
	}
	saveDirectory, err := s.saveDirectory(run)
	if err != nil {
		return false, err
	}

	logging.LogStageStarted(ctx, logger, "process", "processor", s.processor.Name(), "save_directory", saveDirectory)
	result, err := s.processor.HandleRun(ctx, run, saveDirectory, reprocess)
	if err != nil {
		wrapped := serviceerrors.NewServiceError(messages.ProcessingFailed, "RunId", run.UID(), "Error", err.Error()).WithCause(err)
		logging.LogStageFailed(ctx, logger, "process", wrapped)
		return false, wrapped
	}

	record := &api.ProcessedRun{
		UID:           run.UID(),
		ScanID:        cast.ToInt64(run.ScanID()),
		SaveDirectory: saveDirectory,
		ROIs:          result.ROIs,
		Channels:      result.Channels,
	}
	if err := s.store.SaveProcessedRun(ctx, record); err != nil {
		logging.LogStageFailed(ctx, logger, "process", err)
		return false, err
	}

	s.writeInfo(logger, KindCalibration, result.CalibrationInfo)
	s.writeInfo(logger, KindProcessing, result.ProcessingInfo)
	logging.LogStageSuccess(ctx, logger, "process", "channels", len(record.Channels), "rois", len(record.ROIs))
	return true, nil
}

// InfoPath is the file holding the latest info blob of the given kind.
func (s *Service) InfoPath(kind string) string {
	return filepath.Join(s.infoDir, kind+"_info.cbor")
}

// writeInfo overwrites the info blob of a kind. Failures are logged only.
func (s *Service) writeInfo(logger *slog.Logger, kind string, info any) {
	if info == nil || s.infoDir == "" {
		return
	}
	path := s.InfoPath(kind)
	err := func() error {
		data, err := cbor.Marshal(info)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(s.infoDir, 0o755); err != nil {
			return err
		}
		return os.WriteFile(path, data, 0o644)
	}()
	if err != nil {
		logger.Warn(messages.GetErrorMessage(messages.CacheWriteFailed, "Kind", kind, "Path", path, "Error", err.Error()))
	}
}

// ReadInfo decodes the latest info blob of a kind into out.
func (s *Service) ReadInfo(kind string, out any) error {
	data, err := os.ReadFile(s.InfoPath(kind))
	if err != nil {
		return err
	}
	return cbor.Unmarshal(data, out)
}
