package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/nsls2-sst/ucal-export/internal/abstractions"
	"github.com/nsls2-sst/ucal-export/internal/analysis"
	"github.com/nsls2-sst/ucal-export/internal/catalog"
	"github.com/nsls2-sst/ucal-export/internal/config"
	"github.com/nsls2-sst/ucal-export/internal/export"
	"github.com/nsls2-sst/ucal-export/internal/extract"
	"github.com/nsls2-sst/ucal-export/internal/logging"
	"github.com/nsls2-sst/ucal-export/internal/messages"
	"github.com/nsls2-sst/ucal-export/internal/metrics"
	"github.com/nsls2-sst/ucal-export/internal/objectstore"
	"github.com/nsls2-sst/ucal-export/internal/paths"
	"github.com/nsls2-sst/ucal-export/internal/processing"
	"github.com/nsls2-sst/ucal-export/internal/serviceerrors"
	"github.com/nsls2-sst/ucal-export/internal/storage"
	"github.com/nsls2-sst/ucal-export/internal/telemetry"
	"github.com/nsls2-sst/ucal-export/internal/tiledarray"
	"github.com/nsls2-sst/ucal-export/internal/writers"
	"github.com/nsls2-sst/ucal-export/pkg/tiledclient"
)

// app holds everything one command invocation needs.
type app struct {
	config      *config.Config
	logger      *slog.Logger
	logShutdown logging.ShutdownFunc
	traces      telemetry.ShutdownFunc
	store       abstractions.Storage
	catalog     *catalog.Tiled
	proposals   *paths.Proposals
	extractor   *extract.Extractor
	exporter    *export.Service
	metrics     *metrics.Metrics
}

func newApp(ctx context.Context, dir string) (*app, error) {
	dirs := []string{}
	if dir != "" {
		dirs = append(dirs, dir)
	}
	conf, err := config.LoadConfig(logging.FallbackLogger(), Version, Build, BuildDate, dirs...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, logShutdown, err := logging.NewLogger(conf.Service.LogLevel)
	if err != nil {
		logger, logShutdown = logging.FallbackLogger(), func() error { return nil }
		logger.Warn("Failed to create the zap logger, using the fallback logger", "error", err.Error())
	}
	a := &app{config: conf, logger: logger, logShutdown: logShutdown, metrics: metrics.New()}

	if a.traces, err = telemetry.Setup(ctx, conf.Telemetry, Version); err != nil {
		a.close()
		return nil, fmt.Errorf("set up telemetry: %w", err)
	}

	if conf.Database != nil {
		if a.store, err = storage.NewStorage(conf.Database, logger); err != nil {
			a.close()
			return nil, fmt.Errorf("open the processing store: %w", err)
		}
	}

	client := tiledclient.NewClient(conf.Catalog.URL).
		WithHTTPClient(catalogHTTPClient(conf.Catalog)).
		WithAPIKey(conf.Catalog.APIKey).
		WithLogger(logger)
	if a.catalog, err = catalog.NewTiled(client, conf.Catalog.Beamline, logger); err != nil {
		a.close()
		return nil, err
	}

	a.proposals = paths.NewProposals(conf.Export.ProposalRoot)
	resolver := analysis.NewResolver(a.store, analysis.ROIsFromConfig(conf.Export.DefaultROIs), logger)
	a.extractor = extract.New(resolver, a.proposals.SaveDirectory, logger)

	xdi := writers.NewXDIExporter(a.extractor, logger)
	hdf5 := writers.NewHDF5Exporter(a.extractor, nil, logger)
	targets := []export.Target{
		{Dir: "xdi", Exporter: xdi},
		{Dir: "hdf5", Exporter: hdf5},
	}
	var athena *writers.AthenaExporter
	if conf.Export.Athena {
		athena = writers.NewAthenaExporter(a.extractor, writers.AthenaOptions{NameFormat: conf.Export.AthenaNameFormat}, logger)
		targets = append(targets, export.Target{Dir: "athena", Exporter: athena})
	}
	a.exporter = export.NewService(a.catalog, a.proposals, targets, logger).WithMetrics(a.metrics)

	mirror, err := objectstore.NewMirror(conf.ObjectStore, a.proposals.Root, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	if mirror != nil {
		a.exporter.WithMirror(mirror)
		xdi.OnWritten = a.exporter.FileWritten
		hdf5.OnWritten = a.exporter.FileWritten
		if athena != nil {
			athena.OnWritten = a.exporter.FileWritten
		}
	}
	return a, nil
}

func (a *app) processingService() (*processing.Service, error) {
	if a.store == nil {
		return nil, serviceerrors.NewServiceError(messages.ProcessingUnavailable)
	}
	processor, err := processing.NewExecProcessor(a.config.Processing.Command, a.logger)
	if err != nil {
		return nil, err
	}
	return processing.NewService(a.catalog, processor, a.store, a.proposals.SaveDirectory, a.config.Processing.InfoDir, a.logger), nil
}

func (a *app) datasetAdapter() *tiledarray.Adapter {
	return tiledarray.NewAdapter(a.extractor, a.logger)
}

// close flushes metrics, traces and logs. Errors are logged only.
func (a *app) close() {
	if a.config.Metrics != nil {
		a.metrics.Flush(a.config.Metrics.TextfilePath, a.logger)
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("Failed to close storage", "error", err.Error())
		}
	}
	if a.traces != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.traces(ctx); err != nil {
			a.logger.Error("Failed to flush traces", "error", err.Error())
		}
	}
	_ = a.logShutdown() // ignore the error
}

func catalogHTTPClient(conf *config.CatalogConfig) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if conf.TLSConfig != nil {
		transport.TLSClientConfig = conf.TLSConfig
	}
	timeout := conf.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(transport)}
}
