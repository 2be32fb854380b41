package abstractions

import (
	"context"
	"log/slog"
	"time"

	"github.com/nsls2-sst/ucal-export/pkg/api"
)

// Storage records the runs the analysis step has processed. Records are
// keyed by run uid; IsProcessed also matches the save directory so a run
// moved to another proposal is processed again.
type Storage interface {
	WithLogger(logger *slog.Logger) Storage
	// GetDatasourceName is the driver name, used in logs.
	GetDatasourceName() string
	Ping(timeout time.Duration) error

	IsProcessed(ctx context.Context, uid string, saveDirectory string) (bool, error)
	GetProcessedRun(ctx context.Context, uid string) (*api.ProcessedRun, error)
	SaveProcessedRun(ctx context.Context, run *api.ProcessedRun) error
	DeleteProcessedRun(ctx context.Context, uid string) error
	Close() error
}
