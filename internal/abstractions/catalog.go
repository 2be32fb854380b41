package abstractions

import (
	"context"

	"github.com/nsls2-sst/ucal-export/pkg/api"
)

// Catalog resolves run identifiers to run records. Implementations must
// return a fresh, fully populated record for every call.
type Catalog interface {
	// Name identifies the catalog in the logs, i.e. the beamline.
	Name() string
	GetRun(ctx context.Context, uid string) (*api.Run, error)
}
