package processing

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/fxamacker/cbor/v2"
	shellquote "github.com/kballard/go-shellquote"

	"github.com/nsls2-sst/ucal-export/internal/abstractions"
	"github.com/nsls2-sst/ucal-export/pkg/api"
)

// ExecProcessor runs the analysis program as a child process. The run uid
// and save directory are appended to the configured command line, followed
// by --reprocess when requested. The program prints a CBOR encoded
// ProcessingResult on stdout.
type ExecProcessor struct {
	args   []string
	logger *slog.Logger
}

func NewExecProcessor(command string, logger *slog.Logger) (*ExecProcessor, error) {
	args, err := shellquote.Split(command)
	if err != nil {
		return nil, fmt.Errorf("parse processing command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("processing command is empty")
	}
	return &ExecProcessor{args: args, logger: logger}, nil
}

func (p *ExecProcessor) Name() string {
	return p.args[0]
}

func (p *ExecProcessor) HandleRun(ctx context.Context, run *api.Run, saveDirectory string, reprocess bool) (*abstractions.ProcessingResult, error) {
	args := append(append([]string{}, p.args[1:]...), run.UID(), saveDirectory)
	if reprocess {
		args = append(args, "--reprocess")
	}
	cmd := exec.CommandContext(ctx, p.args[0], args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	p.logger.Info("Running the analysis program", "command", shellquote.Join(cmd.Args...))
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", p.args[0], err, strings.TrimSpace(stderr.String()))
	}
	result := &abstractions.ProcessingResult{}
	if err := cbor.Unmarshal(stdout.Bytes(), result); err != nil {
		return nil, fmt.Errorf("decode the output of %s: %w", p.args[0], err)
	}
	return result, nil
}
