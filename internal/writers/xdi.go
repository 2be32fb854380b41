package writers

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/nsls2-sst/ucal-export/internal/header"
	"github.com/nsls2-sst/ucal-export/internal/lookup"
	"github.com/nsls2-sst/ucal-export/internal/messages"
	"github.com/nsls2-sst/ucal-export/internal/serviceerrors"
	"github.com/nsls2-sst/ucal-export/pkg/api"
)

const (
	FormatXDI  = "XDI"
	xdiVersion = "# XDI/1.0 SST-1-NEXAFS/1.0"
	xdiEndMeta = "# ///"
)

// XDIExporter writes the XAS Data Interchange text format.
type XDIExporter struct {
	extractor     ChannelExtractor
	logger        *slog.Logger
	HeaderUpdates *header.Metadata
	OnWritten     WrittenFunc
}

func NewXDIExporter(extractor ChannelExtractor, logger *slog.Logger) *XDIExporter {
	return &XDIExporter{extractor: extractor, logger: logger.With("format", FormatXDI)}
}

func (x *XDIExporter) Format() string {
	return FormatXDI
}

func (x *XDIExporter) Export(ctx context.Context, folder string, run *api.Run) (bool, error) {
	if skipWithoutPrimary(x.logger, FormatXDI, run) {
		return false, nil
	}
	hdr, channels, err := Canonical(ctx, x.extractor, run, x.HeaderUpdates, true)
	if err != nil {
		return false, err
	}
	x.logger.Info("Got XDI data", "scan_id", run.ScanID(), "columns", channels.Len())

	filename := MakeFilename(folder, hdr, "xdi")
	x.logger.Info("Exporting XDI", "path", filename)
	comment := lookup.StringDefault(map[string]any(run.Start), "comment", "")
	if err := WriteXDI(filename, hdr.Flatten(), comment, channels); err != nil {
		return false, serviceerrors.NewServiceError(messages.WriteFailed, "Format", FormatXDI, "Path", filename, "Error", err.Error()).WithCause(err)
	}
	notify(x.OnWritten, FormatXDI, filename)
	return true, nil
}

// WriteXDI writes the header block, comment, column line and data rows.
func WriteXDI(filename string, metadata *header.Metadata, comment string, channels *api.ChannelSet) error {
	names := channels.Names()
	arrays := channels.Arrays()
	rows, err := rowCount(names, arrays)
	if err != nil {
		return err
	}
	verbs := make([]string, len(arrays))
	for i, a := range arrays {
		verbs[i] = ColumnFormat(a)
	}

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	lines := []string{xdiVersion}
	metadata.Each(func(key string, value any) {
		lines = append(lines, fmt.Sprintf("# %s: %s", key, header.FormatValue(value)))
	})
	lines = append(lines,
		xdiEndMeta,
		CommentLines(comment, "#"),
		"#"+strings.Repeat("-", 50),
		"# "+strings.Join(names, " "),
	)
	if _, err := w.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		return err
	}

	fields := make([]string, len(arrays))
	for r := 0; r < rows; r++ {
		for c, a := range arrays {
			fields[c] = FormatValue(verbs[c], a.Values[r])
		}
		if _, err := w.WriteString(strings.Join(fields, " ") + "\n"); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}
