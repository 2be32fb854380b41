package writers

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"

	"github.com/nsls2-sst/ucal-export/internal/extract"
	"github.com/nsls2-sst/ucal-export/internal/header"
	"github.com/nsls2-sst/ucal-export/internal/messages"
	"github.com/nsls2-sst/ucal-export/internal/serviceerrors"
	"github.com/nsls2-sst/ucal-export/pkg/api"
)

const (
	FormatAthena          = "Athena"
	DefaultAthenaNameFmt  = "scan_{scan}.dat"
	athenaSeparatorLength = 79
)

// AthenaOptions are the caller supplied parts of the legacy header.
type AthenaOptions struct {
	// NameFormat is filled with {field} values from the scan info.
	NameFormat    string
	C1            string
	C2            string
	HeaderUpdates *header.Metadata
	// Strict reduces a list-valued scan number to its first element.
	Strict bool
}

// AthenaExporter writes the legacy ASCII format. It uses the raw extractor
// columns and never the normalized names.
type AthenaExporter struct {
	extractor ChannelExtractor
	options   AthenaOptions
	logger    *slog.Logger
	OnWritten WrittenFunc
}

func NewAthenaExporter(extractor ChannelExtractor, options AthenaOptions, logger *slog.Logger) *AthenaExporter {
	if options.NameFormat == "" {
		options.NameFormat = DefaultAthenaNameFmt
	}
	return &AthenaExporter{extractor: extractor, options: options, logger: logger.With("format", FormatAthena)}
}

func (a *AthenaExporter) Format() string {
	return FormatAthena
}

func (a *AthenaExporter) Export(ctx context.Context, folder string, run *api.Run) (bool, error) {
	if skipWithoutPrimary(a.logger, FormatAthena, run) {
		return false, nil
	}
	a.logger.Info("Getting athena header and data", "scan_id", run.ScanID())
	channels, _, err := a.extractor.Extract(ctx, run, extract.Options{OmitArrayKeys: true})
	if err != nil {
		return false, err
	}
	legacy := header.BuildLegacy(run)
	legacy.Columns = channels.Names()

	name, err := FillTemplate(a.options.NameFormat, legacy.ScanInfo)
	if err != nil {
		return false, err
	}
	filename := filepath.Join(folder, name)

	a.logger.Info("Writing Athena", "path", filename)
	if err := WriteAthena(filename, legacy, channels, a.options); err != nil {
		return false, serviceerrors.NewServiceError(messages.WriteFailed, "Format", FormatAthena, "Path", filename, "Error", err.Error()).WithCause(err)
	}
	notify(a.OnWritten, FormatAthena, filename)
	return true, nil
}

// AthenaHeader renders the legacy header block, every line comment-prefixed.
func AthenaHeader(legacy *header.Legacy, rows int, opts AthenaOptions) string {
	info := header.NewMetadata()
	legacy.ScanInfo.Each(info.Set)
	if opts.HeaderUpdates != nil {
		opts.HeaderUpdates.Each(info.Set)
	}
	if opts.Strict {
		if v, ok := info.Get("scan"); ok {
			if list, ok := v.([]any); ok && len(list) > 0 {
				info.Set("scan", list[0])
			}
		}
	}
	str := func(key string) string { return info.GetString(key, "") }
	motor := func(key string) float64 {
		v, _ := legacy.Motors.Get(key)
		return cast.ToFloat64(v)
	}

	lines := []string{
		"NSLS",
		str("date"),
		fmt.Sprintf("PTS:%11d COLS: %11d", rows, len(legacy.Columns)),
		fmt.Sprintf("Sample: %s   loadid: %s", str("sample"), str("loadid")),
		"Command: " + str("command"),
		fmt.Sprintf("Slit: %.2f", motor("exslit")),
		fmt.Sprintf("Sample Position (XYZ): %.2f %.2f %.2f %.2f", motor("samplex"), motor("sampley"), motor("samplez"), motor("sampler")),
		fmt.Sprintf("Maniplator Position (XYZ): %.2f %.2f %.2f %.2f", motor("manipx"), motor("manipy"), motor("manipz"), motor("manipr")),
		"Scan: " + str("scan"),
		opts.C1,
		opts.C2,
		strings.Repeat("-", athenaSeparatorLength),
		strings.Join(legacy.Columns, " "),
	}
	return CommentLines(strings.Join(lines, "\n"), "#")
}

// WriteAthena writes the header and one " %8.8e" field per value.
func WriteAthena(filename string, legacy *header.Legacy, channels *api.ChannelSet, opts AthenaOptions) error {
	arrays := channels.Arrays()
	rows, err := rowCount(channels.Names(), arrays)
	if err != nil {
		return err
	}
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if _, err := w.WriteString(AthenaHeader(legacy, rows, opts) + "\n"); err != nil {
		return err
	}
	fields := make([]string, len(arrays))
	for r := 0; r < rows; r++ {
		for c, a := range arrays {
			fields[c] = fmt.Sprintf(" %8.8e", a.Values[r])
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
