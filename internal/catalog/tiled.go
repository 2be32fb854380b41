// Package catalog resolves run identifiers against a Tiled server.
package catalog

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/nsls2-sst/ucal-export/internal/messages"
	"github.com/nsls2-sst/ucal-export/internal/serviceerrors"
	"github.com/nsls2-sst/ucal-export/pkg/api"
	"github.com/nsls2-sst/ucal-export/pkg/tiledclient"
)

const (
	StreamPrimary  = "primary"
	StreamBaseline = "baseline"
	rawContainer   = "raw"
	dataContainer  = "data"
)

var tracer = otel.Tracer("github.com/nsls2-sst/ucal-export/internal/catalog")

// Tiled reads runs from <beamline>/raw/<uid> of a Tiled server.
type Tiled struct {
	client   *tiledclient.Client
	beamline string
	logger   *slog.Logger
	schema   *StartSchema
}

func NewTiled(client *tiledclient.Client, beamline string, logger *slog.Logger) (*Tiled, error) {
	schema, err := NewStartSchema()
	if err != nil {
		return nil, err
	}
	return &Tiled{client: client, beamline: beamline, logger: logger, schema: schema}, nil
}

func (t *Tiled) Name() string {
	return t.beamline
}

func (t *Tiled) GetRun(ctx context.Context, uid string) (*api.Run, error) {
	ctx, span := tracer.Start(ctx, "catalog.GetRun")
	defer span.End()
	span.SetAttributes(attribute.String("run.uid", uid), attribute.String("catalog.beamline", t.beamline))

	id, err := uuid.Parse(strings.TrimSpace(uid))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, serviceerrors.NewServiceError(messages.InvalidRunID, "RunId", uid).WithCause(err)
	}
	runPath := []string{t.beamline, rawContainer, id.String()}
	client := t.client.WithContext(ctx).WithLogger(t.logger)

	metadata, err := client.GetMetadata(runPath...)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if tiledclient.IsNotFound(err) {
			return nil, serviceerrors.NewServiceError(messages.RunNotFound, "RunId", id.String(), "Beamline", t.beamline).WithCause(err)
		}
		return nil, catalogError(runPath, err)
	}
	start, _ := metadata["start"].(map[string]any)
	if err := t.schema.Validate(start); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, serviceerrors.NewServiceError(messages.StartDocumentInvalid, "RunId", id.String(), "Error", err.Error()).WithCause(err)
	}
	run := &api.Run{Start: api.Document(start)}

	children, err := client.ListChildren(runPath...)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, catalogError(runPath, err)
	}
	for _, child := range children {
		switch child.ID {
		case StreamPrimary:
			if run.Primary, err = t.readStream(client, runPath, StreamPrimary); err != nil {
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}
		case StreamBaseline:
			if run.Baseline, err = t.readStream(client, runPath, StreamBaseline); err != nil {
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}
		}
	}
	t.logger.Info("Loaded run", "uid", id.String(), "scan_id", run.ScanID(), "primary", run.HasPrimary())
	return run, nil
}

// readStream loads the descriptors and every array of a stream. An array
// that cannot be read is logged and left out of Data so the extractor drops
// the channel.
func (t *Tiled) readStream(client *tiledclient.Client, runPath []string, name string) (*api.Stream, error) {
	streamPath := append(append([]string{}, runPath...), name)
	metadata, err := client.GetMetadata(streamPath...)
	if err != nil {
		return nil, catalogError(streamPath, err)
	}
	stream := &api.Stream{Data: map[string]*api.Array{}, Descriptors: descriptors(metadata)}

	dataPath := append(append([]string{}, streamPath...), dataContainer)
	nodes, err := client.ListChildren(dataPath...)
	if err != nil {
		return nil, catalogError(dataPath, err)
	}
	for _, node := range nodes {
		if family := node.StructureFamily(); family != "" && family != "array" {
			continue
		}
		stream.Keys = append(stream.Keys, node.ID)
		arr, err := client.GetArray(node.Kind(), append(append([]string{}, dataPath...), node.ID)...)
		if err != nil {
			t.logger.Warn("Skipping unreadable channel", "stream", name, "channel", node.ID, "error", err.Error())
			continue
		}
		stream.Data[node.ID] = arr
	}
	return stream, nil
}

func descriptors(metadata map[string]any) []api.Descriptor {
	raw, _ := metadata["descriptors"].([]any)
	out := make([]api.Descriptor, 0, len(raw))
	for _, d := range raw {
		doc, _ := d.(map[string]any)
		configuration, _ := doc["configuration"].(map[string]any)
		out = append(out, api.Descriptor{Configuration: configuration})
	}
	return out
}

func catalogError(path []string, err error) error {
	return serviceerrors.NewServiceError(messages.CatalogRequestFailed, "Path", strings.Join(path, "/"), "Error", err.Error()).WithCause(err)
}
