package catalog

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// startDocumentSchema lists what the exporter reads unconditionally from the
// start document. Everything else falls back to defaults.
const startDocumentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["uid", "time", "scan_id"],
  "properties": {
    "uid": {"type": "string", "minLength": 1},
    "time": {"type": "number"},
    "scan_id": {"type": ["integer", "number", "array"]},
    "proposal": {"type": ["object", "null"]},
    "motors": {"type": "array"},
    "tes_rois": {"type": "object"},
    "ref_args": {"type": "object"}
  }
}`

// StartSchema validates start documents.
type StartSchema struct {
	schema *gojsonschema.Schema
}

func NewStartSchema() (*StartSchema, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(startDocumentSchema))
	if err != nil {
		return nil, fmt.Errorf("start document schema: %w", err)
	}
	return &StartSchema{schema: schema}, nil
}

// Validate returns every violation joined into one error.
func (s *StartSchema) Validate(start map[string]any) error {
	if start == nil {
		return fmt.Errorf("start document is missing")
	}
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(start))
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return fmt.Errorf("%s", strings.Join(problems, "; "))
}
