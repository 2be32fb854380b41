package tiledclient

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/PaesslerAG/jsonpath"

	"github.com/nsls2-sst/ucal-export/pkg/api"
)

// Node is one entry of a search listing.
type Node struct {
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes"`
}

// Kind is the numpy kind character of an array node ("i", "u", "f", ...),
// empty for containers.
func (n Node) Kind() string {
	v, err := jsonpath.Get("$.structure.data_type.kind", n.Attributes)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// StructureFamily is "array", "container", "table", ...
func (n Node) StructureFamily() string {
	s, _ := n.Attributes["structure_family"].(string)
	return s
}

type searchResponse struct {
	Data  []Node         `json:"data"`
	Links map[string]any `json:"links"`
	Meta  map[string]any `json:"meta"`
}

// GetMetadata returns the metadata mapping of the node at path.
func (c *Client) GetMetadata(path ...string) (map[string]any, error) {
	respBody, err := c.doRequest(endpointMetadata+nodePath(path...), nil)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(respBody, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	v, err := jsonpath.Get("$.data.attributes.metadata", doc)
	if err != nil {
		return nil, fmt.Errorf("metadata missing from response: %w", err)
	}
	metadata, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("metadata of %s is %T, not a mapping", nodePath(path...), v)
	}
	return metadata, nil
}

// ListChildren returns every child of the container at path, following
// pagination.
func (c *Client) ListChildren(path ...string) ([]Node, error) {
	var nodes []Node
	for offset := 0; ; {
		query := url.Values{}
		query.Set("page[offset]", strconv.Itoa(offset))
		query.Set("page[limit]", strconv.Itoa(searchPageSize))
		query.Set("fields", "structure_family")
		query.Add("fields", "structure")
		respBody, err := c.doRequest(endpointSearch+nodePath(path...), query)
		if err != nil {
			return nil, err
		}
		page, err := unmarshalResponse[searchResponse](respBody)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, page.Data...)
		next, _ := page.Links["next"].(string)
		if next == "" || len(page.Data) == 0 {
			return nodes, nil
		}
		offset += len(page.Data)
	}
}

// GetArray reads the full array at path. kind is the node's numpy kind and
// decides whether the array is marked as integer.
func (c *Client) GetArray(kind string, path ...string) (*api.Array, error) {
	query := url.Values{}
	query.Set("format", "application/json")
	respBody, err := c.doRequest(endpointArrayFull+nodePath(path...), query)
	if err != nil {
		return nil, err
	}
	var nested any
	if err := json.Unmarshal(respBody, &nested); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	arr, err := DecodeArray(nested)
	if err != nil {
		return nil, fmt.Errorf("array %s: %w", nodePath(path...), err)
	}
	if kind == "i" || kind == "u" {
		arr.DType = api.Int64
	}
	return arr, nil
}

// DecodeArray converts a nested JSON list into a row-major array. Ragged
// lists and non-numeric leaves are rejected.
func DecodeArray(nested any) (*api.Array, error) {
	shape := []int{}
	for v := nested; ; {
		list, ok := v.([]any)
		if !ok {
			break
		}
		shape = append(shape, len(list))
		if len(list) == 0 {
			break
		}
		v = list[0]
	}
	size := 1
	for _, d := range shape {
		size *= d
	}
	values := make([]float64, 0, size)
	var walk func(v any, depth int) error
	walk = func(v any, depth int) error {
		if depth == len(shape) {
			switch x := v.(type) {
			case float64:
				values = append(values, x)
			case bool:
				if x {
					values = append(values, 1)
				} else {
					values = append(values, 0)
				}
			case nil:
				values = append(values, math.NaN())
			default:
				return fmt.Errorf("non-numeric value %v", v)
			}
			return nil
		}
		list, ok := v.([]any)
		if !ok || len(list) != shape[depth] {
			return fmt.Errorf("ragged array at depth %d", depth)
		}
		for _, item := range list {
			if err := walk(item, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(nested, 0); err != nil {
		return nil, err
	}
	return &api.Array{DType: api.Float64, Shape: shape, Values: values}, nil
}
