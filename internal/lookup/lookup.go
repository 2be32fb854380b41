// Package lookup resolves values from loosely structured run metadata.
//
// Run documents were written by many generations of acquisition code, so the
// same quantity can live under different keys. Callers list every key path
// that has ever been used and take the first one that resolves.
package lookup

import (
	"strconv"
	"strings"

	"github.com/Jeffail/gabs/v2"
	"github.com/spf13/cast"

	"github.com/nsls2-sst/ucal-export/pkg/api"
)

// Path is one candidate: a single key, or nested sub-keys descended in order.
type Path []string

// Key is a single-key candidate.
func Key(name string) Path {
	return Path{name}
}

// Nested is a candidate descending through each key in turn.
func Nested(keys ...string) Path {
	return Path(keys)
}

// Keys turns single keys into candidates.
func Keys(names ...string) []Path {
	paths := make([]Path, 0, len(names))
	for _, n := range names {
		paths = append(paths, Key(n))
	}
	return paths
}

// GetWithFallbacks returns the value at the first candidate that fully
// resolves in thing, or def. A nested candidate is abandoned as soon as one
// of its sub-keys is missing or its parent is not a mapping.
func GetWithFallbacks(thing map[string]any, def any, candidates ...Path) any {
	if thing == nil {
		return def
	}
	for _, path := range candidates {
		if len(path) == 0 {
			continue
		}
		if found, ok := resolve(thing, path); ok {
			return found
		}
	}
	return def
}

// resolve descends one key at a time so that gabs never fans out over a
// list: every step must start from a mapping.
func resolve(thing map[string]any, path Path) (any, bool) {
	node := gabs.Wrap(thing)
	for _, key := range path {
		m, ok := asMap(node.Data())
		if !ok {
			return nil, false
		}
		child := gabs.Wrap(m).Search(key)
		if child == nil {
			return nil, false
		}
		node = child
	}
	return node.Data(), true
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case api.Document:
		return map[string]any(m), true
	default:
		return nil, false
	}
}

// First returns the first element of a sequence-like value, the value itself
// for scalars, and def for nil or empty sequences.
func First(v any, def any) any {
	switch t := v.(type) {
	case nil:
		return def
	case *api.Array:
		if t == nil || len(t.Values) == 0 {
			return def
		}
		return t.Values[0]
	case []any:
		if len(t) == 0 {
			return def
		}
		return t[0]
	case []float64:
		if len(t) == 0 {
			return def
		}
		return t[0]
	case []string:
		if len(t) == 0 {
			return def
		}
		return t[0]
	case []int64:
		if len(t) == 0 {
			return def
		}
		return t[0]
	default:
		return v
	}
}

// Float coerces v to float64, returning def when it cannot.
func Float(v any, def float64) float64 {
	if v == nil {
		return def
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return def
	}
	return f
}

// FirstFloat is Float(First(v)).
func FirstFloat(v any, def float64) float64 {
	return Float(First(v, nil), def)
}

// String renders a scalar the way it is shown in file headers. Integral
// numbers print without a fractional part.
func String(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return String(float64(t))
	default:
		return cast.ToString(v)
	}
}

// StringDefault is String(v) unless v is absent.
func StringDefault(m map[string]any, key string, def string) string {
	v, ok := m[key]
	if !ok {
		return def
	}
	return String(v)
}

// Map returns the nested mapping under key, or an empty one.
func Map(m map[string]any, key string) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	if sub, ok := asMap(m[key]); ok {
		return sub
	}
	return map[string]any{}
}

// ContainsFold reports whether s contains sub, ignoring case.
func ContainsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
