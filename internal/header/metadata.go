package header

import (
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Metadata is a flat, ordered mapping of dotted "Namespace.field" keys to
// scalar values. Setting an existing key overwrites it in place.
type Metadata struct {
	keys   []string
	values map[string]any
}

func NewMetadata() *Metadata {
	return &Metadata{values: map[string]any{}}
}

func (m *Metadata) Set(key string, value any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

func (m *Metadata) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// GetString returns the value rendered with FormatValue, or def when absent.
func (m *Metadata) GetString(key string, def string) string {
	v, ok := m.values[key]
	if !ok {
		return def
	}
	return FormatValue(v)
}

// Pop removes key and returns its value.
func (m *Metadata) Pop(key string) (any, bool) {
	v, ok := m.values[key]
	if !ok {
		return nil, false
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return v, true
}

func (m *Metadata) Keys() []string {
	return append([]string(nil), m.keys...)
}

func (m *Metadata) Len() int {
	return len(m.keys)
}

// Each visits every pair in insertion order.
func (m *Metadata) Each(fn func(key string, value any)) {
	for _, k := range m.keys {
		fn(k, m.values[k])
	}
}

// Nested converts "Namespace.field" keys to {Namespace: {field: value}}.
// Keys without a dot stay at the top level.
func (m *Metadata) Nested() map[string]any {
	out := map[string]any{}
	m.Each(func(key string, value any) {
		namespace, field, ok := strings.Cut(key, ".")
		if !ok {
			out[key] = value
			return
		}
		sub, ok := out[namespace].(map[string]any)
		if !ok {
			sub = map[string]any{}
			out[namespace] = sub
		}
		sub[field] = value
	})
	return out
}

// FormatValue renders a header value. Floats keep a fractional part so that
// 0 prints as 0.0.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case string:
		return t
	case float64:
		return formatFloat(t)
	case float32:
		return formatFloat(float64(t))
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		if t {
			return "True"
		}
		return "False"
	default:
		return strings.TrimSpace(strings.ReplaceAll(cast.ToString(v), "\n", " "))
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	abs := f
	if abs < 0 {
		abs = -abs
	}
	if abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
