package writers

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nsls2-sst/ucal-export/pkg/api"
)

const fallbackFormat = "%11.4e"

// ColumnFormat picks a printf verb for one XDI column. Columns without any
// finite value and small-magnitude floats use scientific notation. Integers
// and larger floats get a width sized to the largest magnitude.
func ColumnFormat(a *api.Array) string {
	if a == nil || len(a.Values) == 0 {
		return fallbackFormat
	}
	var sum, maxAbs float64
	finite := 0
	for _, v := range a.Values {
		if math.IsNaN(v) {
			continue
		}
		if !math.IsInf(v, 0) {
			finite++
		}
		sum += v
		maxAbs = math.Max(maxAbs, math.Abs(v))
	}
	if finite == 0 {
		return fallbackFormat
	}
	if a.IsInteger() {
		width := len(strconv.FormatInt(int64(maxAbs), 10)) + 1
		return fmt.Sprintf("%%%dd", width)
	}
	if math.IsInf(maxAbs, 0) {
		return fallbackFormat
	}
	counted := 0
	for _, v := range a.Values {
		if !math.IsNaN(v) {
			counted++
		}
	}
	if math.Abs(sum/float64(counted)) < 1 {
		return fallbackFormat
	}
	// integer digits plus sign, point and three decimals
	width := len(strconv.FormatInt(int64(maxAbs), 10)) + 5
	return fmt.Sprintf("%%%d.3f", width)
}

// FormatValue renders v with a verb returned by ColumnFormat.
func FormatValue(verb string, v float64) string {
	if strings.HasSuffix(verb, "d") {
		return fmt.Sprintf(verb, int64(v))
	}
	return fmt.Sprintf(verb, v)
}

// CommentLines prefixes every line of s with marker and a space.
func CommentLines(s, marker string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = marker + " " + l
	}
	return strings.Join(lines, "\n")
}

// rowCount checks that all 1-D columns share the event axis length.
func rowCount(names []string, arrays []*api.Array) (int, error) {
	if len(arrays) == 0 {
		return 0, nil
	}
	n := len(arrays[0].Values)
	for i, a := range arrays {
		if a.Ndim() != 1 {
			return 0, fmt.Errorf("column %q is %d-dimensional", names[i], a.Ndim())
		}
		if len(a.Values) != n {
			return 0, fmt.Errorf("column %q has %d rows, want %d", names[i], len(a.Values), n)
		}
	}
	return n, nil
}
