package writers

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nsls2-sst/ucal-export/internal/header"
)

var (
	invalidFilenameChars = regexp.MustCompile(`[^\w\s\-./:\\]`)
	repeatedHyphens      = regexp.MustCompile(`-+`)
	underscoreRuns       = regexp.MustCompile(`[_\s]+`)
	templateField        = regexp.MustCompile(`\{(\w+)\}`)
)

// SanitizeFilename keeps word characters, whitespace and . - / : \, collapses
// hyphen runs and turns whitespace and underscore runs into one underscore.
func SanitizeFilename(name string) string {
	name = invalidFilenameChars.ReplaceAllString(name, "")
	name = repeatedHyphens.ReplaceAllString(name, "-")
	return underscoreRuns.ReplaceAllString(name, "_")
}

// MakeFilename is <folder>/<sample>_<element>_<command|scan>_<scan id>.<ext>,
// sanitized. Empty sample and element parts are left out.
func MakeFilename(folder string, hdr *header.Header, ext string) string {
	parts := []string{}
	if hdr.Sample.Name != "" {
		parts = append(parts, hdr.Sample.Name)
	}
	if hdr.Element.Symbol != "" {
		parts = append(parts, hdr.Element.Symbol)
	}
	if hdr.Scan.Command != "" {
		parts = append(parts, hdr.Scan.Command)
	} else {
		parts = append(parts, "scan")
	}
	parts = append(parts, header.FormatValue(hdr.Scan.TransientID))
	return SanitizeFilename(filepath.Join(folder, strings.Join(parts, "_")+"."+ext))
}

// FillTemplate replaces {field} placeholders with values from m. Unknown
// fields are an error.
func FillTemplate(tmpl string, m *header.Metadata) (string, error) {
	var missing []string
	out := templateField.ReplaceAllStringFunc(tmpl, func(s string) string {
		key := s[1 : len(s)-1]
		v, ok := m.Get(key)
		if !ok {
			missing = append(missing, key)
			return s
		}
		return header.FormatValue(v)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("name template %q: unknown fields %v", tmpl, missing)
	}
	return out, nil
}
