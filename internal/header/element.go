package header

import "strings"

// edgeGroups maps the absorption edge measured at this beamline to the
// elements it is used for, in lookup order.
var edgeGroups = []struct {
	edge     string
	elements []string
}{
	{"K", []string{"c", "n", "o", "f", "na", "mg", "al", "si"}},
	{"L", []string{"ca", "sc", "ti", "v", "cr", "mn", "fe", "co", "ni", "cu", "zn"}},
	{"M", []string{"ce"}},
}

// EdgeFor returns the absorption edge used for an element symbol, or "".
func EdgeFor(symbol string) string {
	s := strings.ToLower(strings.TrimSpace(symbol))
	for _, g := range edgeGroups {
		for _, e := range g.elements {
			if e == s {
				return g.edge
			}
		}
	}
	return ""
}

// resolveElement handles runs that recorded the element symbol under "edge"
// and left "element" empty.
func resolveElement(element, edge string) Element {
	if element == "" && edge != "" {
		return Element{Symbol: edge, Edge: EdgeFor(edge)}
	}
	return Element{Symbol: element, Edge: edge}
}
