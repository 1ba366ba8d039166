package form

import "jsoncv/internal/schema"

// TOCEntry is a table of contents link to a rendered element.
type TOCEntry struct {
	Name     string     `json:"name"`
	Href     string     `json:"href"`
	Children []TOCEntry `json:"children,omitempty"`
}

// tocBasics are the basics fields listed under the basics entry.
var tocBasics = []string{"location", "profiles"}

// TOC lists every top-level section in schema order.
func (t *Tree) TOC() []TOCEntry {
	props := schema.Properties(t.schema)
	entries := make([]TOCEntry, 0, len(props))
	for _, name := range sortedKeys(props) {
		e := TOCEntry{Name: name, Href: "#" + Root + "." + name}
		if name == "basics" {
			for _, field := range tocBasics {
				e.Children = append(e.Children, TOCEntry{Name: field, Href: "#" + Root + ".basics." + field})
			}
		}
		entries = append(entries, e)
	}
	return entries
}
