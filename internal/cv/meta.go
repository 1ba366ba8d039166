package cv

import (
	"encoding/json"
	"fmt"
)

// Meta is the document metadata. Known fields are typed; anything else is
// kept in Extra and written back unchanged.
type Meta struct {
	Canonical    string
	Version      string
	LastModified string
	Theme        string
	Name         string
	// HiddenSections lists sections excluded from rendered output, in the
	// order they were hidden. A nil slice is omitted from JSON, an empty one
	// is written as [].
	HiddenSections []string
	Extra          map[string]any
}

var metaStringFields = []string{"canonical", "version", "lastModified", "theme", "name"}

func (m *Meta) field(key string) *string {
	switch key {
	case "canonical":
		return &m.Canonical
	case "version":
		return &m.Version
	case "lastModified":
		return &m.LastModified
	case "theme":
		return &m.Theme
	case "name":
		return &m.Name
	}
	return nil
}

func (m Meta) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+6)
	for k, v := range m.Extra {
		out[k] = v
	}
	for _, key := range metaStringFields {
		if v := *m.field(key); v != "" {
			out[key] = v
		}
	}
	if m.HiddenSections != nil {
		out["hiddenSections"] = m.HiddenSections
	}
	return json.Marshal(out)
}

func (m *Meta) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Meta{}
	for key, value := range raw {
		if f := m.field(key); f != nil {
			if err := json.Unmarshal(value, f); err != nil {
				return fmt.Errorf("meta.%s: %w", key, err)
			}
			continue
		}
		if key == "hiddenSections" {
			if err := json.Unmarshal(value, &m.HiddenSections); err != nil {
				return fmt.Errorf("meta.hiddenSections: %w", err)
			}
			continue
		}
		var v any
		if err := json.Unmarshal(value, &v); err != nil {
			return err
		}
		if m.Extra == nil {
			m.Extra = make(map[string]any)
		}
		m.Extra[key] = v
	}
	return nil
}

// IsHidden reports whether section is listed in HiddenSections.
func (m Meta) IsHidden(section string) bool {
	for _, s := range m.HiddenSections {
		if s == section {
			return true
		}
	}
	return false
}
