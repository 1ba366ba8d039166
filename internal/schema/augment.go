package schema

import (
	"fmt"
	"strings"
)

// SectionOrder is the canonical order of top-level sections in the editor.
var SectionOrder = []string{
	"basics", "education", "work", "projects", "sideProjects", "skills", "languages",
	"interests", "references", "awards", "publications", "volunteer", "certificates", "meta",
}

// BasicsOrder is the canonical order of basics fields.
var BasicsOrder = []string{
	"name", "label", "email", "phone", "url", "summary", "image", "location", "profiles",
}

// FieldFormats maps dotted paths below the root properties to the widget
// format used for long-form text.
var FieldFormats = map[string]string{
	"basics.properties.summary":                  "textarea",
	"work.items.properties.description":          "textarea",
	"work.items.properties.summary":              "textarea",
	"work.items.properties.highlights.items":     "textarea",
	"projects.items.properties.description":      "textarea",
	"projects.items.properties.highlights.items": "textarea",
	"sideProjects.items.properties.description":  "textarea",
	"skills.items.properties.summary":            "textarea",
	"languages.items.properties.summary":         "textarea",
	"references.items.properties.reference":      "textarea",
	"awards.items.properties.summary":            "textarea",
	"publications.items.properties.summary":      "textarea",
	"volunteer.items.properties.summary":         "textarea",
	"volunteer.items.properties.highlights.items": "textarea",
}

const (
	Title                   = "CV Schema"
	lastModifiedDescription = ". This will be automatically updated when downloading."
)

// Augment derives the editor schema from base. base is not modified.
func Augment(base Schema) (Schema, error) {
	s := base.Clone()
	props := Properties(s)
	if props == nil {
		return nil, fmt.Errorf("%w: properties", ErrPathNotFound)
	}

	for i, name := range SectionOrder {
		section, err := Lookup(props, name)
		if err != nil {
			return nil, err
		}
		section["propertyOrder"] = i
	}
	for i, name := range BasicsOrder {
		field, err := Lookup(props, "basics.properties."+name)
		if err != nil {
			return nil, err
		}
		field["propertyOrder"] = i
	}

	walk(s, func(key string, node map[string]any) {
		items, ok := node["items"].(map[string]any)
		if node["type"] != "array" || !ok {
			return
		}
		items["headerTemplate"] = HeaderTemplate(key)
	})

	for path, format := range FieldFormats {
		node, err := Lookup(props, path)
		if err != nil {
			return nil, err
		}
		node["format"] = format
	}

	// Partial dates (YYYY, YYYY-MM) are valid, which a date picker cannot express.
	iso, err := Lookup(s, "definitions.iso8601")
	if err != nil {
		return nil, err
	}
	iso["format"] = "text"

	s["title"] = Title

	lastModified, err := Lookup(props, "meta.properties.lastModified")
	if err != nil {
		return nil, err
	}
	desc, _ := lastModified["description"].(string)
	lastModified["description"] = desc + lastModifiedDescription

	return s, nil
}

// HeaderTemplate is the array item title for a field: the key with one
// trailing "s" removed, followed by the 1-based index placeholder.
func HeaderTemplate(key string) string {
	return strings.TrimSuffix(key, "s") + " {{i1}}"
}

// walk calls fn for every object value reachable from node, with the key it
// is stored under.
func walk(node map[string]any, fn func(key string, node map[string]any)) {
	for key, v := range node {
		switch child := v.(type) {
		case map[string]any:
			fn(key, child)
			walk(child, fn)
		case []any:
			for _, item := range child {
				if m, ok := item.(map[string]any); ok {
					fn(key, m)
					walk(m, fn)
				}
			}
		}
	}
}
