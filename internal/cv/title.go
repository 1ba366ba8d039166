package cv

import (
	_ "embed"
	"strings"
)

//go:embed sample.cv.json
var sampleJSON []byte

// Sample returns the bundled sample document.
func Sample() Document {
	doc, err := Parse(sampleJSON)
	if err != nil {
		panic("cv: bundled sample is invalid: " + err.Error())
	}
	return doc
}

// SampleJSON returns the raw bundled sample.
func SampleJSON() []byte {
	out := make([]byte, len(sampleJSON))
	copy(out, sampleJSON)
	return out
}

// Title is the name used for downloaded files and page titles.
func Title(d Document) string {
	if name := strings.TrimSpace(d.Meta.Name); name != "" {
		return name
	}
	if name := strings.TrimSpace(d.Basics.Name); name != "" {
		return name
	}
	return "CV"
}
