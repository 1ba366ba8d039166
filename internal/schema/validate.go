package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const resourceName = "jsoncv.schema.json"

// Validator checks documents against the base schema.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles raw, or the bundled schema when raw is empty.
func NewValidator(raw []byte) (*Validator, error) {
	if len(raw) == 0 {
		raw = baseJSON
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(resourceName, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := c.Compile(resourceName)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: sch}, nil
}

// ValidateJSON validates serialized document data.
func (v *Validator) ValidateJSON(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	return v.schema.Validate(doc)
}

// Validate validates any value that marshals to a document.
func (v *Validator) Validate(doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return v.ValidateJSON(data)
}
