// Package form renders a CV document against the augmented schema as a tree
// of elements keyed by schema path, and holds the single editable value.
package form

import (
	"encoding/json"
	"fmt"
	"maps"
	"sort"
	"strconv"
	"strings"

	"jsoncv/internal/cv"
	"jsoncv/internal/schema"
)

const Root = "root"

// Tree is the form bound to one document.
type Tree struct {
	schema   schema.Schema
	value    cv.Document
	elements map[string]*Element
	order    []string
	lengths  map[string]int
	renders  int
	onRender []func()
}

func New(s schema.Schema, start cv.Document) *Tree {
	start.Normalize()
	return &Tree{
		schema:   s,
		value:    start.Clone(),
		elements: make(map[string]*Element),
	}
}

// OnRender registers fn to run after every render.
func (t *Tree) OnRender(fn func()) {
	t.onRender = append(t.onRender, fn)
}

// Render builds the element tree and runs the render hooks.
func (t *Tree) Render() {
	t.elements = make(map[string]*Element)
	t.order = t.order[:0]

	t.add(&Element{SchemaPath: Root, Header: &Header{Title: title(t.schema), ButtonHolder: &ButtonHolder{}}})

	props := schema.Properties(t.schema)
	for _, name := range sortedKeys(props) {
		node, _ := props[name].(map[string]any)
		path := Root + "." + name
		t.add(newElement(path, name, node))
		if name == "basics" {
			sub := schema.Properties(node)
			for _, field := range sortedKeys(sub) {
				fnode, _ := sub[field].(map[string]any)
				t.add(newElement(path+"."+field, field, fnode))
			}
		}
	}

	t.lengths = t.value.ArrayLengths()
	lengthKeys := make([]string, 0, len(t.lengths))
	for k := range t.lengths {
		lengthKeys = append(lengthKeys, k)
	}
	sort.Strings(lengthKeys)
	for _, key := range lengthKeys {
		n := t.lengths[key]
		node, err := schema.Lookup(props, strings.ReplaceAll(key, ".", ".properties."))
		if err != nil {
			continue
		}
		items, _ := node["items"].(map[string]any)
		tmpl, _ := items["headerTemplate"].(string)
		for i := 0; i < n; i++ {
			path := Root + "." + key + "." + strconv.Itoa(i)
			t.add(&Element{
				SchemaPath: path,
				Header:     &Header{Title: itemTitle(tmpl, key, i), ButtonHolder: &ButtonHolder{}},
			})
		}
	}

	t.renders++
	for _, fn := range t.onRender {
		fn()
	}
}

// Renders counts completed renders.
func (t *Tree) Renders() int {
	return t.renders
}

func (t *Tree) add(el *Element) {
	if el.ID == "" {
		el.ID = el.SchemaPath
	}
	t.elements[el.SchemaPath] = el
	t.order = append(t.order, el.SchemaPath)
}

// Element returns the element bound to path, or nil when it is not rendered.
func (t *Tree) Element(path string) *Element {
	return t.elements[path]
}

// Elements returns the rendered elements in render order.
func (t *Tree) Elements() []*Element {
	out := make([]*Element, 0, len(t.order))
	for _, p := range t.order {
		out = append(out, t.elements[p])
	}
	return out
}

// Value returns a copy of the current document.
func (t *Tree) Value() cv.Document {
	return t.value.Clone()
}

// SetValue replaces the whole document. The tree is re-rendered when the
// number of entries in any list changed.
func (t *Tree) SetValue(doc cv.Document) {
	doc.Normalize()
	t.value = doc.Clone()
	if t.renders > 0 && !maps.Equal(t.lengths, t.value.ArrayLengths()) {
		t.Render()
	}
}

// SetSubValue replaces the value at a schema path such as "root.meta".
func (t *Tree) SetSubValue(path string, v any) error {
	keys := strings.Split(path, ".")
	if len(keys) < 2 || keys[0] != Root {
		return fmt.Errorf("invalid schema path %q", path)
	}

	b, err := json.Marshal(t.value)
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := json.Unmarshal(b, &tree); err != nil {
		return err
	}

	b, err = json.Marshal(v)
	if err != nil {
		return err
	}
	var sub any
	if err := json.Unmarshal(b, &sub); err != nil {
		return err
	}

	cur := tree
	for _, key := range keys[1 : len(keys)-1] {
		next, ok := cur[key].(map[string]any)
		if !ok {
			return fmt.Errorf("schema path %q not found", path)
		}
		cur = next
	}
	cur[keys[len(keys)-1]] = sub

	doc, err := cv.FromValue(tree)
	if err != nil {
		return err
	}
	t.SetValue(doc)
	return nil
}

func newElement(path, name string, node map[string]any) *Element {
	el := &Element{SchemaPath: path}
	el.Format, _ = node["format"].(string)
	switch node["type"] {
	case "object", "array":
		el.Header = &Header{Title: name, ButtonHolder: &ButtonHolder{}}
	default:
		// Leaf fields get a label but no button area.
		el.Header = &Header{Title: name}
	}
	return el
}

func title(s schema.Schema) string {
	t, _ := s["title"].(string)
	return t
}

func itemTitle(tmpl, key string, i int) string {
	if tmpl == "" {
		tmpl = schema.HeaderTemplate(key[strings.LastIndex(key, ".")+1:])
	}
	r := strings.NewReplacer("{{i1}}", strconv.Itoa(i+1), "{{i0}}", strconv.Itoa(i), "{{i}}", strconv.Itoa(i))
	return r.Replace(tmpl)
}

// sortedKeys orders properties by propertyOrder, unordered ones last by name.
func sortedKeys(props map[string]any) []string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	order := func(k string) (int, bool) {
		node, _ := props[k].(map[string]any)
		switch v := node["propertyOrder"].(type) {
		case int:
			return v, true
		case float64:
			return int(v), true
		}
		return 0, false
	}
	sort.Slice(keys, func(i, j int) bool {
		oi, hasI := order(keys[i])
		oj, hasJ := order(keys[j])
		if hasI != hasJ {
			return hasI
		}
		if oi != oj {
			return oi < oj
		}
		return keys[i] < keys[j]
	})
	return keys
}
