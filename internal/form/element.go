package form

// Control is a button placed in an element header.
type Control struct {
	Class   string
	Section string
	Icon    string
	Label   string
	Title   string

	onClick func()
}

// OnClick sets the click handler.
func (c *Control) OnClick(fn func()) {
	c.onClick = fn
}

// Click runs the click handler, if any.
func (c *Control) Click() {
	if c.onClick != nil {
		c.onClick()
	}
}

// ButtonHolder is the button area of a header.
type ButtonHolder struct {
	Controls []*Control
	// Synthesized marks holders created after render for headers that had none.
	Synthesized bool
}

// Prepend inserts c as the first child.
func (b *ButtonHolder) Prepend(c *Control) {
	b.Controls = append([]*Control{c}, b.Controls...)
}

// Find returns the first control with the given class.
func (b *ButtonHolder) Find(class string) *Control {
	for _, c := range b.Controls {
		if c.Class == class {
			return c
		}
	}
	return nil
}

type Header struct {
	Title        string
	ButtonHolder *ButtonHolder
}

// Element is the rendered node bound to a schema path.
type Element struct {
	SchemaPath string
	// ID is the anchor used by the table of contents.
	ID     string
	Format string
	Header *Header
}
