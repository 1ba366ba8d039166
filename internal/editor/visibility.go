package editor

import (
	"fmt"
	"slices"

	"jsoncv/internal/form"
)

// HideableSections are the sections that can be excluded from the rendered CV.
// summary lives under basics but is toggled on its own.
var HideableSections = []string{
	"basics", "summary", "education", "work", "projects", "sideProjects", "skills",
	"languages", "interests", "references", "awards", "publications", "volunteer",
	"certificates", "meta",
}

const visibilityClass = "visibility-toggle"

// ControlState is a snapshot of a section toggle.
type ControlState struct {
	Section string `json:"section"`
	Hidden  bool   `json:"hidden"`
	Icon    string `json:"icon"`
	Label   string `json:"label"`
	Title   string `json:"title"`
}

func sectionPath(section string) string {
	if section == "summary" {
		return form.Root + ".basics.summary"
	}
	return form.Root + "." + section
}

// ToggleSection flips the visibility of section.
func (s *Session) ToggleSection(section string) error {
	if !slices.Contains(HideableSections, section) {
		return fmt.Errorf("%w: %s", ErrUnknownSection, section)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toggle(section)
	return nil
}

// ClickControl clicks the toggle rendered for section.
func (s *Session) ClickControl(section string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.controls[section]
	if !ok {
		return fmt.Errorf("%w: no control for %s", ErrUnknownSection, section)
	}
	c.Click()
	return nil
}

// IsSectionHidden reports whether section is listed in meta.hiddenSections.
func (s *Session) IsSectionHidden(section string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form.Value().Meta.IsHidden(section)
}

// Controls returns the rendered toggles in whitelist order.
func (s *Session) Controls() []ControlState {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta := s.form.Value().Meta
	out := make([]ControlState, 0, len(s.controls))
	for _, section := range HideableSections {
		c, ok := s.controls[section]
		if !ok {
			continue
		}
		out = append(out, ControlState{
			Section: section,
			Hidden:  meta.IsHidden(section),
			Icon:    c.Icon,
			Label:   c.Label,
			Title:   c.Title,
		})
	}
	return out
}

// toggle adds or removes section in meta.hiddenSections and replaces the form
// value. Callers hold s.mu.
func (s *Session) toggle(section string) {
	doc := s.form.Value()
	hidden := doc.Meta.HiddenSections
	if hidden == nil {
		hidden = []string{}
	}
	if i := slices.Index(hidden, section); i >= 0 {
		hidden = slices.Delete(hidden, i, i+1)
	} else {
		hidden = append(hidden, section)
	}
	doc.Meta.HiddenSections = hidden

	s.form.SetValue(doc)
	s.commit(Mutation{Kind: MutationToggle, Section: section})
}

// addVisibilityControls runs after every render of the form.
func (s *Session) addVisibilityControls() {
	s.controls = make(map[string]*form.Control)
	for _, section := range HideableSections {
		s.addVisibilityControl(section)
	}
	s.refreshControls(nil)
}

func (s *Session) addVisibilityControl(section string) {
	el := s.form.Element(sectionPath(section))
	if el == nil || el.Header == nil {
		return
	}
	holder := el.Header.ButtonHolder
	if holder == nil {
		holder = &form.ButtonHolder{Synthesized: true}
		el.Header.ButtonHolder = holder
	}
	if c := holder.Find(visibilityClass); c != nil {
		s.controls[section] = c
		return
	}

	c := &form.Control{Class: visibilityClass, Section: section}
	c.OnClick(func() {
		s.toggle(section)
	})
	holder.Prepend(c)
	s.controls[section] = c
}

// refreshControls derives every toggle's icon from the current document.
func (s *Session) refreshControls(_ *Mutation) {
	meta := s.form.Value().Meta
	for section, c := range s.controls {
		if meta.IsHidden(section) {
			c.Icon = "mdi:eye-off"
			c.Label = "show"
			c.Title = "Show " + section + " in CV"
		} else {
			c.Icon = "mdi:eye"
			c.Label = "hide"
			c.Title = "Hide " + section + " from CV"
		}
	}
}
