// Package editor implements the editing session: the live CV document bound to
// the schema form, section visibility toggles, and the preview/export sync.
package editor

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"jsoncv/internal/cv"
	"jsoncv/internal/form"
	"jsoncv/internal/schema"
	"jsoncv/pkg/logger"
	"jsoncv/store"
)

var (
	ErrNotConfirmed   = errors.New("replace not confirmed")
	ErrInvalidUpload  = errors.New("invalid upload")
	ErrUnknownSection = errors.New("unknown section")
	ErrUnknownTheme   = errors.New("unknown theme")
	ErrNoPreview      = errors.New("no rendered preview")
)

type MutationKind string

const (
	MutationLoad    MutationKind = "load"
	MutationEdit    MutationKind = "edit"
	MutationToggle  MutationKind = "toggle"
	MutationReplace MutationKind = "replace"
	MutationMeta    MutationKind = "meta"
	MutationTheme   MutationKind = "theme"
	MutationColor   MutationKind = "color"
)

// Mutation describes a committed change. Handlers run in registration order
// and may fill in fields for the handlers after them.
type Mutation struct {
	Kind    MutationKind
	Section string

	PreviewJSON string
	PreviewHTML string
}

// Handler is called synchronously after each committed mutation, while the
// session is locked. Handlers must not call back into the session.
type Handler func(*Mutation)

// Previewer renders the HTML preview of a document.
type Previewer interface {
	RenderHTML(doc cv.Document, theme, primaryColor string) ([]byte, error)
}

type Options struct {
	Store *store.Store
	// Schema is the augmented schema. When nil the bundled schema is augmented.
	Schema    schema.Schema
	Validator *schema.Validator
	Previewer Previewer
	// Themes restricts SetTheme when not empty.
	Themes []string
	Clock  func() time.Time
}

// Session owns one live document and everything derived from it.
type Session struct {
	ID string

	mu          sync.Mutex
	store       *store.Store
	schema      schema.Schema
	form        *form.Tree
	validator   *schema.Validator
	previewer   Previewer
	themes      []string
	now         func() time.Time
	subscribers []subscriber
	nextSubID   int
	controls    map[string]*form.Control

	outputJSON string
	outputHTML string
}

type subscriber struct {
	id int
	fn Handler
}

// NewSession starts a session on the stored document, or the sample when the
// store is empty.
func NewSession(id string, opts Options) (*Session, error) {
	if opts.Store == nil {
		return nil, errors.New("session requires a store")
	}
	s := &Session{
		ID:        id,
		store:     opts.Store,
		schema:    opts.Schema,
		validator: opts.Validator,
		previewer: opts.Previewer,
		themes:    opts.Themes,
		now:       opts.Clock,
		controls:  make(map[string]*form.Control),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.schema == nil {
		augmented, err := schema.Augment(schema.Base())
		if err != nil {
			return nil, fmt.Errorf("augment schema: %w", err)
		}
		s.schema = augmented
	}

	doc, ok, err := s.store.CVData()
	if err != nil {
		logger.Sugar.Warnf("Session %s: stored CV is unreadable, loading sample: %v", id, err)
	}
	if !ok {
		doc = cv.Sample()
	}

	s.form = form.New(s.schema, doc)
	s.form.OnRender(s.addVisibilityControls)
	s.Subscribe(s.refreshControls)
	s.Subscribe(s.syncPreview)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.Render()
	s.commit(Mutation{Kind: MutationLoad})
	return s, nil
}

// Subscribe registers fn and returns a function that removes it.
func (s *Session) Subscribe(fn Handler) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.subscribers = slices.DeleteFunc(s.subscribers, func(sub subscriber) bool { return sub.id == id })
	}
}

// commit runs all handlers. Callers hold s.mu.
func (s *Session) commit(m Mutation) {
	for _, sub := range s.subscribers {
		sub.fn(&m)
	}
}

// Document returns a copy of the live document.
func (s *Session) Document() cv.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form.Value()
}

// Schema returns the augmented schema.
func (s *Session) Schema() schema.Schema {
	return s.schema.Clone()
}

// TOC returns the table of contents of the form.
func (s *Session) TOC() []form.TOCEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form.TOC()
}

// SetDocument replaces the document with a form edit.
func (s *Session) SetDocument(doc cv.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.SetValue(doc)
	s.commit(Mutation{Kind: MutationEdit})
}

// Update applies fn to a copy of the document and commits the result.
func (s *Session) Update(fn func(doc *cv.Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.form.Value()
	fn(&doc)
	s.form.SetValue(doc)
	s.commit(Mutation{Kind: MutationEdit})
}

// SetTheme saves the selected theme and refreshes the preview.
func (s *Session) SetTheme(theme string) error {
	if len(s.themes) > 0 && !slices.Contains(s.themes, theme) {
		return fmt.Errorf("%w: %s", ErrUnknownTheme, theme)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.SaveTheme(theme); err != nil {
		return err
	}
	s.commit(Mutation{Kind: MutationTheme})
	return nil
}

// SetPrimaryColor saves the primary color and refreshes the preview.
func (s *Session) SetPrimaryColor(color string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.SavePrimaryColor(color); err != nil {
		return err
	}
	s.commit(Mutation{Kind: MutationColor})
	return nil
}

func (s *Session) Theme() string {
	return s.store.Theme()
}

func (s *Session) PrimaryColor() string {
	return s.store.PrimaryColor()
}
