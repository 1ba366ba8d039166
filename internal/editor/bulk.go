package editor

import (
	"fmt"
	"io"

	"jsoncv/internal/cv"
	"jsoncv/internal/schema"
	"jsoncv/pkg/logger"
)

const (
	PromptNewEmpty   = "Are you sure to create an empty CV? Your current data will be lost."
	PromptUpload     = "Are you sure to upload an existing CV data? Your current data will be replaced."
	PromptLoadSample = "Are you sure to load sample data? Your current data will be replaced."
)

// Confirmer asks the user before a destructive replace.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Confirmed is a Confirmer that always agrees.
var Confirmed = ConfirmFunc(func(string) bool { return true })

// LoadSample replaces the document with the bundled sample.
func (s *Session) LoadSample(c Confirmer) error {
	if !c.Confirm(PromptLoadSample) {
		return ErrNotConfirmed
	}
	s.replace(cv.Sample())
	return nil
}

// NewEmpty replaces the document with an empty one shaped by the schema.
func (s *Session) NewEmpty(c Confirmer) error {
	if !c.Confirm(PromptNewEmpty) {
		return ErrNotConfirmed
	}
	doc, err := cv.FromValue(schema.Skeleton(schema.Properties(s.schema)))
	if err != nil {
		return fmt.Errorf("build empty document: %w", err)
	}
	s.replace(doc)
	return nil
}

// Upload replaces the document with the one read from r. Nothing changes when
// the data is not a valid CV.
func (s *Session) Upload(r io.Reader, c Confirmer) error {
	if !c.Confirm(PromptUpload) {
		return ErrNotConfirmed
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidUpload, err)
	}
	doc, err := cv.Parse(data)
	if err != nil {
		logger.Sugar.Warnf("Session %s: rejected upload: %v", s.ID, err)
		return fmt.Errorf("%w: invalid JSON file: %v", ErrInvalidUpload, err)
	}
	if s.validator != nil {
		if err := s.validator.ValidateJSON(data); err != nil {
			logger.Sugar.Warnf("Session %s: rejected upload: %v", s.ID, err)
			return fmt.Errorf("%w: %v", ErrInvalidUpload, err)
		}
	}
	s.replace(doc)
	return nil
}

func (s *Session) replace(doc cv.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.SetValue(doc)
	s.commit(Mutation{Kind: MutationReplace})
}
