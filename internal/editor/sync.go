package editor

import (
	"time"

	"jsoncv/internal/cv"
	"jsoncv/pkg/logger"
)

// LastModifiedLayout is the format of meta.lastModified.
const LastModifiedLayout = "2006-01-02T15:04:05Z07:00"

// Artifact is a downloadable file.
type Artifact struct {
	Filename    string
	ContentType string
	Body        []byte
}

// previewDocument is the live document with meta.theme set to the selected
// theme. The live document keeps its own theme.
func (s *Session) previewDocument() cv.Document {
	doc := s.form.Value()
	doc.Meta.Theme = s.store.Theme()
	return doc
}

// syncPreview serializes the preview copy, persists it and renders the HTML.
func (s *Session) syncPreview(m *Mutation) {
	preview := s.previewDocument()
	b, err := cv.MarshalIndent(preview)
	if err != nil {
		logger.Sugar.Errorf("Session %s: failed to serialize preview: %v", s.ID, err)
		return
	}
	s.outputJSON = string(b)
	if m != nil {
		m.PreviewJSON = s.outputJSON
	}
	if err := s.store.SaveCVJSON(s.outputJSON); err != nil {
		logger.Sugar.Errorf("Session %s: failed to persist CV: %v", s.ID, err)
	}

	if s.previewer == nil {
		return
	}
	html, err := s.previewer.RenderHTML(preview, preview.Meta.Theme, s.store.PrimaryColor())
	if err != nil {
		logger.Sugar.Errorf("Session %s: failed to render preview: %v", s.ID, err)
		s.outputHTML = ""
		return
	}
	s.outputHTML = string(html)
	if m != nil {
		m.PreviewHTML = s.outputHTML
	}
}

// PreviewJSON returns the last serialized preview.
func (s *Session) PreviewJSON() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputJSON
}

// PreviewHTML returns the last rendered preview.
func (s *Session) PreviewHTML() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputHTML
}

// stampMeta writes lastModified and theme into the live document and
// re-syncs the meta editor. Callers hold s.mu.
func (s *Session) stampMeta() (cv.Document, error) {
	meta := s.form.Value().Meta
	meta.LastModified = s.now().Format(LastModifiedLayout)
	meta.Theme = s.store.Theme()
	if err := s.form.SetSubValue("root.meta", meta); err != nil {
		return cv.Document{}, err
	}
	s.commit(Mutation{Kind: MutationMeta})
	return s.form.Value(), nil
}

// ExportJSON stamps the document metadata and returns it as "<title>.json".
func (s *Session) ExportJSON() (Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.stampMeta()
	if err != nil {
		return Artifact{}, err
	}
	s.warnInvalid(doc)
	b, err := cv.MarshalIndent(doc)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{
		Filename:    cv.Title(doc) + ".json",
		ContentType: "application/json",
		Body:        b,
	}, nil
}

// ExportHTML stamps the document metadata and returns the rendered preview as
// "<title>.html". Without a rendered preview nothing is stamped.
func (s *Session) ExportHTML() (Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.previewer == nil || s.outputHTML == "" {
		return Artifact{}, ErrNoPreview
	}
	doc, err := s.stampMeta()
	if err != nil {
		return Artifact{}, err
	}
	// The stamp re-renders; a failed render leaves no HTML to export.
	if s.outputHTML == "" {
		return Artifact{}, ErrNoPreview
	}
	return Artifact{
		Filename:    cv.Title(doc) + ".html",
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(s.outputHTML),
	}, nil
}

// SavedTime is the time of the last persisted change.
func (s *Session) SavedTime() (time.Time, bool) {
	return s.store.SavedTime()
}

func (s *Session) warnInvalid(doc cv.Document) {
	if s.validator == nil {
		return
	}
	if err := s.validator.Validate(doc); err != nil {
		logger.Sugar.Warnf("Session %s: exporting a document that does not match the schema: %v", s.ID, err)
	}
}
