package store

import (
	"strconv"
	"time"

	"jsoncv/internal/cv"
	"jsoncv/pkg/logger"
)

// Store persists the editor state: the serialized CV, the time of the last
// save, the primary color and the theme. Each slot is independent.
type Store struct {
	backend Backend
	now     func() time.Time
}

func New(backend Backend) *Store {
	return &Store{backend: backend, now: time.Now}
}

// WithClock replaces the clock used for save timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) updateSavedTime() error {
	return s.backend.Set(KeyCVSavedTime, strconv.FormatInt(s.now().UnixMilli(), 10))
}

// SaveCVJSON stores already serialized document text.
func (s *Store) SaveCVJSON(text string) error {
	if err := s.backend.Set(KeyCVJSON, text); err != nil {
		logger.Sugar.Errorf("Failed to save CV JSON: %v", err)
		return err
	}
	return s.updateSavedTime()
}

// CVData returns the stored document. ok is false when nothing was saved.
func (s *Store) CVData() (doc cv.Document, ok bool, err error) {
	v, found, err := s.backend.Get(KeyCVJSON)
	if err != nil || !found || v == "" {
		return cv.Document{}, false, err
	}
	doc, err = cv.Parse([]byte(v))
	if err != nil {
		return cv.Document{}, false, err
	}
	return doc, true, nil
}

// CVJSON returns the stored document text as saved.
func (s *Store) CVJSON() (string, bool, error) {
	return s.backend.Get(KeyCVJSON)
}

// SavedTime is the time of the last save of any slot.
func (s *Store) SavedTime() (time.Time, bool) {
	v, ok, err := s.backend.Get(KeyCVSavedTime)
	if err != nil || !ok {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		logger.Sugar.Warnf("Ignoring malformed saved time %q: %v", v, err)
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func (s *Store) SavePrimaryColor(color string) error {
	if err := s.backend.Set(KeyPrimaryColor, color); err != nil {
		logger.Sugar.Errorf("Failed to save primary color: %v", err)
		return err
	}
	return s.updateSavedTime()
}

// PrimaryColor returns the saved color or DefaultPrimaryColor.
func (s *Store) PrimaryColor() string {
	return s.getOr(KeyPrimaryColor, DefaultPrimaryColor)
}

func (s *Store) SaveTheme(theme string) error {
	if err := s.backend.Set(KeyTheme, theme); err != nil {
		logger.Sugar.Errorf("Failed to save theme: %v", err)
		return err
	}
	return s.updateSavedTime()
}

// Theme returns the saved theme or DefaultTheme.
func (s *Store) Theme() string {
	return s.getOr(KeyTheme, DefaultTheme)
}

func (s *Store) getOr(key, def string) string {
	v, ok, err := s.backend.Get(key)
	if err != nil {
		logger.Sugar.Errorf("Failed to read %s, using default: %v", key, err)
		return def
	}
	if !ok || v == "" {
		return def
	}
	return v
}
