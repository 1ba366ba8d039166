package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"jsoncv/internal/cv"
	"jsoncv/internal/document/model"
	"jsoncv/internal/editor"
	"jsoncv/pkg/logger"
	"jsoncv/socket"
	"jsoncv/store"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidSessionID = errors.New("invalid session id")
	ErrForbidden        = errors.New("unauthorized: only the owner can do this")
	ErrInvalidDocument  = errors.New("invalid document")
)

// SessionService keeps the open editing sessions and connects them to the hub.
type SessionService struct {
	Provider store.Provider
	// Options is copied for every session; Store is set per session.
	Options editor.Options
	Hub     *socket.Hub

	mu       sync.RWMutex
	sessions map[string]*openSession
}

type openSession struct {
	session     *editor.Session
	owner       string
	unsubscribe func()
}

func NewSessionService(provider store.Provider, opts editor.Options, hub *socket.Hub) *SessionService {
	s := &SessionService{
		Provider: provider,
		Options:  opts,
		Hub:      hub,
		sessions: make(map[string]*openSession),
	}
	if hub != nil {
		hub.SetSource(s)
	}
	return s
}

// CreateSession opens a new session for owner. A requested id reopens the
// state persisted under that id.
func (s *SessionService) CreateSession(owner, requestedID string) (string, error) {
	id := requestedID
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidSessionID, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if open, ok := s.sessions[id]; ok {
		if open.owner != owner {
			return "", ErrForbidden
		}
		return id, nil
	}

	backend, err := s.Provider.Backend(id)
	if err != nil {
		logger.Sugar.Errorf("Service: failed to open storage for session %s: %v", id, err)
		return "", err
	}
	opts := s.Options
	opts.Store = store.New(backend)
	session, err := editor.NewSession(id, opts)
	if err != nil {
		return "", err
	}

	open := &openSession{session: session, owner: owner}
	open.unsubscribe = session.Subscribe(s.publishPreview(id))
	s.sessions[id] = open
	logger.Sugar.Infof("Session %s opened by %s", id, owner)
	return id, nil
}

// publishPreview pushes every committed mutation of a session to its viewers.
func (s *SessionService) publishPreview(id string) editor.Handler {
	return func(m *editor.Mutation) {
		if s.Hub == nil {
			return
		}
		payload, err := json.Marshal(model.PreviewPayload{
			Kind:    string(m.Kind),
			Section: m.Section,
			JSON:    m.PreviewJSON,
			HTML:    m.PreviewHTML,
		})
		if err != nil {
			logger.Sugar.Errorf("Service: failed to encode preview of session %s: %v", id, err)
			return
		}
		s.Hub.Publish(socket.WSMessage{Type: socket.PreviewType, SessionID: id, Payload: payload})
	}
}

func (s *SessionService) lookup(id string) (*openSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	open, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return open, nil
}

// Get returns the session with the given id.
func (s *SessionService) Get(id string) (*editor.Session, error) {
	open, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return open.session, nil
}

// DeleteSession closes the session, drops its stored state and disconnects its viewers.
func (s *SessionService) DeleteSession(id, userID string) error {
	s.mu.Lock()
	open, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	if open.owner != userID {
		s.mu.Unlock()
		return ErrForbidden
	}
	delete(s.sessions, id)
	s.mu.Unlock()

	open.unsubscribe()
	if err := s.Provider.Drop(id); err != nil {
		logger.Sugar.Errorf("Service: failed to drop state of session %s: %v", id, err)
		return err
	}
	if s.Hub != nil {
		s.Hub.RemoveSession(id)
	}
	return nil
}

// ListSessions returns the sessions owned by userID, ordered by id.
func (s *SessionService) ListSessions(userID string) []model.SessionInfo {
	s.mu.RLock()
	owned := make(map[string]*editor.Session)
	for id, open := range s.sessions {
		if open.owner == userID {
			owned[id] = open.session
		}
	}
	s.mu.RUnlock()

	infos := make([]model.SessionInfo, 0, len(owned))
	for id, session := range owned {
		info := model.SessionInfo{
			ID:    id,
			Title: cv.Title(session.Document()),
			Theme: session.Theme(),
		}
		if saved, ok := session.SavedTime(); ok {
			info.SavedAt = &saved
		}
		if s.Hub != nil {
			info.Viewers = s.Hub.Viewers(id)
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// SetDocumentJSON validates data and makes it the live document.
func (s *SessionService) SetDocumentJSON(id string, data []byte) error {
	session, err := s.Get(id)
	if err != nil {
		return err
	}
	doc, err := cv.Parse(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if s.Options.Validator != nil {
		if err := s.Options.Validator.ValidateJSON(data); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
	}
	session.SetDocument(doc)
	return nil
}

// Owner implements socket.SessionSource.
func (s *SessionService) Owner(id string) (string, error) {
	open, err := s.lookup(id)
	if err != nil {
		return "", err
	}
	return open.owner, nil
}

// Snapshot implements socket.SessionSource.
func (s *SessionService) Snapshot(id string) (socket.WSMessage, error) {
	session, err := s.Get(id)
	if err != nil {
		return socket.WSMessage{}, err
	}
	payload, err := json.Marshal(model.PreviewPayload{
		Kind: string(editor.MutationLoad),
		JSON: session.PreviewJSON(),
		HTML: session.PreviewHTML(),
	})
	if err != nil {
		return socket.WSMessage{}, err
	}
	return socket.WSMessage{Type: socket.PreviewType, SessionID: id, Payload: payload}, nil
}

// Apply implements socket.SessionSource.
func (s *SessionService) Apply(msg socket.WSMessage) error {
	switch msg.Type {
	case socket.UpdateType:
		var req model.DocumentUpdate
		if err := json.Unmarshal(msg.Payload, &req); err != nil || len(req.Document) == 0 {
			return fmt.Errorf("%w: missing document", ErrInvalidDocument)
		}
		return s.SetDocumentJSON(msg.SessionID, req.Document)

	case socket.ToggleType:
		var req model.ToggleRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return fmt.Errorf("invalid toggle payload: %w", err)
		}
		session, err := s.Get(msg.SessionID)
		if err != nil {
			return err
		}
		return session.ToggleSection(req.Section)

	default:
		return fmt.Errorf("unsupported message type %q", msg.Type)
	}
}
