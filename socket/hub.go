package socket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"jsoncv/pkg/logger"
)

const (
	PreviewType        = "PREVIEW"         // Serialized preview after a committed mutation
	UpdateType         = "UPDATE"          // Client replaces the document
	ToggleType         = "TOGGLE"          // Client toggles a section
	PresenceUpdateType = "PRESENCE_UPDATE" // A viewer joined or left
	ErrorType          = "ERROR"           // A client message was rejected

	RoleWriter = "writer"
	RoleReader = "reader"
)

type WSMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	UserID    string          `json:"user_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`

	// target restricts delivery to one client.
	target *Client
}

type UserStatus struct {
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	LastSeen time.Time `json:"last_seen"`
}

// SessionSource is the editor side of the hub.
type SessionSource interface {
	// Owner returns the user that created the session.
	Owner(sessionID string) (string, error)
	// Snapshot returns the current preview of the session.
	Snapshot(sessionID string) (WSMessage, error)
	// Apply executes an UPDATE or TOGGLE sent by a writer.
	Apply(msg WSMessage) error
}

type Hub struct {
	Rooms      map[string]map[*Client]bool
	Broadcast  chan WSMessage
	Register   chan *Client
	Unregister chan *Client
	Presence   map[string]map[string]UserStatus // sessionID -> userID -> status
	source     SessionSource
	mu         sync.Mutex
}

type Client struct {
	Hub       *Hub
	Conn      *websocket.Conn
	SessionID string
	UserID    string
	Send      chan []byte
	Role      string
}

func NewHub() *Hub {
	return &Hub{
		Rooms:      make(map[string]map[*Client]bool),
		Broadcast:  make(chan WSMessage, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Presence:   make(map[string]map[string]UserStatus),
	}
}

// SetSource connects the hub to the sessions it serves.
func (h *Hub) SetSource(source SessionSource) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.source = source
}

func (h *Hub) getSource() SessionSource {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.source
}

// Publish queues msg without blocking. Messages are dropped when the queue is full.
func (h *Hub) Publish(msg WSMessage) {
	select {
	case h.Broadcast <- msg:
	default:
		logger.Sugar.Warnf("Broadcast queue full, dropping %s for session %s", msg.Type, msg.SessionID)
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if h.Rooms[client.SessionID] == nil {
				h.Rooms[client.SessionID] = make(map[*Client]bool)
				h.Presence[client.SessionID] = make(map[string]UserStatus)
			}
			h.Rooms[client.SessionID][client] = true
			h.Presence[client.SessionID][client.UserID] = UserStatus{UserID: client.UserID, Role: client.Role, LastSeen: time.Now()}
			source := h.source
			h.mu.Unlock()

			// The new viewer starts from the current preview.
			if source != nil {
				snapshot, err := source.Snapshot(client.SessionID)
				if err != nil {
					logger.Sugar.Errorf("Failed to load preview of session %s: %v", client.SessionID, err)
				} else if payload, err := json.Marshal(snapshot); err == nil {
					h.deliver(client, payload)
				}
			}

			h.broadcastPresenceUpdate(client.SessionID)

		case client := <-h.Unregister:
			sessionID := client.SessionID
			h.removeClient(client)
			h.broadcastPresenceUpdate(sessionID)

		case msg := <-h.Broadcast:
			payload, err := json.Marshal(msg)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling broadcast message: %v", err)
				continue
			}

			h.mu.Lock()
			clientsToSend := make([]*Client, 0, len(h.Rooms[msg.SessionID]))
			for client := range h.Rooms[msg.SessionID] {
				if msg.target != nil && client != msg.target {
					continue
				}
				if msg.UserID == "" || client.UserID != msg.UserID {
					clientsToSend = append(clientsToSend, client)
				}
			}
			h.mu.Unlock()

			for _, client := range clientsToSend {
				if !h.deliver(client, payload) {
					logger.Sugar.Warnf("Client %s's send buffer is full. Unregistering.", client.UserID)
					h.removeClient(client)
				}
			}
		}
	}
}

// deliver queues payload for a client that is still in its room. Send is only
// closed under h.mu after the client left the room, so a removed client is
// skipped instead of panicking. It reports false when the buffer is full.
func (h *Hub) deliver(client *Client, payload []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.Rooms[client.SessionID][client] {
		return true
	}
	select {
	case client.Send <- payload:
		return true
	default:
		return false
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.Rooms[client.SessionID][client]; !ok {
		return
	}
	delete(h.Rooms[client.SessionID], client)
	delete(h.Presence[client.SessionID], client.UserID)
	close(client.Send)

	if len(h.Rooms[client.SessionID]) == 0 {
		delete(h.Rooms, client.SessionID)
		delete(h.Presence, client.SessionID)
		logger.Sugar.Infof("Closed empty room: %s", client.SessionID)
	}
}

// RemoveSession disconnects every viewer of a deleted session.
func (h *Hub) RemoveSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.Presence, sessionID)
	clients, ok := h.Rooms[sessionID]
	if !ok {
		return
	}
	delete(h.Rooms, sessionID)
	for client := range clients {
		// writePump sends a close frame and closes the connection. readPump
		// then fails and its Unregister finds the client already gone.
		close(client.Send)
	}
	logger.Sugar.Infof("Removed session %s and disconnected %d viewer(s)", sessionID, len(clients))
}

// Viewers counts the clients connected to a session.
func (h *Hub) Viewers(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.Rooms[sessionID])
}

func (h *Hub) broadcastPresenceUpdate(sessionID string) {
	var userStatuses []UserStatus
	var clientsToSend []*Client

	h.mu.Lock()
	if _, ok := h.Presence[sessionID]; ok {
		userStatuses = make([]UserStatus, 0, len(h.Presence[sessionID]))
		for _, status := range h.Presence[sessionID] {
			userStatuses = append(userStatuses, status)
		}

		clientsToSend = make([]*Client, 0, len(h.Rooms[sessionID]))
		for client := range h.Rooms[sessionID] {
			clientsToSend = append(clientsToSend, client)
		}
	}
	h.mu.Unlock()

	if len(clientsToSend) == 0 {
		return
	}

	payload, err := json.Marshal(userStatuses)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling presence broadcast: %v", err)
		return
	}
	broadcastPayload, _ := json.Marshal(WSMessage{Type: PresenceUpdateType, SessionID: sessionID, Payload: payload})

	for _, client := range clientsToSend {
		if !h.deliver(client, broadcastPayload) {
			logger.Sugar.Warnf("Client %s's send buffer was full during presence update.", client.UserID)
		}
	}
}
