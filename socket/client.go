package socket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"jsoncv/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The editor page may be served from another origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, userID string) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "Missing sessionId parameter", http.StatusBadRequest)
		return
	}

	source := hub.getSource()
	if source == nil {
		http.Error(w, "Editor is not ready", http.StatusServiceUnavailable)
		return
	}
	ownerID, err := source.Owner(sessionID)
	if err != nil {
		logger.Sugar.Warnf("Connection rejected: session %s not found", sessionID)
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	// The owner edits, everyone else only watches the preview.
	role := RoleReader
	if ownerID == userID {
		role = RoleWriter
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Sugar.Error(err)
		return
	}

	client := &Client{
		Hub:       hub,
		Conn:      conn,
		SessionID: sessionID,
		UserID:    userID,
		Role:      role,
		Send:      make(chan []byte, 256),
	}
	client.Hub.Register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	for {
		_, rawMessage, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Sugar.Errorf("error: %v", err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(rawMessage, &msg); err != nil {
			logger.Sugar.Errorf("Error unmarshalling message: %v", err)
			continue
		}

		// Server-authoritative fields.
		msg.SessionID = c.SessionID
		msg.UserID = c.UserID

		switch msg.Type {
		case UpdateType, ToggleType:
			if c.Role != RoleWriter {
				logger.Sugar.Warnf("Permission Denied: User %s (Role: %s) tried to edit session %s", c.UserID, c.Role, c.SessionID)
				c.reject(msg, "read-only viewer")
				continue
			}
			if err := c.Hub.getSource().Apply(msg); err != nil {
				logger.Sugar.Warnf("Rejected %s from %s: %v", msg.Type, c.UserID, err)
				c.reject(msg, err.Error())
			}
		default:
			logger.Sugar.Debugf("Ignoring %s message from %s", msg.Type, c.UserID)
		}
	}
}

// reject tells the sender why its message was not applied.
func (c *Client) reject(msg WSMessage, reason string) {
	payload, _ := json.Marshal(map[string]string{"type": msg.Type, "error": reason})
	c.Hub.Publish(WSMessage{Type: ErrorType, SessionID: c.SessionID, Payload: payload, target: c})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
