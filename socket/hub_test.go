package socket

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to read messages from a WebSocket connection with a timeout.
func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	var msg WSMessage
	conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	_, p, err := conn.ReadMessage()
	require.NoError(t, err, "Failed to read message from WebSocket")
	err = json.Unmarshal(p, &msg)
	require.NoError(t, err, "Failed to unmarshal WSMessage JSON")
	return msg
}

type fakeSource struct {
	hub     *Hub
	owners  map[string]string
	mu      sync.Mutex
	applied []WSMessage
}

func (f *fakeSource) appliedMessages() []WSMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]WSMessage(nil), f.applied...)
}

func (f *fakeSource) Owner(sessionID string) (string, error) {
	owner, ok := f.owners[sessionID]
	if !ok {
		return "", errors.New("not found")
	}
	return owner, nil
}

func (f *fakeSource) Snapshot(sessionID string) (WSMessage, error) {
	return WSMessage{Type: PreviewType, SessionID: sessionID, Payload: json.RawMessage(`{"json":"initial"}`)}, nil
}

func (f *fakeSource) Apply(msg WSMessage) error {
	f.mu.Lock()
	f.applied = append(f.applied, msg)
	f.mu.Unlock()
	if msg.Type == UpdateType {
		return errors.New("invalid document")
	}
	f.hub.Publish(WSMessage{Type: PreviewType, SessionID: msg.SessionID, Payload: msg.Payload})
	return nil
}

func TestHubIntegration(t *testing.T) {
	hub := NewHub()
	source := &fakeSource{hub: hub, owners: map[string]string{"s1": "user1"}}
	hub.SetSource(source)
	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r, r.URL.Query().Get("user_id"))
	}))
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	// Unknown sessions are refused before the upgrade.
	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"/ws?sessionId=nope&user_id=user1", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// The owner joins and receives the current preview.
	conn1, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?sessionId=s1&user_id=user1", nil)
	require.NoError(t, err)
	defer conn1.Close()

	initial := readMessage(t, conn1)
	assert.Equal(t, PreviewType, initial.Type)
	assert.Equal(t, "s1", initial.SessionID)
	assert.JSONEq(t, `{"json":"initial"}`, string(initial.Payload))
	assert.Equal(t, PresenceUpdateType, readMessage(t, conn1).Type)

	// A second viewer joins read-only.
	conn2, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?sessionId=s1&user_id=user2", nil)
	require.NoError(t, err)
	defer conn2.Close()
	assert.Equal(t, PreviewType, readMessage(t, conn2).Type)
	assert.Equal(t, PresenceUpdateType, readMessage(t, conn2).Type)

	presence := readMessage(t, conn1)
	assert.Equal(t, PresenceUpdateType, presence.Type)
	var statuses []UserStatus
	require.NoError(t, json.Unmarshal(presence.Payload, &statuses))
	require.Len(t, statuses, 2)
	roles := map[string]string{statuses[0].UserID: statuses[0].Role, statuses[1].UserID: statuses[1].Role}
	assert.Equal(t, map[string]string{"user1": RoleWriter, "user2": RoleReader}, roles)

	// The reader cannot toggle sections.
	toggle, _ := json.Marshal(WSMessage{Type: ToggleType, Payload: json.RawMessage(`{"section":"work"}`)})
	require.NoError(t, conn2.WriteMessage(websocket.TextMessage, toggle))
	rejected := readMessage(t, conn2)
	assert.Equal(t, ErrorType, rejected.Type)
	assert.Contains(t, string(rejected.Payload), "read-only")

	// The owner's toggle reaches every viewer as a new preview.
	require.NoError(t, conn1.WriteMessage(websocket.TextMessage, toggle))
	for _, conn := range []*websocket.Conn{conn1, conn2} {
		msg := readMessage(t, conn)
		assert.Equal(t, PreviewType, msg.Type)
		assert.JSONEq(t, `{"section":"work"}`, string(msg.Payload))
	}
	applied := source.appliedMessages()
	require.Len(t, applied, 1)
	assert.Equal(t, "user1", applied[0].UserID)
	assert.Equal(t, "s1", applied[0].SessionID)

	// A failed update is reported to the sender only.
	update, _ := json.Marshal(WSMessage{Type: UpdateType, Payload: json.RawMessage(`{}`)})
	require.NoError(t, conn1.WriteMessage(websocket.TextMessage, update))
	failed := readMessage(t, conn1)
	assert.Equal(t, ErrorType, failed.Type)
	assert.Contains(t, string(failed.Payload), "invalid document")
}

func TestRemoveSessionDisconnectsViewers(t *testing.T) {
	hub := NewHub()
	hub.SetSource(&fakeSource{hub: hub, owners: map[string]string{"s1": "user1"}})
	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r, r.URL.Query().Get("user_id"))
	}))
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?sessionId=s1&user_id="

	conn1, _, err := websocket.DefaultDialer.Dial(wsURL+"user1", nil)
	require.NoError(t, err)
	defer conn1.Close()
	assert.Equal(t, PreviewType, readMessage(t, conn1).Type)
	assert.Equal(t, PresenceUpdateType, readMessage(t, conn1).Type)

	conn2, _, err := websocket.DefaultDialer.Dial(wsURL+"user2", nil)
	require.NoError(t, err)
	defer conn2.Close()
	assert.Equal(t, PreviewType, readMessage(t, conn2).Type)
	assert.Equal(t, PresenceUpdateType, readMessage(t, conn2).Type)
	assert.Equal(t, PresenceUpdateType, readMessage(t, conn1).Type)
	require.Equal(t, 2, hub.Viewers("s1"))

	hub.RemoveSession("s1")
	assert.Equal(t, 0, hub.Viewers("s1"))

	for _, conn := range []*websocket.Conn{conn1, conn2} {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, _, err := conn.ReadMessage()
		require.Error(t, err)
		assert.True(t, websocket.IsCloseError(err, websocket.CloseNoStatusReceived, websocket.CloseAbnormalClosure), "got %v", err)
	}

	// Late previews for the removed session go nowhere.
	hub.Publish(WSMessage{Type: PreviewType, SessionID: "s1"})
	hub.RemoveSession("s1")

	conn3, _, err := websocket.DefaultDialer.Dial(wsURL+"user1", nil)
	require.NoError(t, err)
	defer conn3.Close()
	assert.Equal(t, PreviewType, readMessage(t, conn3).Type)
	assert.Equal(t, PresenceUpdateType, readMessage(t, conn3).Type)
	assert.Equal(t, 1, hub.Viewers("s1"))
}

func TestPublishDoesNotBlock(t *testing.T) {
	hub := NewHub()
	for i := 0; i < cap(hub.Broadcast)+10; i++ {
		hub.Publish(WSMessage{Type: PreviewType, SessionID: "s1"})
	}
	assert.Len(t, hub.Broadcast, cap(hub.Broadcast))
}
