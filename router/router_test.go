package router

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsoncv/internal/document/model"
	"jsoncv/internal/document/service"
	"jsoncv/internal/editor"
	"jsoncv/internal/render"
	"jsoncv/socket"
	"jsoncv/store"
)

func writeSite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "resume"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("editor page"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "resume", "Richard Hendriks CV.html"), []byte("resume page"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))
	return dir
}

func TestSiteHandler(t *testing.T) {
	handler := SiteHandler(writeSite(t), "Richard Hendriks CV")

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{path: "/", wantStatus: http.StatusOK, wantBody: "resume page"},
		{path: "/editor", wantStatus: http.StatusOK, wantBody: "editor page"},
		{path: "/editor/", wantStatus: http.StatusOK, wantBody: "editor page"},
		{path: "/app.js", wantStatus: http.StatusOK, wantBody: "console.log(1)"},
		{path: "/resume/Richard%20Hendriks%20CV.html", wantStatus: http.StatusOK, wantBody: "resume page"},
		{path: "/missing.css", wantStatus: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rr.Body.String())
			}
		})
	}
}

func TestSiteHandlerMissingResume(t *testing.T) {
	handler := SiteHandler(writeSite(t), "Nobody")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func newServer(t *testing.T, opts Options) (*httptest.Server, *socket.Hub) {
	t.Helper()
	hub := socket.NewHub()
	go hub.Run()
	svc := service.NewSessionService(store.NewMemoryProvider(), editor.Options{
		Previewer: render.New("example.com"),
		Themes:    render.ThemeNames(),
	}, hub)
	server := httptest.NewServer(Setup(svc, hub, opts))
	t.Cleanup(server.Close)
	return server, hub
}

func createSession(t *testing.T, baseURL string) string {
	t.Helper()
	resp, err := http.Post(baseURL+"/api/sessions/create", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var created model.CreateSessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	return created.SessionID
}

func TestSetupServesAPIAndSite(t *testing.T) {
	server, _ := newServer(t, Options{SiteDir: writeSite(t), ResumeName: "Richard Hendriks CV"})

	resp, err := http.Get(server.URL + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "resume page", string(body))

	resp, err = http.Get(server.URL + "/api/themes")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.JSONEq(t, `["classic","xenking"]`, string(body))
	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))

	id := createSession(t, server.URL)
	resp, err = http.Get(server.URL + "/api/document?sessionId=" + id)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSetupRequiresTokenWhenSecretSet(t *testing.T) {
	server, _ := newServer(t, Options{JWTSecret: "secret"})

	resp, err := http.Post(server.URL+"/api/sessions/create", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// The theme list is public.
	resp, err = http.Get(server.URL + "/api/themes")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPreviewPushedOverWebSocket(t *testing.T) {
	server, _ := newServer(t, Options{})
	id := createSession(t, server.URL)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?sessionId=" + id
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() socket.WSMessage {
		var msg socket.WSMessage
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	assert.Equal(t, socket.PreviewType, read().Type)
	assert.Equal(t, socket.PresenceUpdateType, read().Type)

	resp, err := http.Post(server.URL+"/api/sections/toggle?sessionId="+id+"&section=skills", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	msg := read()
	require.Equal(t, socket.PreviewType, msg.Type)
	var preview model.PreviewPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &preview))
	assert.Equal(t, "toggle", preview.Kind)
	assert.Equal(t, "skills", preview.Section)
	assert.Contains(t, preview.JSON, `"skills"`)
}
