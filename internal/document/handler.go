package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"jsoncv/internal/document/model"
	"jsoncv/internal/document/service"
	"jsoncv/internal/editor"
	"jsoncv/internal/render"
	"jsoncv/middleware"
	"jsoncv/pkg/logger"
)

// maxUploadSize bounds uploaded CV files.
const maxUploadSize = 10 << 20

type DocumentHandler struct {
	Service *service.SessionService
}

func NewDocumentHandler(service *service.SessionService) *DocumentHandler {
	return &DocumentHandler{Service: service}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Sugar.Errorf("Handler: failed to encode response: %v", err)
	}
}

// session resolves the sessionId parameter. Writes require the session owner.
func (h *DocumentHandler) session(w http.ResponseWriter, r *http.Request, write bool) (*editor.Session, bool) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "Missing sessionId parameter", http.StatusBadRequest)
		return nil, false
	}
	owner, err := h.Service.Owner(sessionID)
	if err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	if write && owner != middleware.UserID(r) {
		http.Error(w, service.ErrForbidden.Error(), http.StatusForbidden)
		return nil, false
	}
	session, err := h.Service.Get(sessionID)
	if err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

func (h *DocumentHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.CreateSessionRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // Ignore error, default to a new session

	sessionID, err := h.Service.CreateSession(middleware.UserID(r), req.SessionID)
	switch {
	case errors.Is(err, service.ErrInvalidSessionID):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, service.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	case err != nil:
		logger.Sugar.Errorf("Handler: Failed to create session: %v", err)
		http.Error(w, "Failed to create session: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, model.CreateSessionResponse{SessionID: sessionID})
}

func (h *DocumentHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "Missing sessionId parameter", http.StatusBadRequest)
		return
	}

	err := h.Service.DeleteSession(sessionID, middleware.UserID(r))
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, service.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	case err != nil:
		logger.Sugar.Errorf("Handler: Failed to delete session %s: %v", sessionID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Session deleted successfully"))
}

func (h *DocumentHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, h.Service.ListSessions(middleware.UserID(r)))
}

// Document returns the live document on GET and replaces it with a form edit on PUT.
func (h *DocumentHandler) Document(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		session, ok := h.session(w, r, false)
		if !ok {
			return
		}
		writeJSON(w, session.Document())

	case http.MethodPut:
		if _, ok := h.session(w, r, true); !ok {
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadSize))
		if err != nil || len(body) == 0 {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := h.Service.SetDocumentJSON(r.URL.Query().Get("sessionId"), body); err != nil {
			if errors.Is(err, service.ErrInvalidDocument) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			logger.Sugar.Errorf("Handler: Failed to update document: %v", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Document updated successfully"))

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *DocumentHandler) ToggleSection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	session, ok := h.session(w, r, true)
	if !ok {
		return
	}

	section := r.URL.Query().Get("section")
	if section == "" {
		var req model.ToggleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Section == "" {
			http.Error(w, "Missing section", http.StatusBadRequest)
			return
		}
		section = req.Section
	}

	if err := session.ToggleSection(section); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	hidden := session.Document().Meta.HiddenSections
	if hidden == nil {
		hidden = []string{}
	}
	writeJSON(w, model.ToggleResponse{
		Section:        section,
		Hidden:         session.IsSectionHidden(section),
		HiddenSections: hidden,
	})
}

func (h *DocumentHandler) Controls(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	session, ok := h.session(w, r, false)
	if !ok {
		return
	}
	writeJSON(w, session.Controls())
}

func (h *DocumentHandler) TOC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	session, ok := h.session(w, r, false)
	if !ok {
		return
	}
	writeJSON(w, session.TOC())
}

func (h *DocumentHandler) PreviewJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	session, ok := h.session(w, r, false)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(session.PreviewJSON()))
}

func (h *DocumentHandler) PreviewHTML(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	session, ok := h.session(w, r, false)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(session.PreviewHTML()))
}

// Export stamps the document metadata and sends the file as a download.
func (h *DocumentHandler) Export(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	session, ok := h.session(w, r, true)
	if !ok {
		return
	}

	var (
		artifact editor.Artifact
		err      error
	)
	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		artifact, err = session.ExportJSON()
	case "html":
		artifact, err = session.ExportHTML()
	default:
		http.Error(w, "Unknown export format: "+format, http.StatusBadRequest)
		return
	}
	if errors.Is(err, editor.ErrNoPreview) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to export session %s: %v", session.ID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", contentDisposition(artifact.Filename))
	w.Write(artifact.Body)
}

func contentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment; filename*=UTF-8''" + url.PathEscape(filename)
}

// confirmation answers the replace prompt from the confirm query parameter and
// remembers the prompt that was asked.
type confirmation struct {
	confirmed bool
	prompt    string
}

func (c *confirmation) Confirm(prompt string) bool {
	c.prompt = prompt
	return c.confirmed
}

func newConfirmation(r *http.Request) *confirmation {
	return &confirmation{confirmed: r.URL.Query().Get("confirm") == "true"}
}

func (h *DocumentHandler) replaceResult(w http.ResponseWriter, session *editor.Session, c *confirmation, err error) {
	switch {
	case errors.Is(err, editor.ErrNotConfirmed):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPreconditionRequired)
		json.NewEncoder(w).Encode(model.ConfirmRequired{Prompt: c.prompt})
	case errors.Is(err, editor.ErrInvalidUpload):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case err != nil:
		logger.Sugar.Errorf("Handler: Failed to replace document of session %s: %v", session.ID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		writeJSON(w, session.Document())
	}
}

func (h *DocumentHandler) LoadSample(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	session, ok := h.session(w, r, true)
	if !ok {
		return
	}
	c := newConfirmation(r)
	h.replaceResult(w, session, c, session.LoadSample(c))
}

func (h *DocumentHandler) NewEmpty(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	session, ok := h.session(w, r, true)
	if !ok {
		return
	}
	c := newConfirmation(r)
	h.replaceResult(w, session, c, session.NewEmpty(c))
}

// Upload accepts the file as a multipart "file" field or as the raw body.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	session, ok := h.session(w, r, true)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	var body io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, fmt.Sprintf("Missing file: %v", err), http.StatusBadRequest)
			return
		}
		defer file.Close()
		body = file
	}

	c := newConfirmation(r)
	h.replaceResult(w, session, c, session.Upload(body, c))
}

func (h *DocumentHandler) Theme(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		session, ok := h.session(w, r, false)
		if !ok {
			return
		}
		writeJSON(w, model.ThemeRequest{Theme: session.Theme()})

	case http.MethodPut:
		session, ok := h.session(w, r, true)
		if !ok {
			return
		}
		var req model.ThemeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Theme == "" {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := session.SetTheme(req.Theme); err != nil {
			if errors.Is(err, editor.ErrUnknownTheme) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			logger.Sugar.Errorf("Handler: Failed to save theme: %v", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, model.ThemeRequest{Theme: session.Theme()})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *DocumentHandler) Color(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		session, ok := h.session(w, r, false)
		if !ok {
			return
		}
		writeJSON(w, model.ColorRequest{Color: session.PrimaryColor()})

	case http.MethodPut:
		session, ok := h.session(w, r, true)
		if !ok {
			return
		}
		var req model.ColorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Color == "" {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := session.SetPrimaryColor(req.Color); err != nil {
			logger.Sugar.Errorf("Handler: Failed to save primary color: %v", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, model.ColorRequest{Color: session.PrimaryColor()})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *DocumentHandler) Themes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, render.ThemeNames())
}

// Schema returns the augmented schema the editor form is built from.
func (h *DocumentHandler) Schema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	session, ok := h.session(w, r, false)
	if !ok {
		return
	}
	writeJSON(w, session.Schema())
}
