package router

import (
	"net/http"

	docHandler "jsoncv/internal/document"
	"jsoncv/internal/document/service"
	"jsoncv/middleware"
	"jsoncv/socket"
)

type Options struct {
	// JWTSecret enables authentication when set.
	JWTSecret string
	// SiteDir is the built static site; no site is served when empty.
	SiteDir    string
	ResumeName string
}

func Setup(svc *service.SessionService, hub *socket.Hub, opts Options) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.AuthMiddleware(opts.JWTSecret)

	// WebSocket
	wsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		socket.ServeWs(hub, w, r, middleware.UserID(r))
	})
	mux.Handle("/ws", auth(wsHandler))

	// REST API
	h := docHandler.NewDocumentHandler(svc)

	mux.Handle("/api/sessions/create", auth(http.HandlerFunc(h.CreateSession)))
	mux.Handle("/api/sessions/delete", auth(http.HandlerFunc(h.DeleteSession)))
	mux.Handle("/api/sessions", auth(http.HandlerFunc(h.ListSessions)))
	mux.Handle("/api/document", auth(http.HandlerFunc(h.Document)))
	mux.Handle("/api/document/sample", auth(http.HandlerFunc(h.LoadSample)))
	mux.Handle("/api/document/new", auth(http.HandlerFunc(h.NewEmpty)))
	mux.Handle("/api/document/upload", auth(http.HandlerFunc(h.Upload)))
	mux.Handle("/api/sections/toggle", auth(http.HandlerFunc(h.ToggleSection)))
	mux.Handle("/api/controls", auth(http.HandlerFunc(h.Controls)))
	mux.Handle("/api/toc", auth(http.HandlerFunc(h.TOC)))
	mux.Handle("/api/preview/json", auth(http.HandlerFunc(h.PreviewJSON)))
	mux.Handle("/api/preview/html", auth(http.HandlerFunc(h.PreviewHTML)))
	mux.Handle("/api/export", auth(http.HandlerFunc(h.Export)))
	mux.Handle("/api/settings/theme", auth(http.HandlerFunc(h.Theme)))
	mux.Handle("/api/settings/color", auth(http.HandlerFunc(h.Color)))
	mux.Handle("/api/themes", http.HandlerFunc(h.Themes))
	mux.Handle("/api/schema", auth(http.HandlerFunc(h.Schema)))

	if opts.SiteDir != "" {
		mux.Handle("/", SiteHandler(opts.SiteDir, opts.ResumeName))
	}

	return middleware.CORSMiddleware(mux)
}
