package router

import (
	"errors"
	"io/fs"
	"net/http"
	"path"

	"jsoncv/pkg/logger"
)

// SiteHandler serves the built site from dir. The root path shows the
// resume named resumeName and /editor shows the editor page. Everything else
// is served as a static asset.
func SiteHandler(dir, resumeName string) http.Handler {
	root := http.Dir(dir)
	assets := http.FileServer(root)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/", "":
			serveAsset(w, r, root, path.Join("/resume", resumeName+".html"))
		case "/editor", "/editor/":
			serveAsset(w, r, root, "/index.html")
		default:
			assets.ServeHTTP(w, r)
		}
	})
}

// serveAsset writes one file without the index.html redirect of http.FileServer.
func serveAsset(w http.ResponseWriter, r *http.Request, root http.FileSystem, name string) {
	logger.Sugar.Debugf("Serving %s for %s", name, r.URL.Path)

	f, err := root.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "Failed to open "+name, http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
