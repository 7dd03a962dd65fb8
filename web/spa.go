// Package web serves a prebuilt frontend from disk as a single-page
// application (SPA). The frontend itself is built and shipped separately.
package web

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
)

// ErrNoIndex is returned when the frontend directory has no index.html.
var ErrNoIndex = errors.New("frontend directory has no index.html")

// SPAHandler returns an http.Handler that serves files from dir and falls
// back to index.html for any path that doesn't match a file (client-side
// routing). API and WebSocket paths are never rewritten.
func SPAHandler(dir string) (http.Handler, error) {
	return spaHandler(os.DirFS(dir))
}

func spaHandler(root fs.FS) (http.Handler, error) {
	if _, err := fs.Stat(root, "index.html"); err != nil {
		return nil, ErrNoIndex
	}

	fileServer := http.FileServer(http.FS(root))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/ws/") {
			http.NotFound(w, r)
			return
		}

		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name == "" {
			name = "index.html"
		}

		if f, err := root.Open(name); err == nil {
			if closeErr := f.Close(); closeErr != nil {
				slog.Debug("web: failed to close file", "path", name, "error", closeErr)
			}
			fileServer.ServeHTTP(w, r)
			return
		}

		// Not found: serve index.html for SPA routing.
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	}), nil
}
