// Package web serves the embedded dashboard page.
//
// The page lists available ports, lets the user connect and disconnect, and
// renders every message pushed over /ws as a scrolling log. It talks to the
// server only through /api/* and /ws.
package web

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
)

// Assets holds the dashboard files.
//
//go:embed assets/*
var Assets embed.FS

// Handler serves assets/index.html at "/" and 404 for every other path.
func Handler(logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		content, err := fs.ReadFile(Assets, "assets/index.html")
		if err != nil {
			http.Error(w, "Dashboard not found", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		if _, err := w.Write(content); err != nil {
			logger.Error("failed to write dashboard response", "err", err)
		}
	})
}
