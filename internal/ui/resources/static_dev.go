//go:build dev

package resources

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
)

// Dir returns the static directory next to this source file, wherever the
// binary runs from.
func Dir() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return StaticDirectoryPath
	}
	return filepath.Join(filepath.Dir(filename), "static")
}

// Assets are read from disk on every request; no fingerprint.
func fingerprint(string) string { return "" }

// Handler serves static files from disk with no caching, so an edit shows up
// on the reload the watcher triggers.
func Handler() http.Handler {
	dir := Dir()
	slog.Info("static assets served from filesystem", "path", dir)
	files := http.StripPrefix("/static/", http.FileServer(http.FS(os.DirFS(dir))))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		files.ServeHTTP(w, r)
	})
}
