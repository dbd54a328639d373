//go:build !dev

package resources

import (
	"embed"
	"io/fs"
	"net/http"
	"sync"
)

//go:embed static/*
var staticFS embed.FS

var fingerprints = sync.OnceValue(func() map[string]string {
	out := make(map[string]string)
	entries, _ := fs.ReadDir(staticFS, "static")
	for _, e := range entries {
		if data, err := fs.ReadFile(staticFS, "static/"+e.Name()); err == nil {
			out[e.Name()] = sum(data)
		}
	}
	return out
})

func fingerprint(name string) string { return fingerprints()[name] }

// Dir returns "" because assets are embedded in the binary.
func Dir() string { return "" }

// Handler serves the embedded static files. Fingerprinted URLs never change
// content, so they are cached for a year; bare URLs for five minutes.
func Handler() http.Handler {
	fsys, _ := fs.Sub(staticFS, "static")
	files := http.StripPrefix("/static/", http.FileServer(http.FS(fsys)))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("v") != "" {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		} else {
			w.Header().Set("Cache-Control", "public, max-age=300")
		}
		files.ServeHTTP(w, r)
	})
}
