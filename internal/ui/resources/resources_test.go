//go:build !dev

package resources

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticPathIsFingerprinted(t *testing.T) {
	css := StaticPath("app.css")
	require.True(t, strings.HasPrefix(css, "/static/app.css?v="), css)
	assert.NotEqual(t, css[len("/static/app.css?v="):], StaticPath("app.js")[len("/static/app.js?v="):])

	assert.Equal(t, "/static/missing.css", StaticPath("missing.css"))
}

func TestHandlerCaching(t *testing.T) {
	tests := []struct {
		path  string
		cache string
	}{
		{path: StaticPath("app.js"), cache: "public, max-age=31536000, immutable"},
		{path: "/static/app.js", cache: "public, max-age=300"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.cache, rec.Header().Get("Cache-Control"))
			assert.Contains(t, rec.Body.String(), "mooseCopy")
		})
	}
}
