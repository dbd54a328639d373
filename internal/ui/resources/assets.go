// Package resources serves the builder's stylesheet and script.
package resources

import (
	"strconv"

	"github.com/zeebo/xxh3"
)

// StaticDirectoryPath is the path to static assets from the project root.
const StaticDirectoryPath = "internal/ui/resources/static"

// StaticPath returns the URL of a static asset. Embedded assets carry a
// content fingerprint so browsers refetch them only after a change.
func StaticPath(name string) string {
	if v := fingerprint(name); v != "" {
		return "/static/" + name + "?v=" + v
	}
	return "/static/" + name
}

func sum(data []byte) string {
	return strconv.FormatUint(xxh3.Hash(data), 36)
}
