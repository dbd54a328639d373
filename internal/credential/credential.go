// Package credential holds the user-supplied access token used by every
// authenticated call to the proxy.
package credential

import (
	"net/http"
	"strings"
	"sync"
)

// Holder keeps the current raw token input. It never persists the value.
type Holder struct {
	mu  sync.RWMutex
	raw string
}

// NewHolder creates a Holder seeded with an initial raw value.
func NewHolder(raw string) *Holder {
	return &Holder{raw: raw}
}

// Set replaces the raw input value.
func (h *Holder) Set(raw string) {
	h.mu.Lock()
	h.raw = raw
	h.mu.Unlock()
}

// Current returns the trimmed token. Empty means absent.
func (h *Holder) Current() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Normalize(h.raw)
}

// Present reports whether a non-empty token is held.
func (h *Holder) Present() bool {
	return h.Current() != ""
}

// Normalize trims surrounding whitespace from a raw token.
func Normalize(raw string) string {
	return strings.TrimSpace(raw)
}

// AuthorizationHeaders returns the header set sent with authenticated calls.
func AuthorizationHeaders(credential string) http.Header {
	h := make(http.Header, 2)
	h.Set("Authorization", "Bearer "+credential)
	h.Set("Content-Type", "application/json")
	return h
}

// FromAuthorization extracts the bearer token from an Authorization header
// value. Values without the Bearer prefix are returned trimmed as-is.
func FromAuthorization(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= 6 && strings.EqualFold(value[:6], "bearer") && (len(value) == 6 || value[6] == ' ') {
		value = value[6:]
	}
	return strings.TrimSpace(value)
}

// Mask returns a display-safe form of a token.
func Mask(credential string) string {
	if credential == "" {
		return ""
	}
	if len(credential) <= 4 {
		return "****"
	}
	return strings.Repeat("*", 8) + credential[len(credential)-4:]
}
