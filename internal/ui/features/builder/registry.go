package builder

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/jlllyfish/Moose-railway/internal/pipeline"
	"github.com/jlllyfish/Moose-railway/internal/ui/notifier"
)

const (
	cookieName = "moose"
	sessionKey = "builder_id"
)

// WidgetPath is the embeddable builder page.
const WidgetPath = "/widget"

// Session is one browser's builder state.
type Session struct {
	ID         string
	Controller *pipeline.Controller
	// Notifier pings the session's update streams after every transition.
	Notifier *notifier.Notifier

	lastSeen time.Time
}

// Registry maps browser sessions to controllers. Entries idle longer than
// the TTL are dropped by Sweep.
type Registry struct {
	store   sessions.Store
	api     pipeline.API
	opts    []pipeline.Option
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time
	mu      sync.Mutex
	entries map[string]*Session
}

// NewRegistry creates a registry. opts are applied to every new controller.
func NewRegistry(store sessions.Store, api pipeline.API, ttl time.Duration, logger *slog.Logger, opts ...pipeline.Option) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		store:   store,
		api:     api,
		opts:    opts,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]*Session),
	}
}

// Get returns the session bound to the request cookie, creating one (and
// setting the cookie) when absent or expired.
func (r *Registry) Get(w http.ResponseWriter, req *http.Request) (*Session, error) {
	cookie, _ := r.store.Get(req, cookieName)
	id, _ := cookie.Values[sessionKey].(string)

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.entries[id]; ok {
		s.lastSeen = r.now()
		return s, nil
	}

	s := r.newSession()
	r.entries[s.ID] = s
	cookie.Values[sessionKey] = s.ID
	if embedded(req) {
		// Framed by another site: the cookie only comes back with the
		// builder's requests when it is cross-site, and partitioned per
		// embedding site where the browser supports it.
		cookie.Options.SameSite = http.SameSiteNoneMode
		cookie.Options.Secure = true
		cookie.Options.Partitioned = true
	}
	if err := cookie.Save(req, w); err != nil {
		delete(r.entries, s.ID)
		return nil, err
	}
	r.logger.Debug("builder session created", "session", s.ID)
	return s, nil
}

// embedded reports whether req comes from the widget page or from a document
// on another site.
func embedded(req *http.Request) bool {
	return req.URL.Path == WidgetPath || req.Header.Get("Sec-Fetch-Site") == "cross-site"
}

func (r *Registry) newSession() *Session {
	n := notifier.New()
	opts := append([]pipeline.Option{
		pipeline.WithLogger(r.logger),
		pipeline.WithObserver(func(pipeline.State) { n.Broadcast() }),
	}, r.opts...)

	return &Session{
		ID:         uuid.New().String(),
		Controller: pipeline.New(r.api, opts...),
		Notifier:   n,
		lastSeen:   r.now(),
	}
}

// Sweep drops sessions idle for longer than the TTL and returns how many
// were removed. A session with an open update stream is never idle.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.entries {
		if s.Notifier.Listeners() > 0 {
			s.lastSeen = r.now()
			continue
		}
		if s.lastSeen.Before(cutoff) {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
