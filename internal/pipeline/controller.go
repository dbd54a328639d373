package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/jlllyfish/Moose-railway/internal/client"
)

// ErrBusy is returned when an action is triggered while its previous call is
// still outstanding.
var ErrBusy = errors.New("action already in progress")

// ErrInvalidSelection is returned when a table or column is not among the
// listed options.
var ErrInvalidSelection = errors.New("selection is not among the listed options")

// API is the proxy surface the controller drives. *client.Client implements it.
type API interface {
	VerifyCredential(ctx context.Context, cred string) (*client.Verification, error)
	ListTables(ctx context.Context, documentID, cred string) ([]string, error)
	ListColumns(ctx context.Context, documentID, tableName, cred string) ([]string, error)
	Generate(ctx context.Context, r client.GenerateRequest) (*client.Generation, error)
	Test(ctx context.Context, template, value, cred string) (*client.TestExecution, error)
}

// Observer is notified with the new state after every transition. States
// handed to observers must be treated as read-only.
type Observer func(State)

// GenerationHook runs after a template was generated successfully and is
// shown to the user. Generations superseded by a later edit never reach it.
type GenerationHook func(ctx context.Context, g *client.Generation) error

// Controller owns one session's State and sequences calls to the API.
// It is safe for concurrent use; different actions may run concurrently and
// the same action never runs twice at once.
type Controller struct {
	api       API
	logger    *slog.Logger
	observers []Observer
	onGen     GenerationHook

	mu    sync.Mutex
	state State
	rev   uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithObserver registers a rendering adapter.
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observers = append(c.observers, o) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithGenerationHook sets a hook run after each successful generation.
// Hook errors are logged and never reach the user.
func WithGenerationHook(h GenerationHook) Option {
	return func(c *Controller) { c.onGen = h }
}

// New creates a Controller in the Empty state.
func New(api API, opts ...Option) *Controller {
	c := &Controller{
		api:    api,
		logger: slog.New(slog.DiscardHandler),
		state:  NewState(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the current state with its revision. The revision grows
// by one with every transition.
func (c *Controller) Snapshot() (State, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.rev
}

// Dispatch applies ev and notifies observers.
func (c *Controller) Dispatch(ev Event) State {
	s, _ := c.dispatchIf(nil, ev)
	return s
}

// dispatchIf applies ev only when guard accepts the current state. The check
// and the transition happen under one lock.
func (c *Controller) dispatchIf(guard func(State) error, ev Event) (State, error) {
	c.mu.Lock()
	if guard != nil {
		if err := guard(c.state); err != nil {
			c.mu.Unlock()
			return State{}, err
		}
	}
	c.state = Reduce(c.state, ev)
	c.rev++
	s := c.state
	c.mu.Unlock()

	c.logger.Debug("pipeline transition", "event", EventName(ev), "phase", s.Phase().String())
	for _, o := range c.observers {
		o(s)
	}
	return s, nil
}

// reject records a blocked action as a modal notice and returns err.
func (c *Controller) reject(a Action, msg string, err error) error {
	c.Dispatch(InputRejected{Action: a, Message: msg})
	return err
}

// Throttle records that a rate limit refused action a.
func (c *Controller) Throttle(a Action) State {
	return c.Dispatch(Throttled{Action: a})
}

// SetCredential records a credential edit.
func (c *Controller) SetCredential(raw string) State {
	return c.Dispatch(CredentialChanged{Value: raw})
}

// SetDocumentID records a document id edit.
func (c *Controller) SetDocumentID(raw string) State {
	return c.Dispatch(DocumentIDChanged{Value: raw})
}

// DismissNotice closes the current notice.
func (c *Controller) DismissNotice() State {
	return c.Dispatch(NoticeDismissed{})
}

// VerifyCredential checks the current token against the proxy.
func (c *Controller) VerifyCredential(ctx context.Context) error {
	s := c.State()
	if s.Credential == "" {
		return c.reject(ActionVerify, "Please enter your API token", client.ErrMissingInput)
	}
	s, err := c.dispatchIf(busyGuard(ActionVerify), VerifyRequested{})
	if err != nil {
		return err
	}

	v, err := c.api.VerifyCredential(ctx, s.Credential)
	if err != nil {
		c.logger.Warn("credential verification failed", "error", err)
		c.Dispatch(VerifyFailed{Err: err})
		return nil
	}
	c.Dispatch(Verified{Result: *v})
	return nil
}

// LoadTables fetches the table list for the current document.
func (c *Controller) LoadTables(ctx context.Context) error {
	s := c.State()
	if s.Credential == "" || s.DocumentID == "" {
		return c.reject(ActionLoadTables, "Please enter a document ID and an API token", client.ErrMissingInput)
	}
	s, err := c.dispatchIf(busyGuard(ActionLoadTables), TablesRequested{})
	if err != nil {
		return err
	}

	key := schemaKey{Credential: s.Credential, DocumentID: s.DocumentID}
	tables, err := c.api.ListTables(ctx, key.DocumentID, key.Credential)
	if err != nil {
		c.logger.Warn("loading tables failed", "doc_id", key.DocumentID, "error", err)
		c.Dispatch(TablesFailed{Key: key, Err: err})
		return nil
	}
	c.Dispatch(TablesLoaded{Key: key, Tables: tables})
	return nil
}

// SelectTable selects a table and fetches its columns. An empty name clears
// the selection without any call.
func (c *Controller) SelectTable(ctx context.Context, name string) error {
	s, err := c.dispatchIf(func(s State) error {
		if name != "" && !slices.Contains(s.Tables.Options, name) {
			return ErrInvalidSelection
		}
		return nil
	}, TableSelected{Name: name})
	if err != nil {
		return err
	}
	if s.Columns.Status != SelectorLoading {
		return nil
	}

	key := schemaKey{Credential: s.Credential, DocumentID: s.DocumentID, Table: name}
	columns, err := c.api.ListColumns(ctx, key.DocumentID, key.Table, key.Credential)
	if err != nil {
		c.logger.Warn("loading columns failed", "doc_id", key.DocumentID, "table", name, "error", err)
		c.Dispatch(ColumnsFailed{Key: key, Err: err})
		return nil
	}
	c.Dispatch(ColumnsLoaded{Key: key, Columns: columns})
	return nil
}

// SelectColumn selects a column. An empty name clears the selection.
func (c *Controller) SelectColumn(name string) error {
	_, err := c.dispatchIf(func(s State) error {
		if name != "" && !slices.Contains(s.Columns.Options, name) {
			return ErrInvalidSelection
		}
		return nil
	}, ColumnSelected{Name: name})
	return err
}

// Generate asks the proxy for a template built from the current selections.
// It refuses to submit unless all four fields are populated.
func (c *Controller) Generate(ctx context.Context) error {
	s, err := c.dispatchIf(func(s State) error {
		if !s.Request().Complete() {
			return client.ErrMissingInput
		}
		return busyGuard(ActionGenerate)(s)
	}, GenerateRequested{})
	if err != nil {
		return err
	}

	req := s.Request()
	gen, err := c.api.Generate(ctx, req)
	if err != nil {
		c.logger.Warn("template generation failed", "doc_id", req.DocumentID, "error", err)
		c.Dispatch(GenerationFailed{Request: req, Err: err})
		return nil
	}
	s = c.Dispatch(Generated{Request: req, Generation: gen})
	if s.Result == nil || s.Result.Generation != gen {
		c.logger.Debug("stale generation dropped", "doc_id", req.DocumentID)
		return nil
	}

	if c.onGen != nil {
		if err := c.onGen(ctx, gen); err != nil {
			c.logger.Warn("generation hook failed", "error", err)
		}
	}
	return nil
}

// Test runs the current template with value. An empty value means the user
// declined: client.ErrDeclined is returned and nothing changes.
func (c *Controller) Test(ctx context.Context, value string) error {
	if value == "" {
		return client.ErrDeclined
	}
	s, err := c.dispatchIf(func(s State) error {
		if s.Template() == "" {
			return client.ErrMissingInput
		}
		return busyGuard(ActionTest)(s)
	}, TestRequested{})
	if err != nil {
		return err
	}

	template := s.Template()
	exec, err := c.api.Test(ctx, template, value, s.Credential)
	if err != nil {
		c.logger.Warn("template test failed", "error", err)
		c.Dispatch(TestFailed{Template: template, Err: err})
		return nil
	}
	c.Dispatch(Tested{Template: template, Exec: exec})
	return nil
}

func busyGuard(a Action) func(State) error {
	return func(s State) error {
		if s.Busy[a] {
			return ErrBusy
		}
		return nil
	}
}
