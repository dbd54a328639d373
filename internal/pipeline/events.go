package pipeline

import "github.com/jlllyfish/Moose-railway/internal/client"

// Event is a named state transition trigger.
type Event interface {
	eventName() string
}

// Input edits.
type (
	// CredentialChanged carries the raw token input.
	CredentialChanged struct{ Value string }
	// DocumentIDChanged carries the raw document id input.
	DocumentIDChanged struct{ Value string }
	// TableSelected carries the chosen table; empty clears the choice.
	TableSelected struct{ Name string }
	// ColumnSelected carries the chosen column; empty clears the choice.
	ColumnSelected struct{ Name string }
	// NoticeDismissed closes the current notice.
	NoticeDismissed struct{}
	// InputRejected reports an action blocked before any call.
	InputRejected struct {
		Action  Action
		Message string
	}
	// Throttled reports an action refused by rate limiting.
	Throttled struct {
		Action Action
	}
)

// schemaKey identifies the inputs a listing was issued for.
type schemaKey struct {
	Credential string
	DocumentID string
	Table      string
}

// Call starts and completions.
type (
	VerifyRequested struct{}
	Verified        struct{ Result client.Verification }
	VerifyFailed    struct{ Err error }

	TablesRequested struct{}
	TablesLoaded    struct {
		Key    schemaKey
		Tables []string
	}
	TablesFailed struct {
		Key schemaKey
		Err error
	}

	ColumnsLoaded struct {
		Key     schemaKey
		Columns []string
	}
	ColumnsFailed struct {
		Key schemaKey
		Err error
	}

	GenerateRequested struct{}
	Generated         struct {
		Request    client.GenerateRequest
		Generation *client.Generation
	}
	GenerationFailed struct {
		Request client.GenerateRequest
		Err     error
	}

	TestRequested struct{}
	Tested        struct {
		Template string
		Exec     *client.TestExecution
	}
	TestFailed struct {
		Template string
		Err      error
	}
)

func (CredentialChanged) eventName() string { return "credential_changed" }
func (DocumentIDChanged) eventName() string { return "document_id_changed" }
func (TableSelected) eventName() string     { return "table_selected" }
func (ColumnSelected) eventName() string    { return "column_selected" }
func (NoticeDismissed) eventName() string   { return "notice_dismissed" }
func (InputRejected) eventName() string     { return "input_rejected" }
func (Throttled) eventName() string         { return "throttled" }
func (VerifyRequested) eventName() string   { return "verify_requested" }
func (Verified) eventName() string          { return "verified" }
func (VerifyFailed) eventName() string      { return "verify_failed" }
func (TablesRequested) eventName() string   { return "tables_requested" }
func (TablesLoaded) eventName() string      { return "tables_loaded" }
func (TablesFailed) eventName() string      { return "tables_failed" }
func (ColumnsLoaded) eventName() string     { return "columns_loaded" }
func (ColumnsFailed) eventName() string     { return "columns_failed" }
func (GenerateRequested) eventName() string { return "generate_requested" }
func (Generated) eventName() string         { return "generated" }
func (GenerationFailed) eventName() string  { return "generation_failed" }
func (TestRequested) eventName() string     { return "test_requested" }
func (Tested) eventName() string            { return "tested" }
func (TestFailed) eventName() string        { return "test_failed" }

// EventName returns the stable name of an event, for logging.
func EventName(ev Event) string {
	return ev.eventName()
}
