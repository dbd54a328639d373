package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jlllyfish/Moose-railway/internal/client"
)

// Local answers builder sessions in-process. It reports results and
// failures with the same values client.Client decodes from the JSON
// endpoints, without a loopback HTTP hop.
type Local struct {
	grist  *Grist
	logger *slog.Logger
}

// NewLocal creates an in-process API over g.
func NewLocal(g *Grist, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Local{grist: g, logger: logger}
}

// VerifyCredential checks cred against Grist.
func (l *Local) VerifyCredential(ctx context.Context, cred string) (*client.Verification, error) {
	if cred == "" {
		return nil, fmt.Errorf("verify credential: %w: api key", client.ErrMissingInput)
	}
	v := verify(ctx, l.grist, l.logger, cred)
	return &client.Verification{Success: v.Success, Message: v.Message}, nil
}

// ListTables returns the user tables of a document.
func (l *Local) ListTables(ctx context.Context, documentID, cred string) ([]string, error) {
	if documentID == "" || cred == "" {
		return nil, fmt.Errorf("list tables: %w: document id and api key are required", client.ErrMissingInput)
	}
	tables, err := l.grist.Tables(ctx, documentID, cred)
	if err != nil {
		return nil, l.schemaError("list tables", err, "doc_id", documentID)
	}
	return tables, nil
}

// ListColumns returns the columns of a table.
func (l *Local) ListColumns(ctx context.Context, documentID, table, cred string) ([]string, error) {
	if documentID == "" || table == "" || cred == "" {
		return nil, fmt.Errorf("list columns: %w: document id, table and api key are required", client.ErrMissingInput)
	}
	columns, err := l.grist.Columns(ctx, documentID, table, cred)
	if err != nil {
		return nil, l.schemaError("list columns", err, "doc_id", documentID, "table", table)
	}
	return columns, nil
}

func (l *Local) schemaError(op string, err error, attrs ...any) error {
	l.logger.Warn(op+" failed", append(attrs, "error", err)...)
	status := schemaStatus(err)
	return &client.SchemaFetchError{
		Status:     status,
		StatusText: http.StatusText(status),
		Message:    err.Error(),
	}
}

// Generate describes the filter URL for the request.
func (l *Local) Generate(ctx context.Context, r client.GenerateRequest) (*client.Generation, error) {
	if !r.Complete() {
		return nil, fmt.Errorf("generate: %w: api key, document id, table and column are required", client.ErrMissingInput)
	}
	gen, err := generation(ctx, l.grist, l.logger, r.DocumentID, r.Table, r.Column, r.Credential)
	if err != nil {
		return nil, &client.GenerationError{Status: http.StatusBadRequest, Message: err.Error()}
	}
	return &gen, nil
}

// Test runs template with value. An empty value is client.ErrDeclined.
func (l *Local) Test(ctx context.Context, template, value, cred string) (*client.TestExecution, error) {
	if value == "" {
		return nil, client.ErrDeclined
	}
	substituted, err := client.Substitute(template, value)
	if err != nil {
		return nil, err
	}
	_, res := runTest(ctx, l.grist, l.logger, template, value, cred)
	return res.Execution(template, value, substituted), nil
}
