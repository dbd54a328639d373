package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jlllyfish/Moose-railway/internal/client"
	"github.com/jlllyfish/Moose-railway/internal/credential"
)

// The operations below back both the JSON endpoints and Local, so a builder
// session sees exactly what a remote client of the proxy would.

var errMissingFields = errors.New("Document ID, table and column are required")

type verifyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func verify(ctx context.Context, g *Grist, logger *slog.Logger, apiKey string) verifyResponse {
	key := credential.Normalize(apiKey)
	if key == "" {
		return verifyResponse{Message: "Missing API token", Status: http.StatusBadRequest}
	}

	n, err := g.OrgCount(ctx, key)
	var upErr *UpstreamError
	switch {
	case errors.As(err, &upErr):
		return verifyResponse{
			Message: fmt.Sprintf("Error %d: %s", upErr.Status, upErr.Body),
			Status:  upErr.Status,
		}
	case err != nil:
		logger.Warn("api key verification failed", "error", err)
		return verifyResponse{
			Message: "Connection error: " + err.Error(),
			Status:  http.StatusInternalServerError,
		}
	}
	return verifyResponse{
		Success: true,
		Message: fmt.Sprintf("API token valid! You have access to %d organisation(s).", n),
		Status:  http.StatusOK,
	}
}

// schemaStatus is the status a failed table or column listing answers with.
func schemaStatus(err error) int {
	if errors.Is(err, ErrNoAPIKey) {
		return http.StatusUnauthorized
	}
	return http.StatusBadGateway
}

func generation(ctx context.Context, g *Grist, logger *slog.Logger, docID, table, column, apiKey string) (client.Generation, error) {
	docID = strings.TrimSpace(docID)
	table = strings.TrimSpace(table)
	column = strings.TrimSpace(column)
	if docID == "" || table == "" || column == "" {
		return client.Generation{}, errMissingFields
	}

	gen := client.Generation{
		URL:        g.FilterURL(docID, table, column),
		DocID:      docID,
		DocName:    g.DocumentName(ctx, docID, apiKey),
		Table:      table,
		Column:     column,
		FormatInfo: "The " + client.Placeholder + " placeholder is replaced by the field value (quoted automatically)",
		Usage: fmt.Sprintf("This URL filters table %q on column %q with the value supplied in place of %s",
			table, column, client.Placeholder),
	}
	logger.Debug("url generated", "doc_id", docID, "table", table, "column", column)
	return gen, nil
}

// runTest fetches the records template names for value. The status is the
// one the JSON endpoint answers with.
func runTest(ctx context.Context, g *Grist, logger *slog.Logger, template, value, apiKey string) (int, client.TestResult) {
	if template == "" || value == "" {
		return http.StatusBadRequest, client.TestResult{Error: "URL and test value are required"}
	}
	if !g.Owns(template) {
		return http.StatusBadRequest, client.TestResult{Error: "URL must target " + g.BaseURL()}
	}

	data, testURL, status, err := g.Fetch(ctx, template, value, apiKey)
	if err != nil {
		logger.Warn("test url failed", "error", err)
		return http.StatusBadRequest, client.TestResult{Error: err.Error(), TestURL: testURL}
	}

	var records struct {
		Records []json.RawMessage `json:"records"`
	}
	_ = json.Unmarshal(data, &records)

	return http.StatusOK, client.TestResult{
		Success:    true,
		Data:       data,
		TestURL:    testURL,
		StatusCode: status,
		Message:    fmt.Sprintf("Test succeeded with %d record(s) found", len(records.Records)),
	}
}
