package client

import (
	"bytes"
	"encoding/json"
)

// Placeholder is the token a caller substitutes with a record identifier.
const Placeholder = "{id}"

// Generation is the proxy's description of a generated URL template.
type Generation struct {
	URL        string `json:"url"`
	DocID      string `json:"doc_id"`
	DocName    string `json:"doc_name,omitempty"`
	Table      string `json:"table"`
	Column     string `json:"column"`
	FormatInfo string `json:"format_info"`
	Usage      string `json:"usage"`
}

// GenerateRequest carries the four fields submitted for template generation.
type GenerateRequest struct {
	Credential string
	DocumentID string
	Table      string
	Column     string
}

// Complete reports whether every field is populated.
func (r GenerateRequest) Complete() bool {
	return r.Credential != "" && r.DocumentID != "" && r.Table != "" && r.Column != ""
}

// TestExecution is the outcome of running a template with a concrete value.
type TestExecution struct {
	Template    string `json:"template"`
	Value       string `json:"value"`
	TestURL     string `json:"test_url,omitempty"`
	Success     bool   `json:"success"`
	RecordCount int    `json:"record_count"`
	Raw         string `json:"raw,omitempty"`
	Error       string `json:"error,omitempty"`
	StatusCode  int    `json:"status_code,omitempty"`
}

// Verification is the proxy's verdict on a credential.
type Verification struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// testRequest is the JSON body posted to /test_url.
type testRequest struct {
	URL       string `json:"url"`
	TestValue string `json:"test_value"`
	APIKey    string `json:"api_key"`
}

// TestResult is the JSON body returned by /test_url.
type TestResult struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data,omitempty"`
	Error      string          `json:"error,omitempty"`
	TestURL    string          `json:"test_url,omitempty"`
	StatusCode int             `json:"status_code,omitempty"`
	Message    string          `json:"message,omitempty"`
}

// Execution describes r as the outcome of running template with value.
// substituted is reported when r carries no test URL.
func (r TestResult) Execution(template, value, substituted string) *TestExecution {
	exec := &TestExecution{
		Template:   template,
		Value:      value,
		TestURL:    substituted,
		Success:    r.Success,
		StatusCode: r.StatusCode,
	}
	if r.TestURL != "" {
		exec.TestURL = r.TestURL
	}

	if !r.Success {
		exec.Error = r.Error
		if exec.Error == "" {
			exec.Error = "unknown error"
		}
		return exec
	}

	if len(r.Data) > 0 {
		var rd recordData
		if err := json.Unmarshal(r.Data, &rd); err == nil {
			exec.RecordCount = len(rd.Records)
		}
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, r.Data, "", "  "); err == nil {
			exec.Raw = pretty.String()
		} else {
			exec.Raw = string(r.Data)
		}
	}
	return exec
}

// recordData is the part of the upstream payload needed to count records.
type recordData struct {
	Records []json.RawMessage `json:"records"`
}

type verifyRequest struct {
	APIKey string `json:"api_key"`
}

type errorResponse struct {
	Error string `json:"error"`
}
