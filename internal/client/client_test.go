package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlllyfish/Moose-railway/internal/testutil"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return New(Config{BaseURL: server.URL, Logger: testutil.NewTestLogger(t)})
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

// --- ListTables ---

func TestListTables_Success(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/tables/doc1", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		writeJSON(t, w, http.StatusOK, []string{"Users", "Orders"})
	}))

	tables, err := c.ListTables(context.Background(), "doc1", "key")
	require.NoError(t, err)
	assert.Equal(t, []string{"Users", "Orders"}, tables)
}

func TestListTables_EmptyIsNotAnError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, []string{})
	}))

	tables, err := c.ListTables(context.Background(), "doc1", "key")
	require.NoError(t, err)
	assert.NotNil(t, tables)
	assert.Empty(t, tables)
}

func TestListTables_NonSuccessStatus(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]string{"error": "bad token"})
	}))

	_, err := c.ListTables(context.Background(), "doc1", "key")
	require.Error(t, err)

	var schemaErr *SchemaFetchError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, http.StatusUnauthorized, schemaErr.Status)
	assert.Equal(t, "Unauthorized", schemaErr.StatusText)
	assert.Equal(t, "bad token", schemaErr.Message)
	assert.Equal(t, KindAuthOrSchema, KindOf(err))
}

func TestListTables_MissingInput(t *testing.T) {
	called := false
	c := newTestClient(t, http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		called = true
	}))

	tests := []struct {
		name  string
		docID string
		cred  string
	}{
		{name: "no doc", docID: "", cred: "key"},
		{name: "no key", docID: "doc", cred: ""},
		{name: "neither", docID: "", cred: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.ListTables(context.Background(), tt.docID, tt.cred)
			require.ErrorIs(t, err, ErrMissingInput)
			assert.Equal(t, KindMissingInput, KindOf(err))
		})
	}
	assert.False(t, called, "no request should be sent")
}

func TestListTables_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()
	c := New(Config{BaseURL: server.URL})

	_, err := c.ListTables(context.Background(), "doc", "key")
	require.Error(t, err)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, "list tables", netErr.Op)
	assert.Equal(t, KindNetwork, KindOf(err))
}

// --- ListColumns ---

func TestListColumns_Success(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/columns/doc1/My%20Table", r.URL.EscapedPath())
		writeJSON(t, w, http.StatusOK, []string{"id", "name"})
	}))

	cols, err := c.ListColumns(context.Background(), "doc1", "My Table", "key")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, cols)
}

func TestListColumns_Failure(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))

	_, err := c.ListColumns(context.Background(), "doc1", "T", "key")
	var schemaErr *SchemaFetchError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, http.StatusBadGateway, schemaErr.Status)
	assert.Contains(t, err.Error(), "upstream exploded")
}

// --- Generate ---

func TestGenerate_Success(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/generate_url", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "k", r.PostForm.Get("api_key"))
		assert.Equal(t, "d1", r.PostForm.Get("doc_id"))
		assert.Equal(t, "T", r.PostForm.Get("table_name"))
		assert.Equal(t, "C", r.PostForm.Get("column_name"))
		writeJSON(t, w, http.StatusOK, map[string]string{
			"url": "https://x/{id}", "doc_id": "d1", "table": "T", "column": "C",
			"format_info": "f", "usage": "u",
		})
	}))

	gen, err := c.Generate(context.Background(), GenerateRequest{Credential: "k", DocumentID: "d1", Table: "T", Column: "C"})
	require.NoError(t, err)
	assert.Equal(t, &Generation{URL: "https://x/{id}", DocID: "d1", Table: "T", Column: "C", FormatInfo: "f", Usage: "u"}, gen)
}

func TestGenerate_ServerError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{name: "error field", status: http.StatusBadRequest, body: `{"error":"Document ID, table and column required"}`, wantMsg: "Document ID, table and column required"},
		{name: "no error field", status: http.StatusInternalServerError, body: `{}`, wantMsg: "unknown error"},
		{name: "not json", status: http.StatusTooManyRequests, body: `slow down`, wantMsg: "unknown error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))

			_, err := c.Generate(context.Background(), GenerateRequest{Credential: "k", DocumentID: "d", Table: "T", Column: "C"})
			var genErr *GenerationError
			require.ErrorAs(t, err, &genErr)
			assert.Equal(t, tt.status, genErr.Status)
			assert.Equal(t, tt.wantMsg, genErr.Message)
			assert.Equal(t, KindGeneration, KindOf(err))
		})
	}
}

func TestGenerate_RefusesIncompleteRequest(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1"})
	for _, r := range []GenerateRequest{
		{DocumentID: "d", Table: "T", Column: "C"},
		{Credential: "k", Table: "T", Column: "C"},
		{Credential: "k", DocumentID: "d", Column: "C"},
		{Credential: "k", DocumentID: "d", Table: "T"},
	} {
		_, err := c.Generate(context.Background(), r)
		assert.ErrorIs(t, err, ErrMissingInput)
	}
}

// --- Test ---

func TestTest_SuccessCountsRecords(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/test_url", r.URL.Path)
		var req testRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://x/{id}", req.URL)
		assert.Equal(t, "LPA", req.TestValue)
		assert.Equal(t, "k", req.APIKey)
		_, _ = w.Write([]byte(`{"success":true,"data":{"records":[{},{}]}}`))
	}))

	exec, err := c.Test(context.Background(), "https://x/{id}", "LPA", "k")
	require.NoError(t, err)
	assert.True(t, exec.Success)
	assert.Equal(t, 2, exec.RecordCount)
	assert.Equal(t, "https://x/LPA", exec.TestURL)
	assert.Contains(t, exec.Raw, `"records"`)
	assert.Empty(t, exec.Error)
}

func TestTest_SuccessWithoutRecords(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{}}`))
	}))

	exec, err := c.Test(context.Background(), "https://x/{id}", "1", "k")
	require.NoError(t, err)
	assert.True(t, exec.Success)
	assert.Equal(t, 0, exec.RecordCount)
}

func TestTest_LogicalFailure(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusBadRequest} {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"success":false,"error":"bad id"}`))
		}))

		exec, err := c.Test(context.Background(), "https://x/{id}", "LPA", "k")
		require.NoError(t, err)
		assert.False(t, exec.Success)
		assert.Equal(t, "bad id", exec.Error)
		assert.Equal(t, 0, exec.RecordCount)
		assert.Empty(t, exec.Raw)
	}
}

func TestTest_UndecodableFailure(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("Too Many Requests"))
	}))

	_, err := c.Test(context.Background(), "https://x/{id}", "LPA", "k")
	var testErr *TestError
	require.ErrorAs(t, err, &testErr)
	assert.Equal(t, http.StatusTooManyRequests, testErr.Status)
}

func TestTest_DeclinedMakesNoCall(t *testing.T) {
	called := false
	c := newTestClient(t, http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		called = true
	}))

	exec, err := c.Test(context.Background(), "https://x/{id}", "", "k")
	assert.Nil(t, exec)
	assert.True(t, IsDeclined(err))
	assert.False(t, called)
}

// --- VerifyCredential ---

func TestVerifyCredential(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req verifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.APIKey == "good" {
			writeJSON(t, w, http.StatusOK, Verification{Success: true, Message: "valid"})
			return
		}
		writeJSON(t, w, http.StatusUnauthorized, Verification{Success: false, Message: "Error 401"})
	}))

	v, err := c.VerifyCredential(context.Background(), "good")
	require.NoError(t, err)
	assert.True(t, v.Success)

	v, err = c.VerifyCredential(context.Background(), "bad")
	require.NoError(t, err)
	assert.False(t, v.Success)
	assert.Equal(t, "Error 401", v.Message)

	_, err = c.VerifyCredential(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingInput)
}

// --- Substitute ---

func TestSubstitute(t *testing.T) {
	tests := []struct {
		name     string
		template string
		value    string
		want     string
		wantErr  bool
	}{
		{name: "single placeholder", template: "https://x/{id}", value: "LPA", want: "https://x/LPA"},
		{name: "encoded filter", template: `https://x/records?filter=%7B%22C%22%3A%5B%22{id}%22%5D%7D`, value: "7", want: `https://x/records?filter=%7B%22C%22%3A%5B%227%22%5D%7D`},
		{name: "no placeholder", template: "https://x/", value: "1", wantErr: true},
		{name: "two placeholders", template: "https://x/{id}/{id}", value: "1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Substitute(tt.template, tt.value)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrPlaceholderCount))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNone, KindOf(nil))
	assert.Equal(t, KindMissingInput, KindOf(ErrDeclined))
	assert.Equal(t, KindNetwork, KindOf(errors.New("boom")))
	assert.True(t, strings.Contains((&SchemaFetchError{Status: 500, StatusText: "Internal Server Error"}).Error(), "500"))
}
