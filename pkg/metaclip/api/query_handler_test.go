package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metaclip/metaclip/pkg/metaclip"
	memoryrepo "github.com/metaclip/metaclip/pkg/metaclip/repo/memory"
)

// stubExecutor returns canned results for gateway tests.
type stubExecutor struct {
	rows []metaclip.QueryRow
	ids  []string
	err  error
}

func (s *stubExecutor) ExecSelect(ctx context.Context, stmt string) ([]metaclip.QueryRow, error) {
	return s.rows, s.err
}

func (s *stubExecutor) ExecMutation(ctx context.Context, stmt string) ([]string, error) {
	return s.ids, s.err
}

func newQueryServer(t *testing.T, executor metaclip.StatementExecutor) *httptest.Server {
	t.Helper()

	options := []metaclip.Option{metaclip.WithRepository(memoryrepo.New())}
	if executor != nil {
		options = append(options, metaclip.WithStatementExecutor(executor))
	}

	svc, err := metaclip.New(options...)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api", NewQueryHandler(svc).Execute)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func postQuery(t *testing.T, server *httptest.Server, contentType, query string) *http.Response {
	t.Helper()

	resp, err := http.Post(server.URL+"/api", contentType, strings.NewReader(query))
	require.NoError(t, err)
	return resp
}

func TestExecuteSelect(t *testing.T) {
	executor := &stubExecutor{rows: []metaclip.QueryRow{{ID: "a", Type: "text", Name: "n", Content: "aGk="}}}
	server := newQueryServer(t, executor)

	resp := postQuery(t, server, "text/plain", "SELECT * FROM items")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result metaclip.QueryResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, metaclip.QueryKindSelect, result.Kind)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "a", result.Rows[0].ID)
}

func TestExecuteRequiresTextPlain(t *testing.T) {
	server := newQueryServer(t, &stubExecutor{})

	tests := []struct {
		name        string
		contentType string
	}{
		{"json", "application/json"},
		{"empty", ""},
		{"garbage", "not-a-type;;;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postQuery(t, server, tt.contentType, "SELECT * FROM items")
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, "invalid_content_type", body.Code)
		})
	}
}

func TestExecuteAcceptsCharsetParameter(t *testing.T) {
	server := newQueryServer(t, &stubExecutor{})

	resp := postQuery(t, server, "text/plain; charset=utf-8", "SELECT * FROM items")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestExecuteForbiddenCommand(t *testing.T) {
	server := newQueryServer(t, &stubExecutor{})

	resp := postQuery(t, server, "text/plain", "DROP TABLE items")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "forbidden_command", body.Code)
	assert.Equal(t, "DROP", body.Keyword)
}

func TestExecuteMalformedQuery(t *testing.T) {
	server := newQueryServer(t, &stubExecutor{})

	tests := []struct {
		name  string
		query string
	}{
		{"empty", ""},
		{"comment only", "-- nothing"},
		{"multiple statements", "SELECT 1; DELETE FROM items"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postQuery(t, server, "text/plain", tt.query)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, "malformed_query", body.Code)
		})
	}
}

func TestExecuteEngineFailure(t *testing.T) {
	server := newQueryServer(t, &stubExecutor{err: assert.AnError})

	resp := postQuery(t, server, "text/plain", "DELETE FROM items WHERE id = 'x'")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "query_failed", body.Code)
	// Engine detail is not leaked to the client.
	assert.NotContains(t, body.Error, assert.AnError.Error())
}

func TestExecuteWithoutExecutor(t *testing.T) {
	server := newQueryServer(t, nil)

	resp := postQuery(t, server, "text/plain", "SELECT * FROM items")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
