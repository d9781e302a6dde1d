package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protectedServer(t *testing.T, tokens []string) *httptest.Server {
	t.Helper()

	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(CallerFromContext(r.Context())))
	})
	handler = RequireToken(tokens)(handler)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func getWithAuth(t *testing.T, url, token string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestRequireTokenAccepted(t *testing.T) {
	server := protectedServer(t, []string{"alpha-token", "beta-token"})

	for _, token := range []string{"alpha-token", "beta-token"} {
		resp := getWithAuth(t, server.URL, token)
		body := readAll(t, resp)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		// The matched token identifies the caller downstream.
		assert.Equal(t, token, body)
	}
}

func TestRequireTokenRejected(t *testing.T) {
	server := protectedServer(t, []string{"alpha-token"})

	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"wrong", "other-token"},
		{"prefix of valid", "alpha"},
		{"valid plus suffix", "alpha-token-extra"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := getWithAuth(t, server.URL, tt.token)
			readAll(t, resp)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestRequireTokenDisabledWhenEmpty(t *testing.T) {
	server := protectedServer(t, nil)

	resp := getWithAuth(t, server.URL, "")
	body := readAll(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body, "no caller identity without auth")
}
