package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handler "cronmachine/internal/handlers/http"
)

func TestHandle(t *testing.T) {
	var gotMethod, gotHeader, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Token")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		if r.URL.Path == "/fail" {
			http.Error(w, "broken", http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	h := handler.HTTP{Client: srv.Client()}
	ctx := context.Background()

	payload, err := json.Marshal(handler.Request{
		URL: srv.URL + "/ok", Method: http.MethodPost, Headers: map[string]string{"X-Token": "abc"}, Body: "ping",
	})
	require.NoError(t, err)
	require.NoError(t, h.Handle(ctx, payload))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "abc", gotHeader)
	assert.Equal(t, "ping", gotBody)

	err = h.Handle(ctx, json.RawMessage(`{"url":"`+srv.URL+`/fail"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502 error: broken")
	assert.Equal(t, http.MethodGet, gotMethod)
}

func TestValidate(t *testing.T) {
	h := handler.HTTP{}
	assert.NoError(t, h.Validate(json.RawMessage(`{"url":"http://example.com"}`)))
	assert.EqualError(t, h.Validate(json.RawMessage(`{}`)), "URL is required")
}
