package collab

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatGenerator_RequestShape(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gemini-2.5-flash", req.Model)
		assert.Zero(t, req.Temperature)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "Act as judge.", req.Messages[0].Content)
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.Contains(t, req.Messages[1].Content, "TOPIC:\nExample Figure")

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  RULING: CONTINUE \n"}}]}`))
	}))
	defer ts.Close()

	g := NewChatGenerator(ts.URL+"/v1/", "gemini-2.5-flash", "secret", ts.Client())
	got, err := g.Generate(context.Background(), PromptContext{
		KeyInstruction: "Act as judge.",
		"topic":        "Example Figure",
	})
	require.NoError(t, err)
	assert.Equal(t, "RULING: CONTINUE", got)
}

func TestChatGenerator_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
	}{
		{"rate limited", http.StatusTooManyRequests, `{}`, true},
		{"server error", http.StatusInternalServerError, `oops`, true},
		{"bad request", http.StatusBadRequest, `bad model`, false},
		{"empty choices", http.StatusOK, `{"choices":[]}`, true},
		{"provider error", http.StatusOK, `{"error":{"message":"overloaded"}}`, true},
		{"garbage", http.StatusOK, `not json`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			_, err := NewChatGenerator(ts.URL, "m", "", ts.Client()).Generate(context.Background(), PromptContext{})
			require.Error(t, err)
			assert.Equal(t, tt.transient, IsServiceError(err), "error: %v", err)
		})
	}
}
