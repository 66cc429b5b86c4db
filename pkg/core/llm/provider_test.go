package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	p, ok, err := NewProvider(Settings{GeminiAPIKey: "k", GeminiModel: "m"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.IsType(t, &GeminiProvider{}, p)

	_, ok, err = NewProvider(Settings{Provider: "openai"})
	require.NoError(t, err)
	assert.False(t, ok, "no key means no provider")

	p, ok, err = NewProvider(Settings{Provider: "OpenAI", OpenAIAPIKey: "k"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.IsType(t, &OpenAIProvider{}, p)

	_, _, err = NewProvider(Settings{Provider: "kimi"})
	assert.Error(t, err)
}

func TestOpenAIProvider_GenerateResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`))
	}))
	defer server.Close()

	p := &OpenAIProvider{APIKey: "secret", Model: "gpt-test", BaseURL: server.URL}
	out, err := p.GenerateResponse(context.Background(), "rows", "map rows", map[string]interface{}{"json": true})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
}

func TestOpenAIProvider_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := (&OpenAIProvider{}).GenerateResponse(context.Background(), "p", "", nil)
	assert.Error(t, err)

	p := &OpenAIProvider{APIKey: "bad", BaseURL: server.URL}
	_, err = p.GenerateResponse(context.Background(), "p", "", nil)
	assert.ErrorContains(t, err, "status=401")
}
