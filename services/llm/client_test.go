// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

// isolateSecrets points key resolution at an empty temp dir and clears the
// key environment variables for the duration of the test.
func isolateSecrets(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old := secretsDir
	secretsDir = dir
	t.Cleanup(func() { secretsDir = old })
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	return dir
}

func floatPtr(f float32) *float32 { return &f }

var testMessages = []Message{
	{Role: "system", Content: "You are a proofreader."},
	{Role: "user", Content: "i has a apple"},
}

// =============================================================================
// Factory and key resolution
// =============================================================================

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(Config{Backend: "bard"})
	assert.Error(t, err)
}

func TestNew_MissingAPIKey(t *testing.T) {
	isolateSecrets(t)

	for _, backend := range []string{BackendOpenAI, BackendAnthropic} {
		t.Run(backend, func(t *testing.T) {
			_, err := New(Config{Backend: backend})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMissingAPIKey))
		})
	}
}

func TestNew_OllamaNeedsNoKey(t *testing.T) {
	isolateSecrets(t)

	client, err := New(Config{Backend: BackendOllama})
	require.NoError(t, err)
	assert.Equal(t, defaultOllamaModel, client.Model())
}

func TestResolveAPIKey_Order(t *testing.T) {
	dir := isolateSecrets(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "openai_api_key"), []byte("from-secret\n"), 0600))

	assert.Equal(t, "from-secret", resolveAPIKey("", "OPENAI_API_KEY", "openai_api_key"))

	t.Setenv("OPENAI_API_KEY", "from-env")
	assert.Equal(t, "from-env", resolveAPIKey("", "OPENAI_API_KEY", "openai_api_key"))
	assert.Equal(t, "explicit", resolveAPIKey(" explicit ", "OPENAI_API_KEY", "openai_api_key"))
}

func TestNewAPIError_TruncatesBody(t *testing.T) {
	body := make([]byte, maxErrorBody*2)
	for i := range body {
		body[i] = 'x'
	}
	apiErr := newAPIError(BackendOllama, 500, body)
	assert.Len(t, apiErr.Body, maxErrorBody+3)
	assert.Contains(t, apiErr.Error(), "status 500")
}

// =============================================================================
// OpenAI
// =============================================================================

func TestOpenAIClient_Chat(t *testing.T) {
	isolateSecrets(t)

	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"I have an apple."},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(Config{APIKey: "sk-test", BaseURL: server.URL + "/", Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, defaultOpenAIModel, client.Model())

	out, err := client.Chat(context.Background(), testMessages, GenerationParams{Temperature: floatPtr(0.1)})
	require.NoError(t, err)
	assert.Equal(t, "I have an apple.", out)

	assert.Equal(t, "gpt-4o-mini", got["model"])
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)
}

func TestOpenAIClient_ErrorStatus(t *testing.T) {
	isolateSecrets(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(Config{APIKey: "sk-test", BaseURL: server.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	_, err = client.Chat(context.Background(), testMessages, GenerationParams{})
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, BackendOpenAI, apiErr.Provider)
}

func TestOpenAIClient_NoChoices(t *testing.T) {
	isolateSecrets(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[]}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(Config{APIKey: "sk-test", BaseURL: server.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	_, err = client.Chat(context.Background(), testMessages, GenerationParams{})
	assert.Error(t, err)
}

// =============================================================================
// Anthropic
// =============================================================================

func TestAnthropicClient_Chat(t *testing.T) {
	isolateSecrets(t)

	var got anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicAPIVersion, r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"m1","type":"message","role":"assistant",
			"content":[{"type":"text","text":"I have "},{"type":"text","text":"an apple."}]}`))
	}))
	defer server.Close()

	client, err := NewAnthropicClient(Config{APIKey: "key-1", Model: "claude-test", BaseURL: server.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	maxTokens := 100
	out, err := client.Chat(context.Background(), testMessages, GenerationParams{MaxTokens: &maxTokens})
	require.NoError(t, err)
	assert.Equal(t, "I have an apple.", out)

	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, 100, got.MaxTokens)
	require.Len(t, got.System, 1)
	assert.Equal(t, "You are a proofreader.", got.System[0].Text)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestAnthropicClient_ErrorStatus(t *testing.T) {
	isolateSecrets(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"bad key"}}`))
	}))
	defer server.Close()

	client, err := NewAnthropicClient(Config{APIKey: "bad", BaseURL: server.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	_, err = client.Chat(context.Background(), testMessages, GenerationParams{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "bad key")
}

// =============================================================================
// Ollama
// =============================================================================

func TestOllamaClient_Chat(t *testing.T) {
	var got ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"Fixed."},"done":true}`))
	}))
	defer server.Close()

	client, err := NewOllamaClient(Config{BaseURL: server.URL + "/", Model: "llama3", Timeout: 5 * time.Second})
	require.NoError(t, err)

	out, err := client.Chat(context.Background(), testMessages, GenerationParams{Temperature: floatPtr(0.1)})
	require.NoError(t, err)
	assert.Equal(t, "Fixed.", out)
	assert.Equal(t, "llama3", got.Model)
	assert.False(t, got.Stream)
	assert.InDelta(t, 0.1, got.Options["temperature"], 0.0001)
}

func TestOllamaClient_ModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'llama3' not found"}`))
	}))
	defer server.Close()

	client, err := NewOllamaClient(Config{BaseURL: server.URL, Model: "llama3", Timeout: 5 * time.Second})
	require.NoError(t, err)

	_, err = client.Chat(context.Background(), testMessages, GenerationParams{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestOllamaClient_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client, err := NewOllamaClient(Config{BaseURL: server.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.Chat(ctx, testMessages, GenerationParams{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
