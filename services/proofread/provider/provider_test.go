// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package provider

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AleutianAI/AleutianProofread/services/llm"
	"github.com/AleutianAI/AleutianProofread/services/proofread/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

// fakeClient is an llm.LLMClient whose replies come from respond.
type fakeClient struct {
	respond func(call int, messages []llm.Message, params llm.GenerationParams) (string, error)
	calls   atomic.Int32
}

func (f *fakeClient) Chat(ctx context.Context, messages []llm.Message, params llm.GenerationParams) (string, error) {
	n := int(f.calls.Add(1))
	return f.respond(n, messages, params)
}

func (f *fakeClient) Model() string { return "fake-model" }

func replyWith(text string) *fakeClient {
	return &fakeClient{respond: func(int, []llm.Message, llm.GenerationParams) (string, error) {
		return text, nil
	}}
}

func failWith(err error) *fakeClient {
	return &fakeClient{respond: func(int, []llm.Message, llm.GenerationParams) (string, error) {
		return "", err
	}}
}

func fastOptions(retries int) LLMOptions {
	return LLMOptions{Timeout: time.Second, MaxRetries: retries, RetryBackoff: time.Millisecond}
}

// =============================================================================
// MockCorrector
// =============================================================================

func TestMockCorrector_Correct(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"pronoun", "i think so", "I think so"},
		{"im", "im here", "I'm here"},
		{"typos", "teh cat will recieve thier food", "The cat will receive their food"},
		{"contractions", "i dont know, cant say, wont go", "I don't know, can't say, won't go"},
		{"alot", "thanks alot", "Thanks a lot"},
		{"long words", "definately seperate, it occured untill now", "Definitely separate, it occurred until now"},
		{"whitespace", "  hello    world  ", "Hello world"},
		{"space before punctuation", "hello , world !", "Hello, world!"},
		{"case insensitive", "TEH end", "The end"},
		{"word boundaries", "item timer", "Item timer"},
		{"already correct", "Nothing to fix.", "Nothing to fix."},
		{"empty", "", ""},
	}
	m := NewMockCorrector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Correct(context.Background(), tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, MockName, m.Name())
}

func TestMockCorrector_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMockCorrector().Correct(ctx, "text")
	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// LLMCorrector
// =============================================================================

func TestLLMCorrector_SendsPromptAndParams(t *testing.T) {
	var gotMessages []llm.Message
	var gotParams llm.GenerationParams
	client := &fakeClient{respond: func(_ int, m []llm.Message, p llm.GenerationParams) (string, error) {
		gotMessages, gotParams = m, p
		return "I have an apple.", nil
	}}

	c := NewLLMCorrector(client, "openai", LLMOptions{MaxTokens: 200})
	out, err := c.Correct(context.Background(), "i has a apple")
	require.NoError(t, err)
	assert.Equal(t, "I have an apple.", out)
	assert.Equal(t, "openai", c.Name())

	require.Len(t, gotMessages, 2)
	assert.Equal(t, "system", gotMessages[0].Role)
	assert.Equal(t, SystemPrompt, gotMessages[0].Content)
	assert.Equal(t, "i has a apple", gotMessages[1].Content)
	require.NotNil(t, gotParams.Temperature)
	assert.InDelta(t, 0.1, *gotParams.Temperature, 0.0001)
	require.NotNil(t, gotParams.MaxTokens)
	assert.Equal(t, 200, *gotParams.MaxTokens)
}

func TestLLMCorrector_CleansReply(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		input string
		want  string
	}{
		{"trim", "  Fixed text.\n", "fixed text", "Fixed text."},
		{"quotes", `"Fixed text."`, "fixed text", "Fixed text."},
		{"smart quotes", "“Fixed text.”", "fixed text", "Fixed text."},
		{"quoted input keeps quotes", `"Fixed."`, `"fixed."`, `"Fixed."`},
		{"fence", "```\nFixed text.\n```", "fixed text", "Fixed text."},
		{"fence with language", "```text\nFixed text.\n```", "fixed text", "Fixed text."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewLLMCorrector(replyWith(tt.reply), "openai", fastOptions(0))
			out, err := c.Correct(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestLLMCorrector_EmptyReplyIsUpstreamError(t *testing.T) {
	c := NewLLMCorrector(replyWith("   "), "openai", fastOptions(0))
	_, err := c.Correct(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, IsUpstream(err))
	assert.False(t, IsUnavailable(err))
}

func TestLLMCorrector_RetriesTransientErrors(t *testing.T) {
	client := &fakeClient{respond: func(call int, _ []llm.Message, _ llm.GenerationParams) (string, error) {
		if call < 3 {
			return "", &llm.APIError{Provider: "openai", StatusCode: http.StatusServiceUnavailable}
		}
		return "ok", nil
	}}
	c := NewLLMCorrector(client, "openai", fastOptions(2))

	out, err := c.Correct(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(3), client.calls.Load())
}

func TestLLMCorrector_DoesNotRetryClientErrors(t *testing.T) {
	client := failWith(&llm.APIError{Provider: "openai", StatusCode: http.StatusUnauthorized})
	c := NewLLMCorrector(client, "openai", fastOptions(3))

	_, err := c.Correct(context.Background(), "text")
	require.Error(t, err)
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, "openai", upstream.Provider)
	assert.Equal(t, int32(1), client.calls.Load())
}

func TestLLMCorrector_CallerCancellationIsNotUpstream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &fakeClient{respond: func(int, []llm.Message, llm.GenerationParams) (string, error) {
		cancel()
		return "", context.Canceled
	}}
	c := NewLLMCorrector(client, "openai", fastOptions(2))

	_, err := c.Correct(ctx, "text")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsUpstream(err))
}

func TestLLMCorrector_AttemptTimeoutIsUpstream(t *testing.T) {
	client := &fakeClient{respond: func(int, []llm.Message, llm.GenerationParams) (string, error) {
		time.Sleep(20 * time.Millisecond)
		return "", context.DeadlineExceeded
	}}
	c := NewLLMCorrector(client, "ollama", LLMOptions{Timeout: 5 * time.Millisecond})

	_, err := c.Correct(context.Background(), "text")
	assert.True(t, IsUpstream(err))
}

func TestLLMCorrector_CoalescesIdenticalRequests(t *testing.T) {
	release := make(chan struct{})
	client := &fakeClient{respond: func(int, []llm.Message, llm.GenerationParams) (string, error) {
		<-release
		return "Same.", nil
	}}
	c := NewLLMCorrector(client, "openai", fastOptions(0))

	const callers = 5
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Correct(context.Background(), "same")
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "Same.", r)
	}
	assert.Less(t, client.calls.Load(), int32(callers))
}

func TestLLMCorrector_CancelledCallerDoesNotFailSharedRequest(t *testing.T) {
	release := make(chan struct{})
	client := &fakeClient{respond: func(int, []llm.Message, llm.GenerationParams) (string, error) {
		<-release
		return "Same.", nil
	}}
	c := NewLLMCorrector(client, "openai", fastOptions(0))

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Correct(firstCtx, "same")
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return client.calls.Load() == 1 }, time.Second, time.Millisecond)

	type outcome struct {
		out string
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		out, err := c.Correct(context.Background(), "same")
		second <- outcome{out, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting on the shared request")
	}

	close(release)
	select {
	case got := <-second:
		require.NoError(t, got.err)
		assert.Equal(t, "Same.", got.out)
	case <-time.After(time.Second):
		t.Fatal("second caller never received the shared result")
	}
	assert.Equal(t, int32(1), client.calls.Load())
}

func TestLLMCorrector_ZeroTemperatureIsSent(t *testing.T) {
	var gotParams llm.GenerationParams
	client := &fakeClient{respond: func(_ int, _ []llm.Message, p llm.GenerationParams) (string, error) {
		gotParams = p
		return "Ok.", nil
	}}
	zero := float32(0)
	c := NewLLMCorrector(client, "openai", LLMOptions{Temperature: &zero})

	_, err := c.Correct(context.Background(), "ok")
	require.NoError(t, err)
	require.NotNil(t, gotParams.Temperature)
	assert.Equal(t, float32(0), *gotParams.Temperature)
}

// =============================================================================
// Unavailable and Fallback
// =============================================================================

func TestUnavailableCorrector(t *testing.T) {
	c := &UnavailableCorrector{Backend: "anthropic", Reason: llm.ErrMissingAPIKey}
	_, err := c.Correct(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.Equal(t, "anthropic", c.Name())
}

func TestFallbackCorrector_UsesPrimaryWhenHealthy(t *testing.T) {
	primary := NewLLMCorrector(replyWith("Primary."), "openai", fastOptions(0))
	f := NewFallbackCorrector(primary, NewMockCorrector(), nil)

	out, source, err := f.CorrectWithSource(context.Background(), "teh text")
	require.NoError(t, err)
	assert.Equal(t, "Primary.", out)
	assert.Equal(t, "openai", source)
}

func TestFallbackCorrector_FallsBackOnFailure(t *testing.T) {
	var hookProvider string
	var hookErr error
	f := NewFallbackCorrector(&UnavailableCorrector{Backend: "openai"}, NewMockCorrector(),
		func(primary string, err error) { hookProvider, hookErr = primary, err })

	out, source, err := CorrectWithSource(context.Background(), f, "teh text")
	require.NoError(t, err)
	assert.Equal(t, "The text", out)
	assert.Equal(t, MockName, source)
	assert.Equal(t, "openai", hookProvider)
	assert.True(t, IsUnavailable(hookErr))
	assert.Equal(t, "openai", f.Name())
}

func TestFallbackCorrector_DoesNotMaskCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &fakeClient{respond: func(int, []llm.Message, llm.GenerationParams) (string, error) {
		cancel()
		return "", context.Canceled
	}}
	f := NewFallbackCorrector(NewLLMCorrector(client, "openai", fastOptions(0)), NewMockCorrector(), nil)

	_, err := f.Correct(ctx, "text")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCorrectWithSource_PlainCorrector(t *testing.T) {
	out, source, err := CorrectWithSource(context.Background(), NewMockCorrector(), "i am")
	require.NoError(t, err)
	assert.Equal(t, "I am", out)
	assert.Equal(t, MockName, source)
}

// =============================================================================
// Factory
// =============================================================================

func TestNew_Mock(t *testing.T) {
	c, err := New(config.ProviderConfig{Backend: config.BackendMock})
	require.NoError(t, err)
	assert.IsType(t, &MockCorrector{}, c)
}

func TestNew_InjectedClient(t *testing.T) {
	c, err := New(config.ProviderConfig{Backend: config.BackendOpenAI}, WithLLMClient(replyWith("Hi.")))
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Name())

	out, err := c.Correct(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hi.", out)
}

func TestNew_PassesConfiguredTemperature(t *testing.T) {
	var gotParams llm.GenerationParams
	client := &fakeClient{respond: func(_ int, _ []llm.Message, p llm.GenerationParams) (string, error) {
		gotParams = p
		return "Hi.", nil
	}}
	c, err := New(config.ProviderConfig{Backend: config.BackendOpenAI, Temperature: 0}, WithLLMClient(client))
	require.NoError(t, err)

	_, err = c.Correct(context.Background(), "hi")
	require.NoError(t, err)
	require.NotNil(t, gotParams.Temperature)
	assert.Equal(t, float32(0), *gotParams.Temperature)
}

func TestNew_MissingKeyIsUnavailable(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	// A key mounted under /run/secrets on the test host would defeat this test.
	c, err := New(config.ProviderConfig{Backend: config.BackendAnthropic, Timeout: time.Second})
	require.NoError(t, err)
	if _, ok := c.(*UnavailableCorrector); !ok {
		t.Skip("anthropic key available on this host")
	}
	_, err = c.Correct(context.Background(), "text")
	assert.True(t, IsUnavailable(err))
}

func TestNew_FallbackWrapsPrimary(t *testing.T) {
	var fallbacks atomic.Int32
	c, err := New(
		config.ProviderConfig{Backend: config.BackendOpenAI, FallbackToMock: true},
		WithLLMClient(failWith(errors.New("boom"))),
		WithFallbackHook(func(string, error) { fallbacks.Add(1) }),
	)
	require.NoError(t, err)
	require.IsType(t, &FallbackCorrector{}, c)

	out, source, err := CorrectWithSource(context.Background(), c, "dont")
	require.NoError(t, err)
	assert.Equal(t, "Don't", out)
	assert.Equal(t, MockName, source)
	assert.Equal(t, int32(1), fallbacks.Load())
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(config.ProviderConfig{Backend: "bard"})
	assert.Error(t, err)
}
