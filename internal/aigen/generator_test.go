package aigen

import (
	"context"
	"errors"
	"sync"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/uibuilder/internal/registry"
)

type fakeClient struct {
	mu       sync.Mutex
	replies  []string
	errs     []error
	requests []openai.ChatCompletionRequest
}

func (f *fakeClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.requests)
	f.requests = append(f.requests, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return openai.ChatCompletionResponse{}, f.errs[i]
	}
	content := ""
	if i < len(f.replies) {
		content = f.replies[i]
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: content}}},
	}, nil
}

const pricingReply = `{
	"typeKey": "pricing-card",
	"displayName": "PricingCard",
	"description": "A plan with a price and a call to action.",
	"layout": [
		{"id":"c","type":"card","props":{"title":"Pro"},"children":[
			{"id":"p","type":"heading","props":{"children":"$19/mo"}},
			{"id":"b","type":"button","props":{"children":"Choose"}}
		]}
	]
}`

func newTestGenerator(t *testing.T, client ChatClient) (*Generator, *registry.Registry) {
	t.Helper()
	reg, err := registry.NewDefault(registry.WithWarnFunc(func(string, ...any) {}))
	require.NoError(t, err)
	g := NewGenerator(client, "", reg)
	g.backoff = 0
	return g, reg
}

func TestGenerate_RegistersCustomComponent(t *testing.T) {
	client := &fakeClient{replies: []string{pricingReply}}
	g, reg := newTestGenerator(t, client)

	spec, err := g.Generate(context.Background(), Request{Prompt: "a pricing card"})
	require.NoError(t, err)

	assert.Equal(t, "pricing-card", spec.TypeKey)
	assert.Equal(t, "PricingCard", spec.DisplayName)
	assert.Equal(t, "custom/PricingCard/PricingCard", spec.SourcePath)
	require.Len(t, spec.Layout, 1)
	assert.Equal(t, "card", spec.Layout[0].Type)
	assert.Contains(t, spec.Code, "import Card from '../../Card/Card';")
	assert.Contains(t, spec.Code, "const PricingCard = () => {")

	entry, ok := reg.Lookup("pricing-card")
	require.True(t, ok)
	assert.True(t, entry.IsCustom)
	assert.Equal(t, registry.Handle("ai:pricing-card"), entry.Handle)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, openai.GPT4oMini, req.Model)
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, req.ResponseFormat.Type)
	assert.Contains(t, req.Messages[0].Content, "button")
}

func TestGenerate_ImagePrompt(t *testing.T) {
	client := &fakeClient{replies: []string{pricingReply}}
	g, _ := newTestGenerator(t, client)

	_, err := g.Generate(context.Background(), Request{ImageURL: "https://example.com/mock.png"})
	require.NoError(t, err)

	parts := client.requests[0].Messages[1].MultiContent
	require.Len(t, parts, 2)
	assert.Equal(t, openai.ChatMessagePartTypeImageURL, parts[1].Type)
	assert.Equal(t, "https://example.com/mock.png", parts[1].ImageURL.URL)
}

func TestGenerate_RetriesTransientErrors(t *testing.T) {
	client := &fakeClient{
		errs:    []error{&openai.APIError{HTTPStatusCode: 429, Message: "rate limited"}, &openai.APIError{HTTPStatusCode: 503}},
		replies: []string{"", "", pricingReply},
	}
	g, _ := newTestGenerator(t, client)

	_, err := g.Generate(context.Background(), Request{Prompt: "pricing"})
	require.NoError(t, err)
	assert.Len(t, client.requests, 3)
}

func TestGenerate_GivesUpAfterThreeAttempts(t *testing.T) {
	transient := &openai.APIError{HTTPStatusCode: 500}
	client := &fakeClient{errs: []error{transient, transient, transient, transient}}
	g, _ := newTestGenerator(t, client)

	_, err := g.Generate(context.Background(), Request{Prompt: "pricing"})
	assert.Error(t, err)
	assert.Len(t, client.requests, 3)
}

func TestGenerate_DoesNotRetryClientErrors(t *testing.T) {
	client := &fakeClient{errs: []error{&openai.APIError{HTTPStatusCode: 401}}}
	g, _ := newTestGenerator(t, client)

	_, err := g.Generate(context.Background(), Request{Prompt: "pricing"})
	assert.Error(t, err)
	assert.Len(t, client.requests, 1)
}

func TestGenerate_RejectsInvalidSpecs(t *testing.T) {
	tests := map[string]string{
		"not json":        "sure! here is your component",
		"no layout":       `{"typeKey":"x","displayName":"X"}`,
		"bad layout":      `{"typeKey":"x","displayName":"X","layout":[{"type":"button"}]}`,
		"no name or type": `{"layout":[]}`,
		"empty":           "",
	}
	for name, reply := range tests {
		t.Run(name, func(t *testing.T) {
			g, reg := newTestGenerator(t, &fakeClient{replies: []string{reply}})
			before := len(reg.Keys())

			_, err := g.Generate(context.Background(), Request{Prompt: "x"})
			assert.True(t, errors.Is(err, ErrInvalidSpec), "got %v", err)
			assert.Len(t, reg.Keys(), before)
		})
	}
}

func TestGenerate_DoesNotShadowBuiltins(t *testing.T) {
	reply := "```json\n" + `{"typeKey":"button","displayName":"Fancy Button","layout":[{"id":"b","type":"button"}]}` + "\n```"
	g, reg := newTestGenerator(t, &fakeClient{replies: []string{reply}})

	spec, err := g.Generate(context.Background(), Request{Prompt: "fancy button"})
	require.NoError(t, err)
	assert.Equal(t, "custom-button", spec.TypeKey)
	assert.Equal(t, "FancyButton", spec.DisplayName)

	builtin, _ := reg.Lookup("button")
	assert.False(t, builtin.IsCustom)
	assert.Equal(t, "Button", builtin.DisplayName)
}

func TestGenerate_EmptyPrompt(t *testing.T) {
	g, _ := newTestGenerator(t, &fakeClient{})
	_, err := g.Generate(context.Background(), Request{Prompt: "  "})
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}
