// Package aigen asks a chat model for a new component type, validates the
// answer as a layout, and registers it as a custom component.
package aigen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/matthewbaird/uibuilder/internal/codegen"
	"github.com/matthewbaird/uibuilder/internal/layout"
	"github.com/matthewbaird/uibuilder/internal/registry"
)

var (
	ErrEmptyPrompt = errors.New("aigen: prompt is required")
	ErrInvalidSpec = errors.New("aigen: model returned an invalid component spec")
)

// ChatClient is the part of the OpenAI client the generator uses.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Request describes the component to generate. ImageURL, when set, is sent
// alongside the prompt as a vision input (http(s) or data: URL).
type Request struct {
	Prompt   string `json:"prompt"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// ComponentSpec is a generated component: its registry identity, the layout
// it is composed of, and the module generated from that layout.
type ComponentSpec struct {
	TypeKey     string        `json:"typeKey"`
	DisplayName string        `json:"displayName"`
	Description string        `json:"description,omitempty"`
	SourcePath  string        `json:"sourcePath"`
	Layout      []layout.Node `json:"layout"`
	Code        string        `json:"code"`
}

// Generator produces component specs. Safe for concurrent use.
type Generator struct {
	client   ChatClient
	model    string
	registry *registry.Registry

	attempts int
	backoff  time.Duration
}

// NewGenerator creates a generator that registers results into reg.
func NewGenerator(client ChatClient, model string, reg *registry.Registry) *Generator {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Generator{client: client, model: model, registry: reg, attempts: 3, backoff: time.Second}
}

// NewOpenAIGenerator creates a generator backed by the OpenAI API.
func NewOpenAIGenerator(apiKey, model string, reg *registry.Registry) *Generator {
	return NewGenerator(openai.NewClient(apiKey), model, reg)
}

const systemPrompt = `You design reusable UI components for a drag-and-drop page builder.
Answer with one JSON object and nothing else:
{
  "typeKey": "kebab-case identifier",
  "displayName": "PascalCaseName",
  "description": "one sentence",
  "layout": [ layout nodes ]
}
A layout node is {"id": string, "type": string, "props": object, "children": [nodes]}.
"children" is optional and only for containers. Literal text goes in props.children.
Use only these node types: %s.`

// Generate asks the model for a component, validates and registers it.
func (g *Generator) Generate(ctx context.Context, req Request) (ComponentSpec, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" && req.ImageURL == "" {
		return ComponentSpec{}, ErrEmptyPrompt
	}

	content, err := g.complete(ctx, g.chatRequest(prompt, req.ImageURL))
	if err != nil {
		return ComponentSpec{}, err
	}
	spec, err := parseSpec(content)
	if err != nil {
		return ComponentSpec{}, err
	}

	spec.TypeKey = g.uniqueKey(spec.TypeKey)
	spec.SourcePath = "custom/" + spec.DisplayName + "/" + spec.DisplayName
	if err := g.registry.Register(spec.TypeKey, registry.Handle("ai:"+spec.TypeKey), registry.Entry{
		DisplayName: spec.DisplayName,
		SourcePath:  spec.SourcePath,
		IsCustom:    true,
		Category:    "custom",
	}); err != nil {
		return ComponentSpec{}, err
	}

	res := codegen.Generate(spec.Layout, codegen.RegistryResolver(g.registry), codegen.Options{
		ComponentName:  spec.DisplayName,
		ImportBase:     "../../",
		StylesheetPath: "./" + spec.DisplayName + ".css",
	})
	spec.Code = res.Code
	log.Printf("aigen: registered %q as %s", spec.TypeKey, spec.SourcePath)
	return spec, nil
}

func (g *Generator) chatRequest(prompt, imageURL string) openai.ChatCompletionRequest {
	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt}
	if imageURL != "" {
		if prompt == "" {
			prompt = "Build a component that reproduces this design."
		}
		user = openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL:    imageURL,
					Detail: openai.ImageURLDetailAuto,
				}},
			},
		}
	}
	return openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(systemPrompt, strings.Join(g.registry.Keys(), ", "))},
			user,
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	}
}

func (g *Generator) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	var (
		resp openai.ChatCompletionResponse
		err  error
	)
	for attempt := 1; attempt <= g.attempts; attempt++ {
		resp, err = g.client.CreateChatCompletion(ctx, req)
		if err == nil || !shouldRetry(err) || attempt == g.attempts {
			break
		}
		log.Printf("aigen: chat completion failed (attempt %d/%d), retrying: %v", attempt, g.attempts, err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(g.backoff * time.Duration(attempt)):
		}
	}
	if err != nil {
		return "", fmt.Errorf("aigen: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: empty response", ErrInvalidSpec)
	}
	return resp.Choices[0].Message.Content, nil
}

// shouldRetry reports transient failures: rate limits, server errors and
// dropped connections.
func shouldRetry(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "connection reset by peer") ||
		strings.Contains(msg, "timeout")
}

var typeKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

func parseSpec(content string) (ComponentSpec, error) {
	cleaned := strings.TrimSpace(content)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var raw struct {
		TypeKey     string          `json:"typeKey"`
		DisplayName string          `json:"displayName"`
		Description string          `json:"description"`
		Layout      json.RawMessage `json:"layout"`
	}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return ComponentSpec{}, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if len(raw.Layout) == 0 {
		return ComponentSpec{}, fmt.Errorf("%w: layout is missing", ErrInvalidSpec)
	}
	nodes, err := layout.ValidateJSON(raw.Layout)
	if err != nil {
		return ComponentSpec{}, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}

	name := strings.TrimSpace(raw.DisplayName)
	if name == "" {
		name = raw.TypeKey
	}
	if name == "" {
		return ComponentSpec{}, fmt.Errorf("%w: typeKey and displayName are both empty", ErrInvalidSpec)
	}
	name = registry.DisplayName(name)

	key := strings.ToLower(strings.TrimSpace(raw.TypeKey))
	if !typeKeyPattern.MatchString(key) {
		key = codegen.WrapperClass(name)
	}
	return ComponentSpec{
		TypeKey:     key,
		DisplayName: name,
		Description: strings.TrimSpace(raw.Description),
		Layout:      nodes,
	}, nil
}

// uniqueKey keeps generated types from shadowing built-in ones.
func (g *Generator) uniqueKey(key string) string {
	if e, ok := g.registry.Lookup(key); ok && !e.IsCustom {
		return "custom-" + key
	}
	return key
}
