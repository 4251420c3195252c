// Package openai implements the completion boundary on top of an
// OpenAI-compatible chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"os"

	goopenai "github.com/sashabaranov/go-openai"

	"helperbot/internal/domain"
)

// Config configures the chat client.
type Config struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Temperature float32
	MaxTokens   int
}

// Client sends role-tagged turns to a chat completions endpoint.
type Client struct {
	client      *goopenai.Client
	model       string
	temperature float32
	maxTokens   int
}

var _ domain.FunctionCompleter = (*Client)(nil)

// NewClient creates a chat client using the key found in cfg.APIKeyEnv.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = goopenai.GPT3Dot5Turbo
	}
	oc := goopenai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &Client{
		client:      goopenai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Complete returns the assistant message for turns.
func (c *Client) Complete(ctx context.Context, turns []domain.Turn) (string, error) {
	msg, err := c.create(ctx, turns, nil)
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

// CompleteWithFunctions offers functions as tools and reports either the
// plain answer or the function the model asked to call.
func (c *Client) CompleteWithFunctions(ctx context.Context, turns []domain.Turn, functions []domain.FunctionDescriptor) (domain.Completion, error) {
	msg, err := c.create(ctx, turns, functions)
	if err != nil {
		return nil, err
	}

	var call *goopenai.FunctionCall
	id := ""
	switch {
	case len(msg.ToolCalls) > 0:
		call = &msg.ToolCalls[0].Function
		id = msg.ToolCalls[0].ID
	case msg.FunctionCall != nil:
		call = msg.FunctionCall
	}
	if call == nil {
		return domain.PlainAnswer{Content: msg.Content}, nil
	}

	args, err := domain.DecodeArguments(call.Arguments)
	if err != nil {
		return nil, err
	}
	return domain.FunctionCallRequest{
		ID:           id,
		Name:         call.Name,
		Arguments:    args,
		RawArguments: call.Arguments,
	}, nil
}

func (c *Client) create(ctx context.Context, turns []domain.Turn, functions []domain.FunctionDescriptor) (goopenai.ChatCompletionMessage, error) {
	req := goopenai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toMessages(turns),
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Tools:       toTools(functions),
	}
	if len(req.Tools) > 0 {
		req.ToolChoice = "auto"
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return goopenai.ChatCompletionMessage{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return goopenai.ChatCompletionMessage{}, errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message, nil
}

func toMessages(turns []domain.Turn) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		switch {
		case t.Role == domain.RoleFunction:
			m := goopenai.ChatCompletionMessage{Content: t.Content}
			if t.FunctionCall != nil && t.FunctionCall.ID != "" {
				m.Role = goopenai.ChatMessageRoleTool
				m.ToolCallID = t.FunctionCall.ID
			} else {
				m.Role = goopenai.ChatMessageRoleFunction
				m.Name = t.FunctionName
			}
			out = append(out, m)

		case t.Role == domain.RoleAssistant && t.FunctionCall != nil:
			m := goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleAssistant, Content: t.Content}
			fc := goopenai.FunctionCall{Name: t.FunctionCall.Name, Arguments: t.FunctionCall.RawArguments}
			if t.FunctionCall.ID != "" {
				m.ToolCalls = []goopenai.ToolCall{{ID: t.FunctionCall.ID, Type: goopenai.ToolTypeFunction, Function: fc}}
			} else {
				m.FunctionCall = &fc
			}
			out = append(out, m)

		default:
			out = append(out, goopenai.ChatCompletionMessage{Role: string(t.Role), Content: t.Content})
		}
	}
	return out
}

func toTools(functions []domain.FunctionDescriptor) []goopenai.Tool {
	if len(functions) == 0 {
		return nil
	}
	tools := make([]goopenai.Tool, len(functions))
	for i, f := range functions {
		tools[i] = goopenai.Tool{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        f.Name,
				Description: f.Description,
				Parameters:  f.Parameters,
			},
		}
	}
	return tools
}
