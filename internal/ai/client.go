// Package ai wraps the chat-completion capability used for content
// interpretation, notification gating and report generation. The remote
// endpoint is any OpenAI-compatible API (OpenRouter by default).
package ai

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog"

	"github.com/aleister1102/webpursuer/internal/common"
)

const (
	interpretSystemPrompt = "You are a helpful assistant that extracts and summarizes web content. " +
		"You will be given an instruction and the text content of a webpage fragment. " +
		"Apply the instruction to the content and reply with the result only."

	conditionSystemPrompt = "You are a helpful assistant that analyzes web content. " +
		"You will be given a user prompt and the content of a webpage. " +
		"You must decide if the user's condition is met. Reply ONLY with 'YES' or 'NO'."

	reportSystemPrompt = "You are a helpful assistant that summarizes changes on monitored websites. " +
		"You will be given a list of changes including the website name, check time, and the change detected. " +
		"Create a concise summary of what happened. If multiple updates are for the same site, group them."
)

// ClientConfig holds the settings for the completion client.
type ClientConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" validate:"omitempty,url"`
	Model   string `json:"model,omitempty" yaml:"model,omitempty"`
}

// NewDefaultClientConfig creates default completion client configuration
func NewDefaultClientConfig() ClientConfig {
	return ClientConfig{
		Enabled: false,
		BaseURL: "https://openrouter.ai/api/v1",
		Model:   "openai/gpt-4o-mini",
	}
}

// Client performs chat completions against the configured endpoint.
type Client struct {
	api    *openai.Client
	model  string
	logger zerolog.Logger
}

// NewClient creates a completion client. The base URL must point at an
// OpenAI-compatible /v1 API root.
func NewClient(cfg ClientConfig, logger zerolog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, common.NewValidationError("api_key", cfg.APIKey, "api key cannot be empty")
	}
	if cfg.Model == "" {
		return nil, common.NewValidationError("model", cfg.Model, "model cannot be empty")
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		api:    openai.NewClientWithConfig(apiCfg),
		model:  cfg.Model,
		logger: logger.With().Str("component", "AIClient").Logger(),
	}, nil
}

// Complete sends a system/user prompt pair and returns the first reply.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.complete(ctx, c.model, systemPrompt, userPrompt)
}

func (c *Client) complete(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userPrompt,
	})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	})
	if err != nil {
		return "", common.NewAIError("completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", common.NewAIError("completion", common.NewError("empty choices in response"))
	}

	return resp.Choices[0].Message.Content, nil
}

// Interpret applies a monitor's interpretation instruction to extracted
// content and returns the rewritten content.
func (c *Client) Interpret(ctx context.Context, instruction, content string) (string, error) {
	userPrompt := "Instruction: " + instruction + "\n\nWeb Content:\n" + content

	reply, err := c.Complete(ctx, interpretSystemPrompt, userPrompt)
	if err != nil {
		return "", common.NewAIError("interpretation", err)
	}
	return strings.TrimSpace(reply), nil
}

// CheckCondition evaluates a yes/no gating condition against content.
// Any reply containing "YES" counts as met.
func (c *Client) CheckCondition(ctx context.Context, prompt, content string) (bool, error) {
	userPrompt := "User Condition: " + prompt + "\n\nWeb Content:\n" + content

	reply, err := c.Complete(ctx, conditionSystemPrompt, userPrompt)
	if err != nil {
		return false, common.NewAIError("condition", err)
	}

	met := ParseConditionReply(reply)
	c.logger.Debug().Bool("met", met).Str("reply", reply).Msg("Condition check evaluated")
	return met, nil
}

// searchModelSuffix routes a completion through OpenRouter's web search
// plugin (the ":online" model variant).
const searchModelSuffix = ":online"

// Search runs a standing search prompt against the web-search-augmented
// model variant and returns the reply.
func (c *Client) Search(ctx context.Context, prompt string) (string, error) {
	model := c.model
	if !strings.HasSuffix(model, searchModelSuffix) {
		model += searchModelSuffix
	}

	reply, err := c.complete(ctx, model, "", prompt)
	if err != nil {
		return "", common.NewAIError("search", err)
	}
	return strings.TrimSpace(reply), nil
}

// GenerateReport summarizes a prepared change digest.
func (c *Client) GenerateReport(ctx context.Context, prompt string) (string, error) {
	reply, err := c.Complete(ctx, reportSystemPrompt, prompt)
	if err != nil {
		return "", common.NewAIError("report", err)
	}
	return strings.TrimSpace(reply), nil
}

// ParseConditionReply interprets a condition-check reply: any reply
// containing "YES" (case-insensitive) counts as condition met.
func ParseConditionReply(reply string) bool {
	return strings.Contains(strings.ToUpper(reply), "YES")
}
