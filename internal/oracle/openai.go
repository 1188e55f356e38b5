package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIGateway serves OpenAI-compatible endpoints through the official
// chat completions tool-calling surface.
type OpenAIGateway struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAIGateway builds the OpenAI-backed gateway. An empty apiKey is
// allowed; Decide then fails with ErrUnavailable.
func NewOpenAIGateway(apiKey, model, baseURL string, logger *slog.Logger) *OpenAIGateway {
	var client *openai.Client
	if apiKey != "" {
		cfg := openai.DefaultConfig(apiKey)
		if baseURL != "" {
			cfg.BaseURL = baseURL
		}
		client = openai.NewClientWithConfig(cfg)
	}
	return &OpenAIGateway{client: client, model: model, logger: logger}
}

func (g *OpenAIGateway) Decide(ctx context.Context, req Request) (*Decision, error) {
	if g.client == nil {
		return nil, ErrUnavailable
	}

	tools := make([]openai.Tool, 0, 4)
	for _, schema := range toolSchemas() {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        schema.Name,
				Description: schema.Description,
				Parameters: map[string]any{
					"type":       "object",
					"properties": schema.Properties,
					"required":   schema.Required,
				},
			},
		})
	}

	g.logger.Debug("consulting oracle", "backend", "openai", "model", g.model, "findings", len(req.Findings))

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(req)},
		},
		Tools: tools,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%v: %w", apiErr.Message, ErrQuotaExceeded)
		}
		return nil, fmt.Errorf("oracle request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("oracle returned no choices")
	}

	decision := &Decision{Headers: resp.Header()}
	message := resp.Choices[0].Message

	if len(message.ToolCalls) > 0 {
		call := message.ToolCalls[0]
		action, memo := decodeToolCall(call.Function.Name, []byte(call.Function.Arguments))
		decision.Action = action
		decision.Memo = memo
		g.logger.Info("oracle chose action", "action", action.Type.String(), "tool", call.Function.Name)
		return decision, nil
	}

	if message.Content != "" {
		decision.Action = Action{Type: ActionCommentary, Commentary: message.Content}
		g.logger.Info("oracle returned commentary", "length", len(message.Content))
		return decision, nil
	}

	return nil, fmt.Errorf("oracle returned no usable content")
}
