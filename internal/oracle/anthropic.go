package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	anthropicAPIVersion = "2023-06-01"
	anthropicBaseURL    = "https://api.anthropic.com/v1/messages"
	anthropicMaxTokens  = 4096
)

type anthropicRequest struct {
	Model      string             `json:"model"`
	Messages   []anthropicMessage `json:"messages"`
	System     string             `json:"system,omitempty"`
	MaxTokens  int                `json:"max_tokens"`
	Tools      []anthropicTool    `json:"tools,omitempty"`
	ToolChoice *anthropicChoice   `json:"tool_choice,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicTool struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	InputSchema anthropicToolSchema `json:"input_schema"`
}

type anthropicToolSchema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Required   []string       `json:"required,omitempty"`
}

type anthropicChoice struct {
	Type string `json:"type"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Error   *anthropicError    `json:"error,omitempty"`
}

type anthropicContent struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// AnthropicGateway speaks the Anthropic messages API over plain HTTP.
type AnthropicGateway struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
	logger     *slog.Logger
}

// NewAnthropicGateway builds the default gateway. An empty apiKey is
// allowed; Decide then fails with ErrUnavailable.
func NewAnthropicGateway(apiKey, model, baseURL string, logger *slog.Logger) *AnthropicGateway {
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	return &AnthropicGateway{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		logger:     logger,
	}
}

func (g *AnthropicGateway) Decide(ctx context.Context, req Request) (*Decision, error) {
	if g.apiKey == "" {
		return nil, ErrUnavailable
	}

	tools := make([]anthropicTool, 0, 4)
	for _, schema := range toolSchemas() {
		tools = append(tools, anthropicTool{
			Name:        schema.Name,
			Description: schema.Description,
			InputSchema: anthropicToolSchema{
				Type:       "object",
				Properties: schema.Properties,
				Required:   schema.Required,
			},
		})
	}

	payload := anthropicRequest{
		Model:     g.model,
		Messages:  []anthropicMessage{{Role: "user", Content: buildUserPrompt(req)}},
		System:    systemPrompt,
		MaxTokens: anthropicMaxTokens,
		Tools:     tools,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("x-api-key", g.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)
	httpReq.Header.Set("content-type", "application/json")

	g.logger.Debug("consulting oracle", "backend", "anthropic", "model", g.model, "findings", len(req.Findings))

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("oracle request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, ErrQuotaExceeded)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oracle returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse oracle response: %w", err)
	}
	if apiResp.Error != nil {
		if apiResp.Error.Type == "rate_limit_error" {
			return nil, fmt.Errorf("%s: %w", apiResp.Error.Message, ErrQuotaExceeded)
		}
		return nil, fmt.Errorf("oracle error: %s - %s", apiResp.Error.Type, apiResp.Error.Message)
	}

	decision := &Decision{Headers: resp.Header}
	for _, block := range apiResp.Content {
		switch block.Type {
		case "tool_use":
			action, memo := decodeToolCall(block.Name, block.Input)
			decision.Action = action
			decision.Memo = memo
			g.logger.Info("oracle chose action", "action", action.Type.String(), "tool", block.Name)
			return decision, nil
		case "text":
			if block.Text != "" {
				decision.Action = Action{Type: ActionCommentary, Commentary: block.Text}
			}
		}
	}

	if decision.Action.Type == ActionCommentary {
		g.logger.Info("oracle returned commentary", "length", len(decision.Action.Commentary))
		return decision, nil
	}
	return nil, fmt.Errorf("oracle returned no usable content")
}
