package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/caretforge/caretforge/internal/agent"
	"github.com/caretforge/caretforge/pkg/models"
)

// ResponsesProvider serves the OpenAI Responses API at
// {endpoint}/openai/v1/responses.
//
// The wire shape differs from chat completions in three ways this adapter
// normalizes: the system prompt is the top-level instructions field, tool
// results are function_call_output input items keyed by call_id, and tool
// definitions are flattened without a function wrapper. During streaming,
// argument fragments are keyed by item_id while the outward-facing tool call
// id is the separate call_id.
type ResponsesProvider struct {
	client       *http.Client
	endpoint     string
	apiKey       string
	defaultModel string
	logger       *slog.Logger
}

// ResponsesConfig configures a ResponsesProvider.
type ResponsesConfig struct {
	Endpoint     string
	APIKey       string
	DefaultModel string
	Timeout      time.Duration
}

// NewResponsesProvider builds the provider, validating required fields.
func NewResponsesProvider(cfg ResponsesConfig) (*ResponsesProvider, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("responses: endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("responses: API key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &ResponsesProvider{
		client:       &http.Client{Timeout: timeout},
		endpoint:     strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:       cfg.APIKey,
		defaultModel: cfg.DefaultModel,
		logger:       slog.Default().With("component", "provider.responses"),
	}, nil
}

func (p *ResponsesProvider) Name() string { return "responses" }

func (p *ResponsesProvider) SupportsTools() bool { return true }

func (p *ResponsesProvider) ListModels(ctx context.Context) ([]models.ModelInfo, error) {
	_ = ctx
	infos := []models.ModelInfo{
		{ID: "gpt-4o", Description: "GPT-4o"},
		{ID: "gpt-4o-mini", Description: "GPT-4o mini"},
	}
	if p.defaultModel != "" {
		infos = append([]models.ModelInfo{{ID: p.defaultModel, Description: "configured deployment"}}, infos...)
	}
	return infos, nil
}

// responsesRequest is the request body for /openai/v1/responses.
type responsesRequest struct {
	Model           string          `json:"model"`
	Instructions    string          `json:"instructions,omitempty"`
	Input           []responsesItem `json:"input"`
	Tools           []responsesTool `json:"tools,omitempty"`
	Stream          bool            `json:"stream,omitempty"`
	MaxOutputTokens int             `json:"max_output_tokens,omitempty"`
	Temperature     float32         `json:"temperature,omitempty"`
}

// responsesItem is one heterogeneous input or output item.
type responsesItem struct {
	Type      string             `json:"type,omitempty"`
	ID        string             `json:"id,omitempty"`
	Role      string             `json:"role,omitempty"`
	Content   []responsesContent `json:"content,omitempty"`
	CallID    string             `json:"call_id,omitempty"`
	Name      string             `json:"name,omitempty"`
	Arguments string             `json:"arguments,omitempty"`
	Output    string             `json:"output,omitempty"`
}

type responsesContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// responsesTool is the flattened tool definition shape.
type responsesTool struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

type responsesUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

type responsesResponse struct {
	Output []responsesItem `json:"output"`
	Usage  *responsesUsage `json:"usage"`
	Status string          `json:"status"`
}

func (p *ResponsesProvider) CreateChatCompletion(ctx context.Context, messages []models.Message, opts agent.ChatOptions) (*agent.ChatResponse, error) {
	body, model, err := p.buildRequest(messages, opts, false)
	if err != nil {
		return nil, err
	}

	resp, err := p.post(ctx, body, model)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed responsesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, NewProviderError(p.Name(), model, fmt.Errorf("decode response: %w", err))
	}

	out := models.Message{Role: models.RoleAssistant}
	for _, item := range parsed.Output {
		switch item.Type {
		case "message":
			for _, part := range item.Content {
				if part.Type == "output_text" {
					out.Content += part.Text
				}
			}
		case "function_call":
			out.ToolCalls = append(out.ToolCalls, models.ToolCall{
				ID:        item.CallID,
				Name:      item.Name,
				Arguments: item.Arguments,
			})
		case "reasoning":
			// reasoning summaries are not surfaced
		}
	}

	finish := "stop"
	if len(out.ToolCalls) > 0 {
		finish = "tool_calls"
	}
	result := &agent.ChatResponse{Message: out, FinishReason: finish}
	if parsed.Usage != nil {
		result.Usage = &models.Usage{
			PromptTokens:     parsed.Usage.InputTokens,
			CompletionTokens: parsed.Usage.OutputTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		}
	}
	return result, nil
}

func (p *ResponsesProvider) CreateStreamingChatCompletion(ctx context.Context, messages []models.Message, opts agent.ChatOptions) (<-chan *models.StreamChunk, error) {
	body, model, err := p.buildRequest(messages, opts, true)
	if err != nil {
		return nil, err
	}

	resp, err := p.post(ctx, body, model)
	if err != nil {
		return nil, err
	}

	chunks := make(chan *models.StreamChunk)
	go p.processStream(resp.Body, chunks, model)
	return chunks, nil
}

// streaming event payloads; only the fields the adapter consumes.
type responsesStreamEvent struct {
	Delta     string             `json:"delta"`
	ItemID    string             `json:"item_id"`
	Arguments string             `json:"arguments"`
	Item      *responsesItem     `json:"item"`
	Response  *responsesResponse `json:"response"`
}

func (p *ResponsesProvider) processStream(body io.ReadCloser, chunks chan<- *models.StreamChunk, model string) {
	defer close(chunks)
	defer body.Close()

	// item_id → assigned index, in order of first appearance.
	itemIndex := map[string]int{}
	// item_id → bytes of arguments already forwarded, so the terminal
	// arguments.done event only emits what delta events have not.
	argSent := map[string]int{}
	sawToolCall := false

	scanner := newSSEScanner(body)
	for {
		ev, err := scanner.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				chunks <- &models.StreamChunk{Err: NewProviderError(p.Name(), model, err)}
			}
			return
		}

		var payload responsesStreamEvent
		if ev.Data != "" {
			if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
				p.logger.Debug("skipping unparseable stream event", "event", ev.Event, "error", err)
				continue
			}
		}

		switch ev.Event {
		case "response.output_text.delta":
			if payload.Delta != "" {
				chunks <- &models.StreamChunk{Delta: models.StreamDelta{Content: payload.Delta}}
			}

		case "response.output_item.added":
			if payload.Item == nil || payload.Item.Type != "function_call" {
				continue
			}
			itemID := payload.Item.ID
			if _, seen := itemIndex[itemID]; seen {
				continue
			}
			index := len(itemIndex)
			itemIndex[itemID] = index
			sawToolCall = true
			chunks <- &models.StreamChunk{Delta: models.StreamDelta{
				ToolCalls: []models.ToolCallDelta{{
					Index: index,
					ID:    payload.Item.CallID,
					Name:  payload.Item.Name,
				}},
			}}

		case "response.function_call_arguments.delta":
			index, seen := itemIndex[payload.ItemID]
			if !seen || payload.Delta == "" {
				continue
			}
			argSent[payload.ItemID] += len(payload.Delta)
			chunks <- &models.StreamChunk{Delta: models.StreamDelta{
				ToolCalls: []models.ToolCallDelta{{
					Index:     index,
					Arguments: payload.Delta,
				}},
			}}

		case "response.function_call_arguments.done":
			index, seen := itemIndex[payload.ItemID]
			if !seen {
				continue
			}
			if rest := payload.Arguments[min(argSent[payload.ItemID], len(payload.Arguments)):]; rest != "" {
				chunks <- &models.StreamChunk{Delta: models.StreamDelta{
					ToolCalls: []models.ToolCallDelta{{
						Index:     index,
						Arguments: rest,
					}},
				}}
			}

		case "response.completed":
			finish := "stop"
			if sawToolCall {
				finish = "tool_calls"
			}
			final := &models.StreamChunk{FinishReason: finish}
			if payload.Response != nil && payload.Response.Usage != nil {
				final.Usage = &models.Usage{
					PromptTokens:     payload.Response.Usage.InputTokens,
					CompletionTokens: payload.Response.Usage.OutputTokens,
					TotalTokens:      payload.Response.Usage.TotalTokens,
				}
			}
			chunks <- final
			return

		case "response.failed", "error":
			chunks <- &models.StreamChunk{Err: NewProviderError(p.Name(), model, fmt.Errorf("stream event %s: %s", ev.Event, ev.Data))}
			return
		}
	}
}

func (p *ResponsesProvider) buildRequest(messages []models.Message, opts agent.ChatOptions, stream bool) (*responsesRequest, string, error) {
	model := opts.Model
	if model == "" {
		model = p.defaultModel
	}
	if model == "" {
		return nil, "", NewProviderError(p.Name(), "", errors.New("model is required"))
	}

	req := &responsesRequest{
		Model:           model,
		Stream:          stream,
		MaxOutputTokens: opts.MaxTokens,
		Temperature:     opts.Temperature,
	}

	for _, msg := range messages {
		switch msg.Role {
		case models.RoleSystem:
			req.Instructions = msg.Content

		case models.RoleTool:
			req.Input = append(req.Input, responsesItem{
				Type:   "function_call_output",
				CallID: msg.ToolCallID,
				Output: msg.Content,
			})

		case models.RoleAssistant:
			if msg.Content != "" {
				req.Input = append(req.Input, responsesItem{
					Type:    "message",
					Role:    "assistant",
					Content: []responsesContent{{Type: "output_text", Text: msg.Content}},
				})
			}
			for _, tc := range msg.ToolCalls {
				req.Input = append(req.Input, responsesItem{
					Type:      "function_call",
					CallID:    tc.ID,
					Name:      tc.Name,
					Arguments: tc.Arguments,
				})
			}

		default:
			req.Input = append(req.Input, responsesItem{
				Type:    "message",
				Role:    "user",
				Content: []responsesContent{{Type: "input_text", Text: msg.Content}},
			})
		}
	}

	for _, def := range opts.Tools {
		req.Tools = append(req.Tools, responsesTool{
			Type:        "function",
			Name:        def.Name,
			Description: def.Description,
			Parameters:  def.Schema,
		})
	}
	return req, model, nil
}

func (p *ResponsesProvider) post(ctx context.Context, body *responsesRequest, model string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, NewProviderError(p.Name(), model, fmt.Errorf("encode request: %w", err))
	}

	url := p.endpoint + "/openai/v1/responses"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, NewProviderError(p.Name(), model, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, NewProviderError(p.Name(), model, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, NewProviderError(p.Name(), model,
			fmt.Errorf("responses status %d: %s", resp.StatusCode, strings.TrimSpace(string(errBody)))).WithStatus(resp.StatusCode)
	}
	return resp, nil
}
