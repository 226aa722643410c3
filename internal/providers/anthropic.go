package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/caretforge/caretforge/internal/agent"
	"github.com/caretforge/caretforge/pkg/models"
)

const anthropicDefaultMaxTokens = 4096

// AnthropicProvider serves the Anthropic Messages API.
//
// Tool results ride in user messages as tool_result content blocks, and tool
// arguments stream as input_json_delta fragments inside content blocks; both
// are normalized to the canonical model here.
type AnthropicProvider struct {
	client       anthropic.Client
	defaultModel string
	logger       *slog.Logger
}

// AnthropicConfig configures an AnthropicProvider.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// NewAnthropicProvider builds the provider, validating the API key.
func NewAnthropicProvider(cfg AnthropicConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "claude-sonnet-4-20250514"
	}

	options := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicProvider{
		client:       anthropic.NewClient(options...),
		defaultModel: cfg.DefaultModel,
		logger:       slog.Default().With("component", "provider.anthropic"),
	}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) SupportsTools() bool { return true }

func (p *AnthropicProvider) ListModels(ctx context.Context) ([]models.ModelInfo, error) {
	_ = ctx
	return []models.ModelInfo{
		{ID: "claude-opus-4-20250514", Description: "Claude Opus 4"},
		{ID: "claude-sonnet-4-20250514", Description: "Claude Sonnet 4"},
		{ID: "claude-3-5-haiku-20241022", Description: "Claude 3.5 Haiku"},
	}, nil
}

func (p *AnthropicProvider) CreateChatCompletion(ctx context.Context, messages []models.Message, opts agent.ChatOptions) (*agent.ChatResponse, error) {
	params, model, err := p.buildParams(messages, opts)
	if err != nil {
		return nil, err
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, p.wrapError(err, model)
	}

	out := models.Message{Role: models.RoleAssistant}
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			out.Content += block.Text
		case "tool_use":
			out.ToolCalls = append(out.ToolCalls, models.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: string(block.Input),
			})
		}
	}

	return &agent.ChatResponse{
		Message:      out,
		FinishReason: mapAnthropicStopReason(string(msg.StopReason)),
		Usage: &models.Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}, nil
}

func (p *AnthropicProvider) CreateStreamingChatCompletion(ctx context.Context, messages []models.Message, opts agent.ChatOptions) (<-chan *models.StreamChunk, error) {
	params, model, err := p.buildParams(messages, opts)
	if err != nil {
		return nil, err
	}

	stream := p.client.Messages.NewStreaming(ctx, params)

	chunks := make(chan *models.StreamChunk)
	go p.processStream(stream, chunks, model)
	return chunks, nil
}

// processStream converts Anthropic stream events into canonical chunks.
//
// Tool calls arrive as a content_block_start carrying the id and name,
// followed by input_json_delta fragments. Each tool_use block gets the next
// sequential index so downstream reassembly is keyed identically to the
// chat-completions protocol.
func (p *AnthropicProvider) processStream(stream *ssestream.Stream[anthropic.MessageStreamEventUnion], chunks chan<- *models.StreamChunk, model string) {
	defer close(chunks)

	var (
		inputTokens  int
		outputTokens int
		finishReason string
		toolIndex    = -1
		inToolBlock  bool
	)

	for stream.Next() {
		event := stream.Current()

		switch event.Type {
		case "message_start":
			messageStart := event.AsMessageStart()
			if messageStart.Message.Usage.InputTokens > 0 {
				inputTokens = int(messageStart.Message.Usage.InputTokens)
			}

		case "content_block_start":
			contentBlock := event.AsContentBlockStart().ContentBlock
			if contentBlock.Type == "tool_use" {
				toolUse := contentBlock.AsToolUse()
				toolIndex++
				inToolBlock = true
				chunks <- &models.StreamChunk{Delta: models.StreamDelta{
					ToolCalls: []models.ToolCallDelta{{
						Index: toolIndex,
						ID:    toolUse.ID,
						Name:  toolUse.Name,
					}},
				}}
			}

		case "content_block_delta":
			delta := event.AsContentBlockDelta().Delta
			switch delta.Type {
			case "text_delta":
				if delta.Text != "" {
					chunks <- &models.StreamChunk{Delta: models.StreamDelta{Content: delta.Text}}
				}
			case "input_json_delta":
				if inToolBlock && delta.PartialJSON != "" {
					chunks <- &models.StreamChunk{Delta: models.StreamDelta{
						ToolCalls: []models.ToolCallDelta{{
							Index:     toolIndex,
							Arguments: delta.PartialJSON,
						}},
					}}
				}
			}

		case "content_block_stop":
			inToolBlock = false

		case "message_delta":
			messageDelta := event.AsMessageDelta()
			if messageDelta.Usage.OutputTokens > 0 {
				outputTokens = int(messageDelta.Usage.OutputTokens)
			}
			if messageDelta.Delta.StopReason != "" {
				finishReason = mapAnthropicStopReason(string(messageDelta.Delta.StopReason))
			}

		case "message_stop":
			chunks <- &models.StreamChunk{
				FinishReason: finishReason,
				Usage: &models.Usage{
					PromptTokens:     inputTokens,
					CompletionTokens: outputTokens,
					TotalTokens:      inputTokens + outputTokens,
				},
			}
			return

		case "error":
			chunks <- &models.StreamChunk{Err: p.wrapError(errors.New("stream error event"), model)}
			return
		}
	}

	if err := stream.Err(); err != nil {
		chunks <- &models.StreamChunk{Err: p.wrapError(err, model)}
	}
}

func (p *AnthropicProvider) buildParams(messages []models.Message, opts agent.ChatOptions) (anthropic.MessageNewParams, string, error) {
	model := opts.Model
	if model == "" {
		model = p.defaultModel
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	converted, system, err := convertToAnthropicMessages(messages)
	if err != nil {
		return anthropic.MessageNewParams{}, model, NewProviderError(p.Name(), model, err)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  converted,
		MaxTokens: int64(maxTokens),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: system}}
	}
	if len(opts.Tools) > 0 {
		tools, err := convertToAnthropicTools(opts.Tools)
		if err != nil {
			return anthropic.MessageNewParams{}, model, NewProviderError(p.Name(), model, err)
		}
		params.Tools = tools
	}
	return params, model, nil
}

// convertToAnthropicMessages maps canonical messages to the Messages API
// shape. System messages are pulled out into the dedicated system field; a
// run of consecutive tool messages becomes one user message carrying their
// tool_result blocks.
func convertToAnthropicMessages(messages []models.Message) ([]anthropic.MessageParam, string, error) {
	var result []anthropic.MessageParam
	var system string

	for i := 0; i < len(messages); i++ {
		msg := messages[i]
		if msg.Role == models.RoleSystem {
			system = msg.Content
			continue
		}

		var content []anthropic.ContentBlockParamUnion

		if msg.Role == models.RoleTool {
			for ; i < len(messages) && messages[i].Role == models.RoleTool; i++ {
				content = append(content, anthropic.NewToolResultBlock(messages[i].ToolCallID, messages[i].Content, false))
			}
			i--
			result = append(result, anthropic.NewUserMessage(content...))
			continue
		}

		if msg.Content != "" {
			content = append(content, anthropic.NewTextBlock(msg.Content))
		}
		for _, tc := range msg.ToolCalls {
			var input map[string]any
			if err := json.Unmarshal([]byte(tc.Arguments), &input); err != nil {
				return nil, "", fmt.Errorf("invalid tool call input for %s: %w", tc.Name, err)
			}
			content = append(content, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
		}
		if len(content) == 0 {
			continue
		}

		if msg.Role == models.RoleAssistant {
			result = append(result, anthropic.NewAssistantMessage(content...))
		} else {
			result = append(result, anthropic.NewUserMessage(content...))
		}
	}
	return result, system, nil
}

func convertToAnthropicTools(defs []models.ToolDefinition) ([]anthropic.ToolUnionParam, error) {
	var result []anthropic.ToolUnionParam
	for _, def := range defs {
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(def.Schema, &schema); err != nil {
			return nil, fmt.Errorf("invalid tool schema for %s: %w", def.Name, err)
		}
		toolParam := anthropic.ToolUnionParamOfTool(schema, def.Name)
		if toolParam.OfTool == nil {
			return nil, fmt.Errorf("invalid tool schema for %s: missing tool definition", def.Name)
		}
		toolParam.OfTool.Description = anthropic.String(def.Description)
		result = append(result, toolParam)
	}
	return result, nil
}

// mapAnthropicStopReason normalizes Anthropic stop reasons to the
// chat-completions vocabulary the loop expects.
func mapAnthropicStopReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return "stop"
	case "tool_use":
		return "tool_calls"
	case "max_tokens":
		return "length"
	default:
		return reason
	}
}

func (p *AnthropicProvider) wrapError(err error, model string) error {
	if err == nil {
		return nil
	}
	if IsProviderError(err) {
		return err
	}
	return NewProviderError(p.Name(), model, err)
}
