package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/caretforge/caretforge/internal/agent"
	"github.com/caretforge/caretforge/pkg/models"
)

// AzureOpenAIProvider serves Azure-hosted chat-completion deployments.
//
// Azure differs from direct OpenAI in URL shape and auth: requests go to
// {endpoint}/openai/deployments/{model}/chat/completions?api-version=... with
// an api-key header, and the model name is the deployment name. The go-openai
// Azure config handles both.
type AzureOpenAIProvider struct {
	client       *openai.Client
	endpoint     string
	apiVersion   string
	defaultModel string
	logger       *slog.Logger
}

// AzureOpenAIConfig configures an AzureOpenAIProvider.
type AzureOpenAIConfig struct {
	Endpoint     string
	APIKey       string
	APIVersion   string
	DefaultModel string
}

// NewAzureOpenAIProvider builds the provider, validating required fields.
func NewAzureOpenAIProvider(cfg AzureOpenAIConfig) (*AzureOpenAIProvider, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("openai: endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-06-01"
	}

	clientConfig := openai.DefaultAzureConfig(cfg.APIKey, cfg.Endpoint)
	clientConfig.APIVersion = cfg.APIVersion

	return &AzureOpenAIProvider{
		client:       openai.NewClientWithConfig(clientConfig),
		endpoint:     cfg.Endpoint,
		apiVersion:   cfg.APIVersion,
		defaultModel: cfg.DefaultModel,
		logger:       slog.Default().With("component", "provider.openai"),
	}, nil
}

func (p *AzureOpenAIProvider) Name() string { return "openai" }

func (p *AzureOpenAIProvider) SupportsTools() bool { return true }

// ListModels returns common deployment names. Azure deployments are
// custom-named, so this is advisory rather than authoritative.
func (p *AzureOpenAIProvider) ListModels(ctx context.Context) ([]models.ModelInfo, error) {
	_ = ctx
	infos := []models.ModelInfo{
		{ID: "gpt-4o", Description: "GPT-4o"},
		{ID: "gpt-4o-mini", Description: "GPT-4o mini"},
		{ID: "gpt-4-turbo", Description: "GPT-4 Turbo"},
		{ID: "gpt-35-turbo", Description: "GPT-3.5 Turbo"},
	}
	if p.defaultModel != "" {
		infos = append([]models.ModelInfo{{ID: p.defaultModel, Description: "configured deployment"}}, infos...)
	}
	return infos, nil
}

func (p *AzureOpenAIProvider) CreateChatCompletion(ctx context.Context, messages []models.Message, opts agent.ChatOptions) (*agent.ChatResponse, error) {
	req, model, err := p.buildRequest(messages, opts, false)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, p.wrapError(err, model)
	}
	if len(resp.Choices) == 0 {
		return nil, NewProviderError(p.Name(), model, errors.New("response contained no choices"))
	}

	choice := resp.Choices[0]
	msg := models.Message{
		Role:    models.RoleAssistant,
		Content: choice.Message.Content,
	}
	for _, tc := range choice.Message.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, models.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return &agent.ChatResponse{
		Message:      msg,
		FinishReason: string(choice.FinishReason),
		Usage: &models.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func (p *AzureOpenAIProvider) CreateStreamingChatCompletion(ctx context.Context, messages []models.Message, opts agent.ChatOptions) (<-chan *models.StreamChunk, error) {
	req, model, err := p.buildRequest(messages, opts, true)
	if err != nil {
		return nil, err
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, p.wrapError(err, model)
	}

	chunks := make(chan *models.StreamChunk)
	go p.processStream(ctx, stream, chunks, model)
	return chunks, nil
}

func (p *AzureOpenAIProvider) processStream(ctx context.Context, stream *openai.ChatCompletionStream, chunks chan<- *models.StreamChunk, model string) {
	defer close(chunks)
	defer stream.Close()

	for {
		select {
		case <-ctx.Done():
			chunks <- &models.StreamChunk{Err: ctx.Err()}
			return
		default:
		}

		response, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			chunks <- &models.StreamChunk{Err: p.wrapError(err, model)}
			return
		}
		if len(response.Choices) == 0 {
			continue
		}

		choice := response.Choices[0]
		out := &models.StreamChunk{
			Delta: models.StreamDelta{
				Role:    choice.Delta.Role,
				Content: choice.Delta.Content,
			},
			FinishReason: string(choice.FinishReason),
		}
		for _, tc := range choice.Delta.ToolCalls {
			index := 0
			if tc.Index != nil {
				index = *tc.Index
			}
			out.Delta.ToolCalls = append(out.Delta.ToolCalls, models.ToolCallDelta{
				Index:     index,
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		if response.Usage != nil {
			out.Usage = &models.Usage{
				PromptTokens:     response.Usage.PromptTokens,
				CompletionTokens: response.Usage.CompletionTokens,
				TotalTokens:      response.Usage.TotalTokens,
			}
		}
		chunks <- out
	}
}

func (p *AzureOpenAIProvider) buildRequest(messages []models.Message, opts agent.ChatOptions, stream bool) (openai.ChatCompletionRequest, string, error) {
	model := opts.Model
	if model == "" {
		model = p.defaultModel
	}
	if model == "" {
		return openai.ChatCompletionRequest{}, "", NewProviderError(p.Name(), "", errors.New("model/deployment name is required"))
	}

	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: convertToOpenAIMessages(messages),
		Stream:   stream,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		req.Temperature = opts.Temperature
	}
	if len(opts.Tools) > 0 {
		req.Tools = convertToOpenAITools(opts.Tools)
	}
	return req, model, nil
}

// convertToOpenAIMessages maps canonical messages onto the chat-completions
// wire shape. Tool results become role=tool messages keyed by tool_call_id.
func convertToOpenAIMessages(messages []models.Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		out := openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
		if msg.Role == models.RoleTool {
			out.ToolCallID = msg.ToolCallID
		}
		for _, tc := range msg.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		result = append(result, out)
	}
	return result
}

func convertToOpenAITools(defs []models.ToolDefinition) []openai.Tool {
	tools := make([]openai.Tool, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  json.RawMessage(def.Schema),
			},
		})
	}
	return tools
}

func (p *AzureOpenAIProvider) wrapError(err error, model string) error {
	if err == nil {
		return nil
	}
	if IsProviderError(err) {
		return err
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return NewProviderError(p.Name(), model, fmt.Errorf("%s", apiErr.Message)).WithStatus(apiErr.HTTPStatusCode)
	}
	return NewProviderError(p.Name(), model, err)
}
