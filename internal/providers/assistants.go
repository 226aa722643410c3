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

const (
	runPollInitial = 500 * time.Millisecond
	runPollMax     = 5 * time.Second
	runPollCeiling = 120 * time.Second
)

// terminal run statuses; requires_action is handled separately because this
// adapter does not do client-side function calling.
var terminalRunStatuses = map[string]bool{
	"completed":  true,
	"failed":     true,
	"cancelled":  true,
	"expired":    true,
	"incomplete": true,
}

// AssistantsProvider serves the asynchronous thread/run protocol.
//
// A completion is a thread plus a run against a preconfigured assistant; the
// answer is fetched from the thread's messages once the run reaches a
// terminal status. Tools are executed server-side by the assistant, so
// SupportsTools is false and the agent loop degrades to plain chat.
type AssistantsProvider struct {
	client      *http.Client
	endpoint    string
	apiVersion  string
	assistantID string
	apiKey      string
	tokens      *azTokenSource
	logger      *slog.Logger
}

// AssistantsConfig configures an AssistantsProvider. Exactly one of APIKey
// or UseAzureCLI must be set.
type AssistantsConfig struct {
	Endpoint    string
	APIVersion  string
	AssistantID string
	APIKey      string
	UseAzureCLI bool
}

// NewAssistantsProvider builds the provider, validating required fields.
func NewAssistantsProvider(cfg AssistantsConfig) (*AssistantsProvider, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("assistants: endpoint is required")
	}
	if cfg.AssistantID == "" {
		return nil, errors.New("assistants: assistant ID is required")
	}
	if cfg.APIKey == "" && !cfg.UseAzureCLI {
		return nil, errors.New("assistants: API key or azure-cli auth is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-05-01-preview"
	}

	p := &AssistantsProvider{
		client:      &http.Client{Timeout: 5 * time.Minute},
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		apiVersion:  cfg.APIVersion,
		assistantID: cfg.AssistantID,
		apiKey:      cfg.APIKey,
		logger:      slog.Default().With("component", "provider.assistants"),
	}
	if cfg.UseAzureCLI {
		p.tokens = newAzTokenSource()
	}
	return p, nil
}

func (p *AssistantsProvider) Name() string { return "assistants" }

// SupportsTools is false: the backend runs tools server-side, and the
// thread/run protocol gives this client no way to answer requires_action.
func (p *AssistantsProvider) SupportsTools() bool { return false }

func (p *AssistantsProvider) ListModels(ctx context.Context) ([]models.ModelInfo, error) {
	_ = ctx
	return []models.ModelInfo{
		{ID: p.assistantID, Description: "configured assistant"},
	}, nil
}

// wire shapes; only consumed fields are declared.

type assistantsRun struct {
	ID        string `json:"id"`
	ThreadID  string `json:"thread_id"`
	Status    string `json:"status"`
	LastError *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_error"`
}

type assistantsMessageList struct {
	Data []assistantsMessage `json:"data"`
}

type assistantsMessage struct {
	Role    string                     `json:"role"`
	Content []assistantsMessageContent `json:"content"`
}

type assistantsMessageContent struct {
	Type string `json:"type"`
	Text struct {
		Value string `json:"value"`
	} `json:"text"`
}

func (p *AssistantsProvider) CreateChatCompletion(ctx context.Context, messages []models.Message, opts agent.ChatOptions) (*agent.ChatResponse, error) {
	run, err := p.createRun(ctx, messages, false)
	if err != nil {
		return nil, err
	}

	run, err = p.pollRun(ctx, run)
	if err != nil {
		return nil, err
	}
	if run.Status != "completed" {
		msg := run.Status
		if run.LastError != nil {
			msg = fmt.Sprintf("%s: %s", run.Status, run.LastError.Message)
		}
		return nil, NewProviderError(p.Name(), p.assistantID, fmt.Errorf("run ended with status %s", msg))
	}

	content, err := p.fetchAnswer(ctx, run.ThreadID)
	if err != nil {
		return nil, err
	}
	return &agent.ChatResponse{
		Message:      models.Message{Role: models.RoleAssistant, Content: content},
		FinishReason: "stop",
	}, nil
}

// pollRun polls the run endpoint with exponential backoff from 500 ms to
// 5 s until a terminal status, bounded by a 120 s ceiling.
func (p *AssistantsProvider) pollRun(ctx context.Context, run *assistantsRun) (*assistantsRun, error) {
	deadline := time.Now().Add(runPollCeiling)
	delay := runPollInitial

	for {
		if terminalRunStatuses[run.Status] {
			return run, nil
		}
		if run.Status == "requires_action" {
			return nil, NewProviderError(p.Name(), p.assistantID,
				errors.New("run requires client-side tool output, which this adapter does not support"))
		}
		if time.Now().After(deadline) {
			return nil, NewProviderError(p.Name(), p.assistantID,
				fmt.Errorf("run did not finish within %s (status %s)", runPollCeiling, run.Status))
		}

		select {
		case <-ctx.Done():
			return nil, NewProviderError(p.Name(), p.assistantID, ctx.Err())
		case <-time.After(delay):
		}
		if delay *= 2; delay > runPollMax {
			delay = runPollMax
		}

		var next assistantsRun
		path := fmt.Sprintf("/threads/%s/runs/%s", run.ThreadID, run.ID)
		if err := p.doJSON(ctx, http.MethodGet, path, nil, &next); err != nil {
			return nil, err
		}
		run = &next
	}
}

// fetchAnswer returns the newest assistant message's concatenated text parts.
func (p *AssistantsProvider) fetchAnswer(ctx context.Context, threadID string) (string, error) {
	var list assistantsMessageList
	path := fmt.Sprintf("/threads/%s/messages?order=desc&limit=10", threadID)
	if err := p.doJSON(ctx, http.MethodGet, path, nil, &list); err != nil {
		return "", err
	}
	for _, msg := range list.Data {
		if msg.Role != "assistant" {
			continue
		}
		var b strings.Builder
		for _, part := range msg.Content {
			if part.Type == "text" {
				b.WriteString(part.Text.Value)
			}
		}
		return b.String(), nil
	}
	return "", NewProviderError(p.Name(), p.assistantID, errors.New("run completed but thread has no assistant message"))
}

func (p *AssistantsProvider) CreateStreamingChatCompletion(ctx context.Context, messages []models.Message, opts agent.ChatOptions) (<-chan *models.StreamChunk, error) {
	resp, err := p.createRunRaw(ctx, messages, true)
	if err != nil {
		return nil, err
	}

	chunks := make(chan *models.StreamChunk)
	go p.processStream(resp.Body, chunks)
	return chunks, nil
}

type assistantsStreamDelta struct {
	Delta struct {
		Content []assistantsMessageContent `json:"content"`
	} `json:"delta"`
}

func (p *AssistantsProvider) processStream(body io.ReadCloser, chunks chan<- *models.StreamChunk) {
	defer close(chunks)
	defer body.Close()

	scanner := newSSEScanner(body)
	for {
		ev, err := scanner.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				chunks <- &models.StreamChunk{Err: NewProviderError(p.Name(), p.assistantID, err)}
			}
			return
		}
		if ev.Data == "[DONE]" {
			return
		}

		switch ev.Event {
		case "thread.message.delta":
			var payload assistantsStreamDelta
			if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
				p.logger.Debug("skipping unparseable stream event", "event", ev.Event, "error", err)
				continue
			}
			for _, part := range payload.Delta.Content {
				if part.Type == "text" && part.Text.Value != "" {
					chunks <- &models.StreamChunk{Delta: models.StreamDelta{Content: part.Text.Value}}
				}
			}

		case "thread.run.completed":
			chunks <- &models.StreamChunk{FinishReason: "stop"}
			return

		case "thread.run.failed":
			chunks <- &models.StreamChunk{Err: NewProviderError(p.Name(), p.assistantID, fmt.Errorf("run failed: %s", ev.Data))}
			return
		}
	}
}

// createRun POSTs a combined thread+run. Only user and assistant text
// survives the conversion: the thread protocol has no tool messages.
func (p *AssistantsProvider) createRun(ctx context.Context, messages []models.Message, stream bool) (*assistantsRun, error) {
	resp, err := p.createRunRaw(ctx, messages, stream)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var run assistantsRun
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		return nil, NewProviderError(p.Name(), p.assistantID, fmt.Errorf("decode run: %w", err))
	}
	return &run, nil
}

func (p *AssistantsProvider) createRunRaw(ctx context.Context, messages []models.Message, stream bool) (*http.Response, error) {
	type threadMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	var threadMessages []threadMessage
	var instructions string
	for _, msg := range messages {
		switch msg.Role {
		case models.RoleSystem:
			instructions = msg.Content
		case models.RoleUser, models.RoleAssistant:
			if msg.Content != "" {
				threadMessages = append(threadMessages, threadMessage{
					Role:    string(msg.Role),
					Content: msg.Content,
				})
			}
		}
	}

	body := map[string]any{
		"assistant_id": p.assistantID,
		"thread": map[string]any{
			"messages": threadMessages,
		},
	}
	if instructions != "" {
		body["instructions"] = instructions
	}
	if stream {
		body["stream"] = true
	}
	return p.do(ctx, http.MethodPost, "/threads/runs", body)
}

// doJSON performs a request and decodes the JSON response into out.
func (p *AssistantsProvider) doJSON(ctx context.Context, method, path string, body any, out any) error {
	resp, err := p.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewProviderError(p.Name(), p.assistantID, fmt.Errorf("decode %s: %w", path, err))
	}
	return nil
}

func (p *AssistantsProvider) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, NewProviderError(p.Name(), p.assistantID, fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	url := p.endpoint + "/openai" + path + sep + "api-version=" + p.apiVersion

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, NewProviderError(p.Name(), p.assistantID, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.tokens != nil {
		token, err := p.tokens.Token(ctx)
		if err != nil {
			return nil, NewProviderError(p.Name(), p.assistantID, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.Header.Set("api-key", p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, NewProviderError(p.Name(), p.assistantID, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, NewProviderError(p.Name(), p.assistantID,
			fmt.Errorf("assistants status %d: %s", resp.StatusCode, strings.TrimSpace(string(errBody)))).WithStatus(resp.StatusCode)
	}
	return resp, nil
}
