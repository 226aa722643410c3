package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/caretforge/caretforge/pkg/models"
)

const (
	// MaxIterations bounds the number of model turns per run. Design constant,
	// not user-tunable.
	MaxIterations = 20

	// IterationLimitContent is the final content returned when the bound is hit.
	IterationLimitContent = "[Agent reached maximum iteration limit]"

	// PermissionDeniedContent is fed back to the model when the user denies a
	// gated tool call. A denial is a normal tool result, not an error.
	PermissionDeniedContent = "Permission denied by user."
)

// gatedTools lists the tool names that require a permission check before
// execution.
var gatedTools = map[string]struct{}{
	"write_file": {},
	"edit_file":  {},
	"exec_shell": {},
}

// ErrNoProvider is returned when the loop is run without a provider.
var ErrNoProvider = errors.New("agent: no provider configured")

// Callbacks let the driver observe and steer a run. Any field may be nil.
type Callbacks struct {
	// OnToken receives each streamed text token in wire order.
	OnToken func(token string)

	// OnToolCall fires before a tool call executes.
	OnToolCall func(call models.ToolCall)

	// OnToolResult fires after a tool call resolves (including denials).
	OnToolResult func(call models.ToolCall, result string, isError bool)

	// OnPermissionRequest decides whether a gated tool call may run. A nil
	// callback denies everything gated.
	OnPermissionRequest func(toolName string, args map[string]any) bool
}

// RunOptions parameterize a single run.
type RunOptions struct {
	Model     string
	Stream    bool
	Callbacks Callbacks
}

// Result is the outcome of a completed run.
type Result struct {
	// Messages is the full final conversation including the system message.
	Messages []models.Message

	// FinalContent is the text of the terminal assistant message.
	FinalContent string

	// ToolCallCount is the total number of tool calls dispatched.
	ToolCallCount int

	// DurationMs is the wall-clock duration of the run.
	DurationMs int64
}

// Loop orchestrates model turns, tool dispatch, and permission checks for one
// conversation. It is single-threaded with respect to that conversation;
// concurrent conversations use independent Loop values.
type Loop struct {
	provider     Provider
	registry     *ToolRegistry
	systemPrompt string
	trace        *TraceWriter
	logger       *slog.Logger
}

// NewLoop creates a loop over the given provider and tool registry.
func NewLoop(provider Provider, registry *ToolRegistry, systemPrompt string) *Loop {
	if registry == nil {
		registry = NewToolRegistry()
	}
	return &Loop{
		provider:     provider,
		registry:     registry,
		systemPrompt: systemPrompt,
		logger:       slog.Default().With("component", "agent"),
	}
}

// SetTrace attaches a trace writer that records run events as JSONL.
func (l *Loop) SetTrace(tw *TraceWriter) {
	l.trace = tw
}

// Run executes the loop over a conversation prefix (without the system
// message) until the model produces a reply with no tool calls or the
// iteration bound is hit. Provider errors terminate the run; tool errors are
// converted to tool results and fed back to the model.
func (l *Loop) Run(ctx context.Context, conversation []models.Message, opts RunOptions) (*Result, error) {
	if l.provider == nil {
		return nil, ErrNoProvider
	}

	start := time.Now()

	working := make([]models.Message, 0, len(conversation)+1)
	working = append(working, models.Message{Role: models.RoleSystem, Content: l.systemPrompt})
	working = append(working, conversation...)

	result := &Result{}

	for iteration := 0; iteration < MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		assistant, err := l.modelTurn(ctx, working, opts)
		if err != nil {
			return nil, err
		}
		// Some backends omit call ids; synthesize them so tool results can
		// always be linked back.
		for i := range assistant.ToolCalls {
			if assistant.ToolCalls[i].ID == "" {
				assistant.ToolCalls[i].ID = "call_" + uuid.NewString()
			}
		}
		working = append(working, *assistant)
		l.emitTrace("assistant_message", assistant)

		if len(assistant.ToolCalls) == 0 {
			result.Messages = working
			result.FinalContent = assistant.Content
			result.DurationMs = time.Since(start).Milliseconds()
			return result, nil
		}

		for _, call := range assistant.ToolCalls {
			result.ToolCallCount++
			working = append(working, l.dispatch(ctx, call, opts.Callbacks))
		}
	}

	result.Messages = working
	result.FinalContent = IterationLimitContent
	result.DurationMs = time.Since(start).Milliseconds()
	l.logger.Warn("iteration limit reached", "iterations", MaxIterations)
	return result, nil
}

// modelTurn performs one provider call and returns the assistant message,
// with tool calls fully reassembled when streaming.
func (l *Loop) modelTurn(ctx context.Context, working []models.Message, opts RunOptions) (*models.Message, error) {
	chatOpts := ChatOptions{
		Model:  opts.Model,
		Stream: opts.Stream,
		Tools:  l.registry.Definitions(),
	}

	if !opts.Stream {
		resp, err := l.provider.CreateChatCompletion(ctx, working, chatOpts)
		if err != nil {
			return nil, err
		}
		msg := resp.Message
		msg.Role = models.RoleAssistant
		return &msg, nil
	}

	chunks, err := l.provider.CreateStreamingChatCompletion(ctx, working, chatOpts)
	if err != nil {
		return nil, err
	}

	assembler := newToolCallAssembler()
	var content string
	var streamErr error

	// Drain to completion: the stream is lazy, finite, and non-restartable.
	for chunk := range chunks {
		if chunk.Err != nil {
			streamErr = chunk.Err
			continue
		}
		if chunk.Delta.Content != "" {
			content += chunk.Delta.Content
			if opts.Callbacks.OnToken != nil {
				opts.Callbacks.OnToken(chunk.Delta.Content)
			}
		}
		for _, delta := range chunk.Delta.ToolCalls {
			assembler.Add(delta)
		}
	}
	if streamErr != nil {
		return nil, streamErr
	}

	return &models.Message{
		Role:      models.RoleAssistant,
		Content:   content,
		ToolCalls: assembler.Assembled(),
	}, nil
}

// dispatch runs one tool call through the permission gate and executor and
// returns the resulting tool message.
func (l *Loop) dispatch(ctx context.Context, call models.ToolCall, cb Callbacks) models.Message {
	args := parseArguments(call.Arguments)

	if cb.OnToolCall != nil {
		cb.OnToolCall(call)
	}
	l.emitTrace("tool_call", call)

	if _, gated := gatedTools[call.Name]; gated {
		allowed := cb.OnPermissionRequest != nil && cb.OnPermissionRequest(call.Name, args)
		if !allowed {
			l.emitTrace("permission_denied", call)
			if cb.OnToolResult != nil {
				cb.OnToolResult(call, PermissionDeniedContent, true)
			}
			return models.Message{
				Role:       models.RoleTool,
				Content:    PermissionDeniedContent,
				ToolCallID: call.ID,
			}
		}
	}

	content, isError := l.execute(ctx, call, args)
	if cb.OnToolResult != nil {
		cb.OnToolResult(call, content, isError)
	}
	l.emitTrace("tool_result", map[string]any{"id": call.ID, "is_error": isError})

	return models.Message{
		Role:       models.RoleTool,
		Content:    content,
		ToolCallID: call.ID,
	}
}

// execute runs the tool and never lets a failure escape the loop.
func (l *Loop) execute(ctx context.Context, call models.ToolCall, args map[string]any) (string, bool) {
	tool := l.registry.Get(call.Name)
	if tool == nil {
		return fmt.Sprintf("Unknown tool: %s", call.Name), true
	}

	params, err := json.Marshal(args)
	if err != nil {
		params = json.RawMessage(`{}`)
	}

	result, err := tool.Execute(ctx, params)
	if err != nil {
		return err.Error(), true
	}
	if result == nil {
		return "", false
	}
	return result.Content, result.IsError
}

// parseArguments decodes the streamed arguments string. An unparseable string
// is replaced by the empty object; the tool is responsible for validation.
func parseArguments(raw string) map[string]any {
	args := map[string]any{}
	if raw == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{}
	}
	return args
}

func (l *Loop) emitTrace(event string, data any) {
	if l.trace == nil {
		return
	}
	l.trace.Emit(event, data)
}
