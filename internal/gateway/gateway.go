// Package gateway wraps one round-trip to the language model. When
// the model asks for tools it runs them in the requested order, feeds
// the results back, and makes one follow-up call for the final answer.
// A tool result is never itself offered tool access.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/openai/openai-go/v3"

	"jarvis/internal/event"
	"jarvis/internal/session"
	"jarvis/internal/tool"
)

// ErrModelUnavailable wraps transport and protocol failures talking to
// the model. The session machine recovers from it with a spoken
// fallback; it is never fatal.
var ErrModelUnavailable = errors.New("model unavailable")

// ToolError reports a failed tool handler. The gateway still produces
// a best-effort final answer by telling the model the tool failed.
type ToolError struct {
	Tool string
	Err  error
}

func (e *ToolError) Error() string { return fmt.Sprintf("tool %s: %v", e.Tool, e.Err) }
func (e *ToolError) Unwrap() error { return e.Err }

const systemPrompt = `You are Jarvis, an intelligent, conversational AI assistant.
Your goal is to be helpful, friendly, and informative. You can respond
in natural, human-like language and use tools when needed to answer
questions more accurately. Your answers are spoken aloud, so keep them
conversational and concise.`

type Gateway struct {
	client openai.Client
	model  openai.ChatModel
	reg    *tool.Registry
	sink   *event.Sink
	log    *slog.Logger
}

func New(client openai.Client, model string, reg *tool.Registry, sink *event.Sink, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{
		client: client,
		model:  openai.ChatModel(model),
		reg:    reg,
		sink:   sink,
		log:    log,
	}
}

// Reply sends the history plus the registry's tools to the model and
// returns the final text along with the turns to append (tool results
// first, assistant answer last).
func (g *Gateway) Reply(ctx context.Context, history []session.Turn) (string, []session.Turn, error) {
	msgs := g.buildMessages(history)

	g.sink.Record(event.Record{Kind: event.KindModelInvoked, Text: string(g.model)})
	g.log.Debug("invoking model", "model", g.model, "turns", len(history), "tools", g.reg.Len())

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    g.model,
		Messages: msgs,
		Tools:    g.toolParams(),
	})
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil, fmt.Errorf("%w: no choices in response", ErrModelUnavailable)
	}

	msg := resp.Choices[0].Message
	var turns []session.Turn

	if len(msg.ToolCalls) == 0 {
		if msg.Content == "" {
			return "", nil, fmt.Errorf("%w: empty message content", ErrModelUnavailable)
		}
		turns = append(turns, session.Turn{Role: session.RoleAssistant, Content: msg.Content, At: time.Now()})
		return msg.Content, turns, nil
	}

	msgs = append(msgs, msg.ToParam())
	for _, call := range msg.ToolCalls {
		name := call.Function.Name
		result := g.runTool(ctx, name, call.Function.Arguments)
		msgs = append(msgs, openai.ToolMessage(result, call.ID))
		turns = append(turns, session.Turn{Role: session.RoleTool, Tool: name, Content: result, At: time.Now()})
	}

	// Second round-trip without tools: one tool round per utterance.
	resp, err = g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    g.model,
		Messages: msgs,
	})
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", nil, fmt.Errorf("%w: empty final answer", ErrModelUnavailable)
	}

	final := resp.Choices[0].Message.Content
	turns = append(turns, session.Turn{Role: session.RoleAssistant, Content: final, At: time.Now()})
	return final, turns, nil
}

// runTool resolves and executes one requested tool call. Failures are
// reported to the model as text rather than aborting the utterance.
func (g *Gateway) runTool(ctx context.Context, name, rawArgs string) string {
	spec, ok := g.reg.Lookup(name)
	if !ok {
		g.log.Warn("model requested unknown tool", "tool", name)
		g.sink.Record(event.Record{Kind: event.KindError, Tool: name, Error: tool.ErrUnknownTool.Error()})
		return fmt.Sprintf("The tool %q is not available.", name)
	}

	args := map[string]any{}
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			g.sink.Record(event.Record{Kind: event.KindError, Tool: name, Error: err.Error()})
			return fmt.Sprintf("The arguments for %s could not be parsed: %v.", name, err)
		}
	}

	g.sink.Record(event.Record{Kind: event.KindToolInvoked, Tool: name, Args: rawArgs})
	g.log.Info("invoking tool", "tool", name, "args", rawArgs)

	out, err := spec.Handler(ctx, args)
	if err != nil {
		terr := &ToolError{Tool: name, Err: err}
		g.log.Error("tool failed", "tool", name, "err", err)
		g.sink.Record(event.Record{Kind: event.KindError, Tool: name, Error: terr.Error()})
		return fmt.Sprintf("The tool %s failed: %v.", name, err)
	}
	return out
}

// buildMessages renders the history for the model. Tool turns are kept
// in the session for observability but not replayed here: the
// assistant turn that followed them already carries their outcome, and
// a tool message without its originating call id is not valid.
func (g *Gateway) buildMessages(history []session.Turn) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	msgs = append(msgs, openai.SystemMessage(systemPrompt))
	for _, t := range history {
		switch t.Role {
		case session.RoleUser:
			msgs = append(msgs, openai.UserMessage(t.Content))
		case session.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(t.Content))
		}
	}
	return msgs
}

func (g *Gateway) toolParams() []openai.ChatCompletionToolUnionParam {
	specs := g.reg.All()
	params := make([]openai.ChatCompletionToolUnionParam, 0, len(specs))
	for _, s := range specs {
		params = append(params, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        s.Name,
			Description: openai.String(s.Description),
			Parameters:  openai.FunctionParameters(s.Parameters),
		}))
	}
	return params
}
