package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarvis/internal/event"
	"jarvis/internal/session"
	"jarvis/internal/tool"
)

type chatRequest struct {
	Model    string           `json:"model"`
	Messages []map[string]any `json:"messages"`
	Tools    []map[string]any `json:"tools"`
}

// fakeModel is a scripted chat-completions endpoint. Each call pops
// the next canned response and records the request it answered.
type fakeModel struct {
	t  *testing.T
	mu sync.Mutex

	responses []string
	requests  []chatRequest
}

func (f *fakeModel) handler(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
		http.NotFound(w, r)
		return
	}

	var req chatRequest
	require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))

	f.mu.Lock()
	f.requests = append(f.requests, req)
	require.NotEmpty(f.t, f.responses, "model called more times than scripted")
	body := f.responses[0]
	f.responses = f.responses[1:]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, body)
}

func (f *fakeModel) request(i int) chatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Greater(f.t, len(f.requests), i)
	return f.requests[i]
}

func (f *fakeModel) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func textResponse(content string) string {
	return fmt.Sprintf(`{
		"id": "chatcmpl-test",
		"object": "chat.completion",
		"created": 1,
		"model": "gpt-5-nano",
		"choices": [{"index": 0, "finish_reason": "stop",
			"message": {"role": "assistant", "content": %q}}]
	}`, content)
}

func toolCallResponse(id, name, args string) string {
	return fmt.Sprintf(`{
		"id": "chatcmpl-test",
		"object": "chat.completion",
		"created": 1,
		"model": "gpt-5-nano",
		"choices": [{"index": 0, "finish_reason": "tool_calls",
			"message": {"role": "assistant", "content": "",
				"tool_calls": [{"id": %q, "type": "function",
					"function": {"name": %q, "arguments": %q}}]}}]
	}`, id, name, args)
}

// newTestGateway wires a gateway against the fake endpoint. The
// returned collect flushes the sink and reads back the recorded
// events.
func newTestGateway(t *testing.T, fake *fakeModel, reg *tool.Registry) (*Gateway, func() []event.Record) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(srv.Close)

	client := openai.NewClient(
		option.WithAPIKey("test"),
		option.WithBaseURL(srv.URL+"/"),
		option.WithMaxRetries(0),
	)

	logPath := filepath.Join(t.TempDir(), "events.jsonl")
	sink, err := event.NewSink(logPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { sink.Close() })

	collect := func() []event.Record {
		require.NoError(t, sink.Close())
		records, _, err := event.Tail(logPath, 0)
		require.NoError(t, err)
		return records
	}
	return New(client, "gpt-5-nano", reg, sink, nil), collect
}

func TestReplyPlainAnswer(t *testing.T) {
	fake := &fakeModel{t: t, responses: []string{textResponse("two plus two is four")}}
	gw, _ := newTestGateway(t, fake, tool.NewRegistry())

	history := []session.Turn{{Role: session.RoleUser, Content: "what is two plus two"}}
	reply, turns, err := gw.Reply(context.Background(), history)
	require.NoError(t, err)
	assert.Equal(t, "two plus two is four", reply)

	require.Len(t, turns, 1)
	assert.Equal(t, session.RoleAssistant, turns[0].Role)

	req := fake.request(0)
	require.GreaterOrEqual(t, len(req.Messages), 2)
	assert.Equal(t, "system", req.Messages[0]["role"])
	assert.Equal(t, "user", req.Messages[len(req.Messages)-1]["role"])
	assert.Equal(t, 1, fake.calls())
}

func TestReplyRunsToolAndFollowsUp(t *testing.T) {
	fake := &fakeModel{t: t, responses: []string{
		toolCallResponse("call_1", "get_time", `{"city":"tokyo"}`),
		textResponse("It is nine in the evening in Tokyo."),
	}}

	reg := tool.NewRegistry()
	var gotArgs map[string]any
	require.NoError(t, reg.Register(tool.Spec{
		Name:        "get_time",
		Description: "current time in a city",
		Parameters:  map[string]any{"type": "object"},
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			gotArgs = args
			return "21:00 in Tokyo", nil
		},
	}))
	gw, _ := newTestGateway(t, fake, reg)

	history := []session.Turn{{Role: session.RoleUser, Content: "time in tokyo?"}}
	reply, turns, err := gw.Reply(context.Background(), history)
	require.NoError(t, err)
	assert.Equal(t, "It is nine in the evening in Tokyo.", reply)
	assert.Equal(t, map[string]any{"city": "tokyo"}, gotArgs)

	require.Len(t, turns, 2)
	assert.Equal(t, session.RoleTool, turns[0].Role)
	assert.Equal(t, "get_time", turns[0].Tool)
	assert.Equal(t, "21:00 in Tokyo", turns[0].Content)
	assert.Equal(t, session.RoleAssistant, turns[1].Role)

	// The first call offers tools, the follow-up does not.
	assert.NotEmpty(t, fake.request(0).Tools)
	assert.Empty(t, fake.request(1).Tools)

	// The follow-up carries the tool result with its call id.
	second := fake.request(1)
	last := second.Messages[len(second.Messages)-1]
	assert.Equal(t, "tool", last["role"])
	assert.Equal(t, "call_1", last["tool_call_id"])
	assert.Equal(t, 2, fake.calls())
}

func TestReplyUnknownToolStillAnswers(t *testing.T) {
	fake := &fakeModel{t: t, responses: []string{
		toolCallResponse("call_9", "teleport", `{}`),
		textResponse("I cannot do that."),
	}}
	gw, collect := newTestGateway(t, fake, tool.NewRegistry())

	reply, turns, err := gw.Reply(context.Background(),
		[]session.Turn{{Role: session.RoleUser, Content: "teleport me"}})
	require.NoError(t, err)
	assert.Equal(t, "I cannot do that.", reply)

	require.Len(t, turns, 2)
	assert.Contains(t, turns[0].Content, "not available")

	second := fake.request(1)
	last := second.Messages[len(second.Messages)-1]
	assert.Contains(t, last["content"], "not available")

	// An unrecognized tool is a failed execution, recorded like one.
	records := collect()
	require.Len(t, records, 2)
	assert.Equal(t, event.KindModelInvoked, records[0].Kind)
	assert.Equal(t, event.KindError, records[1].Kind)
	assert.Equal(t, "teleport", records[1].Tool)
	assert.Contains(t, records[1].Error, "unknown tool")
}

func TestReplyToolFailureIsReportedToModel(t *testing.T) {
	fake := &fakeModel{t: t, responses: []string{
		toolCallResponse("call_2", "get_time", `{}`),
		textResponse("Sorry, the clock is broken."),
	}}

	reg := tool.NewRegistry()
	require.NoError(t, reg.Register(tool.Spec{
		Name:       "get_time",
		Parameters: map[string]any{"type": "object"},
		Handler: func(context.Context, map[string]any) (string, error) {
			return "", errors.New("no timezone data")
		},
	}))
	gw, collect := newTestGateway(t, fake, reg)

	reply, _, err := gw.Reply(context.Background(),
		[]session.Turn{{Role: session.RoleUser, Content: "what time is it"}})
	require.NoError(t, err)
	assert.Equal(t, "Sorry, the clock is broken.", reply)

	second := fake.request(1)
	last := second.Messages[len(second.Messages)-1]
	assert.Contains(t, last["content"], "failed")

	records := collect()
	require.Len(t, records, 3)
	assert.Equal(t, event.KindToolInvoked, records[1].Kind)
	assert.Equal(t, event.KindError, records[2].Kind)
	assert.Equal(t, "get_time", records[2].Tool)
}

func TestReplyServerErrorIsModelUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	client := openai.NewClient(
		option.WithAPIKey("test"),
		option.WithBaseURL(srv.URL+"/"),
		option.WithMaxRetries(0),
	)
	sink, err := event.NewSink(filepath.Join(t.TempDir(), "events.jsonl"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { sink.Close() })

	gw := New(client, "gpt-5-nano", tool.NewRegistry(), sink, nil)
	_, _, err = gw.Reply(context.Background(),
		[]session.Turn{{Role: session.RoleUser, Content: "hello"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestReplyEmptyAnswerIsModelUnavailable(t *testing.T) {
	fake := &fakeModel{t: t, responses: []string{textResponse("")}}
	gw, _ := newTestGateway(t, fake, tool.NewRegistry())

	_, _, err := gw.Reply(context.Background(),
		[]session.Turn{{Role: session.RoleUser, Content: "hello"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestReplyToolTurnsAreNotReplayed(t *testing.T) {
	fake := &fakeModel{t: t, responses: []string{textResponse("sure")}}
	gw, _ := newTestGateway(t, fake, tool.NewRegistry())

	history := []session.Turn{
		{Role: session.RoleUser, Content: "time in tokyo?"},
		{Role: session.RoleTool, Tool: "get_time", Content: "21:00"},
		{Role: session.RoleAssistant, Content: "nine in the evening"},
		{Role: session.RoleUser, Content: "thanks"},
	}
	_, _, err := gw.Reply(context.Background(), history)
	require.NoError(t, err)

	req := fake.request(0)
	for _, m := range req.Messages {
		assert.NotEqual(t, "tool", m["role"])
	}
	// system + the three non-tool turns.
	assert.Len(t, req.Messages, 4)
}

func TestReplyRecordsModelAndToolEvents(t *testing.T) {
	fake := &fakeModel{t: t, responses: []string{
		toolCallResponse("call_1", "get_time", `{"city":"oslo"}`),
		textResponse("It is noon in Oslo."),
	}}

	reg := tool.NewRegistry()
	require.NoError(t, reg.Register(tool.Spec{
		Name:       "get_time",
		Parameters: map[string]any{"type": "object"},
		Handler: func(context.Context, map[string]any) (string, error) {
			return "12:00", nil
		},
	}))

	gw, collect := newTestGateway(t, fake, reg)
	_, _, err := gw.Reply(context.Background(),
		[]session.Turn{{Role: session.RoleUser, Content: "time in oslo"}})
	require.NoError(t, err)

	records := collect()
	require.Len(t, records, 2)
	assert.Equal(t, event.KindModelInvoked, records[0].Kind)
	assert.Equal(t, "gpt-5-nano", records[0].Text)
	assert.Equal(t, event.KindToolInvoked, records[1].Kind)
	assert.Equal(t, "get_time", records[1].Tool)
	assert.JSONEq(t, `{"city":"oslo"}`, records[1].Args)
}
