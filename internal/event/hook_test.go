package event

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestShellHook_Matches(t *testing.T) {
	hook := NewShellHook("test", "echo hi", []EventType{StageStarted, StageCompleted}, false)

	if !hook.Matches(StageStarted) {
		t.Error("should match StageStarted")
	}
	if !hook.Matches(StageCompleted) {
		t.Error("should match StageCompleted")
	}
	if hook.Matches(PipelineStarted) {
		t.Error("should not match PipelineStarted")
	}
}

func TestShellHook_Execute(t *testing.T) {
	hook := NewShellHook("test", `echo "$REQCHECK_EVENT_TYPE $REQCHECK_RUN_ID $REQCHECK_STAGE"`, []EventType{StageStarted}, false)
	var out bytes.Buffer
	hook.Output = &out

	ev := NewEvent(StageStarted, map[string]interface{}{"stage": "alignment", "run_id": "run-1"})
	if err := hook.Handle(ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "stage.started run-1 alignment" {
		t.Errorf("output = %q", got)
	}
}

func TestShellHook_Timeout(t *testing.T) {
	hook := NewShellHook("slow", "sleep 5", nil, true)
	hook.Timeout = 50 * time.Millisecond
	if err := hook.Handle(NewEvent(StageStarted, nil)); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestShellHook_Failure(t *testing.T) {
	hook := NewShellHook("test", "false", []EventType{StageStarted}, true)

	ev := NewEvent(StageStarted, nil)
	err := hook.Handle(ev)
	if err == nil {
		t.Fatal("expected error from failed shell command")
	}
}

func TestWebhookHook_Execute(t *testing.T) {
	var received struct {
		mu     sync.Mutex
		body   []byte
		header string
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received.mu.Lock()
		received.body = body
		received.header = r.Header.Get("X-Reqcheck-Event")
		received.mu.Unlock()
		w.WriteHeader(200)
	}))
	defer server.Close()

	hook := NewWebhookHook("test", server.URL, []EventType{PipelineCompleted}, true)
	ev := NewEvent(PipelineCompleted, map[string]interface{}{"run_id": "run-1"})
	err := hook.Handle(ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	received.mu.Lock()
	defer received.mu.Unlock()

	var payload Event
	if err := json.Unmarshal(received.body, &payload); err != nil {
		t.Fatalf("failed to parse webhook payload: %v", err)
	}
	if payload.Type != PipelineCompleted {
		t.Errorf("expected PipelineCompleted, got %s", payload.Type)
	}
	if received.header != string(PipelineCompleted) {
		t.Errorf("X-Reqcheck-Event = %q", received.header)
	}
}

func TestWebhookHook_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer server.Close()

	hook := NewWebhookHook("test", server.URL, []EventType{PipelineFailed}, true)
	err := hook.Handle(NewEvent(PipelineFailed, nil))
	if err == nil {
		t.Fatal("expected error from 500 status")
	}
}

func TestLogHook_Execute(t *testing.T) {
	logger := &testLogger{}
	hook := NewLogHook("test", []EventType{StageStarted}, logger, "info")

	ev := NewEvent(StageStarted, map[string]interface{}{"stage": "alignment"})
	err := hook.Handle(ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// LogHook with a FullLogger calls Info; testLogger implements FullLogger
	// so the warn path won't be used here.
}

func TestLogHook_AlwaysNonBlocking(t *testing.T) {
	hook := NewLogHook("test", nil, &testLogger{}, "debug")
	if hook.IsBlocking() {
		t.Error("log hook should always be non-blocking")
	}
}

func TestPauseHook_Execute(t *testing.T) {
	// Simulate the user pressing Enter.
	var out bytes.Buffer
	hook := NewPauseHook("approve", []EventType{StageStarted}, "Review {{.Stage}} of {{.RunID}} before continuing?")
	hook.Reader = strings.NewReader("\n")
	hook.Output = &out

	ev := NewEvent(StageStarted, map[string]interface{}{"stage": "report", "run_id": "run-7"})
	if err := hook.Handle(ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "Review report of run-7 before continuing?" {
		t.Errorf("prompt = %q", got)
	}
}

func TestPauseHook_AlwaysBlocking(t *testing.T) {
	hook := NewPauseHook("test", nil, "")
	if !hook.IsBlocking() {
		t.Error("pause hook should always be blocking")
	}
}

func TestBaseHook_MatchesAll(t *testing.T) {
	h := &baseHook{name: "all", events: nil}
	if !h.Matches(StageStarted) {
		t.Error("nil events should match everything")
	}
	if !h.Matches(PipelineFailed) {
		t.Error("nil events should match everything")
	}
}

func TestBaseHook_MatchesNone(t *testing.T) {
	h := &baseHook{name: "specific", events: []EventType{PipelineStarted}}
	if h.Matches(StageStarted) {
		t.Error("should not match StageStarted")
	}
}

func TestIsKnown(t *testing.T) {
	for _, et := range AllTypes {
		if !IsKnown(et) {
			t.Errorf("%s should be known", et)
		}
	}
	if IsKnown(EventType("task.started")) {
		t.Error("task.started is not a reqcheck event")
	}
}

func TestNewHook(t *testing.T) {
	tests := []struct {
		kind    string
		opts    HookOptions
		wantErr bool
	}{
		{"shell", HookOptions{Command: "true"}, false},
		{"shell", HookOptions{}, true},
		{"webhook", HookOptions{URL: "http://localhost/hook"}, false},
		{"webhook", HookOptions{}, true},
		{"log", HookOptions{Logger: &testLogger{}}, false},
		{"log", HookOptions{}, true},
		{"pause", HookOptions{Message: "review {{.Stage}}"}, false},
		{"carrier-pigeon", HookOptions{}, true},
	}
	for _, tt := range tests {
		hook, err := NewHook(tt.kind, "h", []EventType{StageCompleted}, tt.opts)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s %+v: expected error", tt.kind, tt.opts)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.kind, err)
			continue
		}
		if hook.Name() != "h" || !hook.Matches(StageCompleted) || hook.Matches(StageStarted) {
			t.Errorf("%s: hook not configured as requested", tt.kind)
		}
	}
}
