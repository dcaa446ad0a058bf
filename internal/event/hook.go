package event

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"
)

// Hook processes lifecycle events.
type Hook interface {
	// Name returns the hook's identifier.
	Name() string
	// Matches returns true if the hook should handle this event type.
	Matches(t EventType) bool
	// IsBlocking returns true if the pipeline waits for this hook.
	IsBlocking() bool
	// Handle processes an event. For blocking hooks, an error stops execution.
	Handle(ev Event) error
}

// baseHook holds the name, event filter and blocking flag.
type baseHook struct {
	name     string
	events   []EventType
	blocking bool
}

func (h *baseHook) Name() string     { return h.name }
func (h *baseHook) IsBlocking() bool { return h.blocking }

// Matches reports whether t is in the filter. An empty filter matches all.
func (h *baseHook) Matches(t EventType) bool {
	if len(h.events) == 0 {
		return true
	}
	for _, ev := range h.events {
		if ev == t {
			return true
		}
	}
	return false
}

// runField returns a string field of ev.Data, or "".
func runField(ev Event, key string) string {
	s, _ := ev.Data[key].(string)
	return s
}

// ShellHook runs a command through sh -c. The command sees:
//
//	REQCHECK_EVENT_TYPE  event type, e.g. stage.failed
//	REQCHECK_EVENT_JSON  the whole event as JSON
//	REQCHECK_RUN_ID      run ID, when the event has one
//	REQCHECK_STAGE       stage name, for stage events
type ShellHook struct {
	baseHook
	Command string
	Timeout time.Duration
	// Output receives the command's stdout and stderr. Defaults to
	// os.Stderr so hook output never mixes with a JSON report on stdout.
	Output io.Writer
}

func NewShellHook(name, command string, events []EventType, blocking bool) *ShellHook {
	return &ShellHook{
		baseHook: baseHook{name: name, events: events, blocking: blocking},
		Command:  command,
		Timeout:  time.Minute,
	}
}

func (h *ShellHook) Handle(ev Event) error {
	eventJSON, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx := context.Background()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	out := h.Output
	if out == nil {
		out = os.Stderr
	}
	cmd := exec.CommandContext(ctx, "sh", "-c", h.Command)
	cmd.Env = append(os.Environ(),
		"REQCHECK_EVENT_TYPE="+string(ev.Type),
		"REQCHECK_EVENT_JSON="+string(eventJSON),
		"REQCHECK_RUN_ID="+runField(ev, "run_id"),
		"REQCHECK_STAGE="+runField(ev, "stage"),
	)
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("shell hook %s failed: %w", h.name, err)
	}
	return nil
}

// WebhookHook POSTs the event as JSON. The event type is also sent in the
// X-Reqcheck-Event header so receivers can route without parsing.
type WebhookHook struct {
	baseHook
	URL    string
	Client *http.Client
}

func NewWebhookHook(name, url string, events []EventType, blocking bool) *WebhookHook {
	return &WebhookHook{
		baseHook: baseHook{name: name, events: events, blocking: blocking},
		URL:      url,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (h *WebhookHook) Handle(ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, h.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook %s: %w", h.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "reqcheck")
	req.Header.Set("X-Reqcheck-Event", string(ev.Type))

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook %s failed: %w", h.name, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook %s returned status %d", h.name, resp.StatusCode)
	}
	return nil
}

// LogHook writes events to the logger. Always non-blocking.
type LogHook struct {
	baseHook
	logger Logger
	level  string
}

// FullLogger is a Logger with info and debug levels.
type FullLogger interface {
	Logger
	Info(msg string, keyvals ...interface{})
	Debug(msg string, keyvals ...interface{})
}

func NewLogHook(name string, events []EventType, logger Logger, level string) *LogHook {
	if level == "" {
		level = "info"
	}
	return &LogHook{
		baseHook: baseHook{name: name, events: events, blocking: false},
		logger:   logger,
		level:    level,
	}
}

func (h *LogHook) Handle(ev Event) error {
	keys := make([]string, 0, len(ev.Data))
	for k := range ev.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	keyvals := make([]interface{}, 0, len(keys)*2+2)
	keyvals = append(keyvals, "event_type", string(ev.Type))
	for _, k := range keys {
		keyvals = append(keyvals, k, ev.Data[k])
	}

	msg := "[event] " + string(ev.Type)
	fl, ok := h.logger.(FullLogger)
	if !ok {
		h.logger.Warn(msg, keyvals...)
		return nil
	}
	switch h.level {
	case "debug":
		fl.Debug(msg, keyvals...)
	case "warn":
		fl.Warn(msg, keyvals...)
	default:
		fl.Info(msg, keyvals...)
	}
	return nil
}

// PauseHook prints a prompt and waits for a line on Reader, so a stage's
// output can be read before the pipeline moves on. Always blocking.
//
// The message may use {{.EventType}}, {{.Stage}} and {{.RunID}}.
type PauseHook struct {
	baseHook
	Message string
	Reader  io.Reader // defaults to os.Stdin
	Output  io.Writer // defaults to os.Stderr
}

func NewPauseHook(name string, events []EventType, message string) *PauseHook {
	return &PauseHook{
		baseHook: baseHook{name: name, events: events, blocking: true},
		Message:  message,
	}
}

func (h *PauseHook) Handle(ev Event) error {
	msg := h.Message
	if msg == "" {
		msg = "{{.EventType}} {{.Stage}}: press Enter to continue..."
	}
	msg = strings.NewReplacer(
		"{{.EventType}}", string(ev.Type),
		"{{.Stage}}", runField(ev, "stage"),
		"{{.RunID}}", runField(ev, "run_id"),
	).Replace(msg)

	out := h.Output
	if out == nil {
		out = os.Stderr
	}
	fmt.Fprintln(out, msg)

	in := h.Reader
	if in == nil {
		in = os.Stdin
	}
	if _, err := bufio.NewReader(in).ReadString('\n'); err != nil && err != io.EOF {
		return fmt.Errorf("pause hook %s: %w", h.name, err)
	}
	return nil
}

// HookOptions carries the type-specific settings of a configured hook.
type HookOptions struct {
	Blocking bool
	Command  string // shell
	URL      string // webhook
	Message  string // pause
	Level    string // log
	Logger   Logger // log
}

// NewHook builds a hook of the given kind: shell, webhook, log or pause.
func NewHook(kind, name string, events []EventType, opts HookOptions) (Hook, error) {
	switch kind {
	case "shell":
		if opts.Command == "" {
			return nil, fmt.Errorf("shell hook %s has no command", name)
		}
		return NewShellHook(name, opts.Command, events, opts.Blocking), nil
	case "webhook":
		if opts.URL == "" {
			return nil, fmt.Errorf("webhook hook %s has no url", name)
		}
		return NewWebhookHook(name, opts.URL, events, opts.Blocking), nil
	case "log":
		if opts.Logger == nil {
			return nil, fmt.Errorf("log hook %s has no logger", name)
		}
		return NewLogHook(name, events, opts.Logger, opts.Level), nil
	case "pause":
		return NewPauseHook(name, events, opts.Message), nil
	default:
		return nil, fmt.Errorf("unknown hook type %q", kind)
	}
}
