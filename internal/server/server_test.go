package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cadre-oss/reqcheck/internal/event"
	"github.com/cadre-oss/reqcheck/internal/pipeline"
	"github.com/cadre-oss/reqcheck/internal/provider"
	"github.com/cadre-oss/reqcheck/internal/state"
	"github.com/cadre-oss/reqcheck/internal/testutil"
)

func newTestServer(t *testing.T, model provider.Invoker) (*Server, *httptest.Server) {
	t.Helper()
	stateMgr := state.NewManagerWithStore(state.NewInMemoryStore())
	t.Cleanup(func() { stateMgr.Close() })

	s := New(testutil.TestConfig(), stateMgr, testutil.TestLogger(), Options{
		Version:   "test",
		Model:     model,
		LogOutput: io.Discard,
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func postReview(t *testing.T, url string, body reviewRequest) *http.Response {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := http.Post(url+"/api/reviews", "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, testutil.AlwaysReply("ok"))

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("health = %v", body)
	}
}

func TestListRoles(t *testing.T) {
	_, ts := newTestServer(t, testutil.AlwaysReply("ok"))

	resp, err := http.Get(ts.URL + "/api/roles")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body) != 8 {
		t.Fatalf("roles = %d, want 8", len(body))
	}
	found := false
	for _, r := range body {
		if r["id"] == "summarizer" && r["name"] == "Summarizer" {
			found = true
		}
	}
	if !found {
		t.Errorf("summarizer missing from %v", body)
	}
}

func TestReview_ReturnsReportAndRecordsRun(t *testing.T) {
	_, ts := newTestServer(t, testutil.AlwaysReply("Requirements score: 80%\nCode score: 60%"))

	resp := postReview(t, ts.URL, reviewRequest{Requirements: "add two numbers", Code: "func add(a, b int) int { return a + b }"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var report pipeline.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.RunID == "" {
		t.Fatal("expected run id")
	}
	if report.Scores.Code.Value != 60 {
		t.Errorf("code score = %d, want 60", report.Scores.Code.Value)
	}

	runResp, err := http.Get(ts.URL + "/api/runs/" + report.RunID)
	if err != nil {
		t.Fatal(err)
	}
	defer runResp.Body.Close()
	if runResp.StatusCode != http.StatusOK {
		t.Fatalf("get run status = %d", runResp.StatusCode)
	}
	var run state.RunState
	json.NewDecoder(runResp.Body).Decode(&run)
	if run.Status != state.StatusCompleted {
		t.Errorf("run status = %s", run.Status)
	}

	listResp, err := http.Get(ts.URL + "/api/runs?limit=5")
	if err != nil {
		t.Fatal(err)
	}
	defer listResp.Body.Close()
	var runs []state.RunState
	json.NewDecoder(listResp.Body).Decode(&runs)
	if len(runs) != 1 {
		t.Errorf("runs = %d, want 1", len(runs))
	}
}

func TestReview_FailureReturnsPartialReport(t *testing.T) {
	_, ts := newTestServer(t, testutil.AlwaysFail("boom"))

	resp := postReview(t, ts.URL, reviewRequest{Requirements: "r", Code: "c"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}

	var body struct {
		Error  string          `json:"error"`
		Report pipeline.Report `json:"report"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(body.Error, "STAGE_FAILED") {
		t.Errorf("error = %q", body.Error)
	}
	if len(body.Report.Failed) != 1 {
		t.Errorf("failed stages = %v", body.Report.Failed)
	}
}

func TestReview_BadRequests(t *testing.T) {
	_, ts := newTestServer(t, testutil.AlwaysReply("ok"))

	resp := postReview(t, ts.URL, reviewRequest{Requirements: "r"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing code: status = %d", resp.StatusCode)
	}

	resp = postReview(t, ts.URL, reviewRequest{Requirements: "r", Code: "c", ErrorStrategy: "sometimes"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad strategy: status = %d", resp.StatusCode)
	}

	raw, err := http.Post(ts.URL+"/api/reviews", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatal(err)
	}
	raw.Body.Close()
	if raw.StatusCode != http.StatusBadRequest {
		t.Errorf("bad json: status = %d", raw.StatusCode)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	_, ts := newTestServer(t, testutil.AlwaysReply("ok"))

	resp, err := http.Get(ts.URL + "/api/runs/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestBroker_FiltersByRun(t *testing.T) {
	b := NewBroker(testutil.TestLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	all := b.Subscribe(ctx, "all", "")
	one := b.Subscribe(ctx, "one", "run-1")

	b.Handle(event.NewEvent(event.StageStarted, map[string]interface{}{"run_id": "run-2"}))

	select {
	case ev := <-all.Events:
		if ev.RunID != "run-2" || ev.Type != string(event.StageStarted) {
			t.Errorf("event = %+v", ev)
		}
	default:
		t.Fatal("unfiltered client got nothing")
	}
	select {
	case ev := <-one.Events:
		t.Errorf("filtered client got %+v", ev)
	default:
	}

	cancel()
	deadline := time.Now().Add(time.Second)
	for b.Clients() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := b.Clients(); n != 0 {
		t.Errorf("clients after cancel = %d", n)
	}
}

func TestSSE_StreamsConnectedEvent(t *testing.T) {
	_, ts := newTestServer(t, testutil.AlwaysReply("ok"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(line, "data: ") || !strings.Contains(line, `"connected"`) {
		t.Errorf("first line = %q", line)
	}
}
