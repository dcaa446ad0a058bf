package provider

import (
	"context"
	"fmt"
	"testing"
)

// testProvider is a minimal mock recording the last request.
type testProvider struct {
	resp    *Response
	err     error
	lastReq *CompletionRequest
}

func (p *testProvider) Name() string { return "test" }

func (p *testProvider) Complete(ctx context.Context, req *CompletionRequest) (*Response, error) {
	p.lastReq = req
	return p.resp, p.err
}

func TestBind_UsesContentField(t *testing.T) {
	inner := &testProvider{resp: &Response{Content: "  structured reply \n"}}
	inv := Bind(inner, BindOptions{Model: "m1", MaxTokens: 100, Temperature: 0.2})

	out, err := inv.Invoke(context.Background(), "prompt text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "structured reply" {
		t.Errorf("expected trimmed content, got %q", out)
	}

	req := inner.lastReq
	if req.Model != "m1" || req.MaxTokens != 100 || req.Temperature != 0.2 {
		t.Errorf("bind options not applied: %+v", req)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" || req.Messages[0].Content != "prompt text" {
		t.Errorf("expected a single user message, got %+v", req.Messages)
	}
}

func TestBind_PropagatesError(t *testing.T) {
	inner := &testProvider{err: fmt.Errorf("rate limited")}
	_, err := Bind(inner, BindOptions{}).Invoke(context.Background(), "x")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestBind_NilResponse(t *testing.T) {
	inner := &testProvider{}
	_, err := Bind(inner, BindOptions{}).Invoke(context.Background(), "x")
	if err == nil {
		t.Fatal("expected error for nil response")
	}
}

func TestInvokerFunc_TrimsRawString(t *testing.T) {
	f := InvokerFunc(func(ctx context.Context, prompt string) (string, error) {
		return "\t raw " + prompt + " \n", nil
	})
	out, err := f.Invoke(context.Background(), "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "raw text" {
		t.Errorf("expected trimmed raw string, got %q", out)
	}
}

func TestResponse_TextNil(t *testing.T) {
	var r *Response
	if r.Text() != "" {
		t.Error("nil response should have empty text")
	}
}
