package provider

import (
	"context"
	"fmt"
	"strings"
)

// Invoker is the model-invocation capability an agent is bound to: one
// opaque prompt in, reply text out.
//
// Providers return structured responses and raw functions return plain
// strings. Both shapes are reduced to text once, when the capability is
// bound, so callers never inspect the reply type.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// InvokerFunc adapts a plain string-returning function to Invoker.
type InvokerFunc func(ctx context.Context, prompt string) (string, error)

// Invoke calls f and trims the result.
func (f InvokerFunc) Invoke(ctx context.Context, prompt string) (string, error) {
	out, err := f(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// BindOptions are per-call request settings applied by a bound provider.
type BindOptions struct {
	Model       string
	System      string
	MaxTokens   int
	Temperature float64
}

// Bind adapts a Provider to Invoker. The prompt is sent as a single user
// message and the reply's Content field becomes the text.
func Bind(p Provider, opts BindOptions) Invoker {
	return &boundProvider{inner: p, opts: opts}
}

type boundProvider struct {
	inner Provider
	opts  BindOptions
}

func (b *boundProvider) Invoke(ctx context.Context, prompt string) (string, error) {
	req := UserPrompt(prompt)
	req.Model = b.opts.Model
	req.System = b.opts.System
	req.MaxTokens = b.opts.MaxTokens
	req.Temperature = b.opts.Temperature

	resp, err := b.inner.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", fmt.Errorf("%s: empty response", b.inner.Name())
	}
	return resp.Text(), nil
}

// Name returns the wrapped provider's name.
func (b *boundProvider) Name() string {
	return b.inner.Name()
}
