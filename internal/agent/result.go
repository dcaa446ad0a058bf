package agent

import "time"

// Result is the outcome of one Run: either reply text or a failure.
//
// A successful reply may be empty; OK distinguishes that from a run that
// exhausted its attempts.
type Result struct {
	Text     string
	Attempts int
	Duration time.Duration
	Err      error
}

// OK reports whether the run produced a reply.
func (r Result) OK() bool {
	return r.Err == nil
}

// TextOr returns the reply text, or fallback when the run failed.
func (r Result) TextOr(fallback string) string {
	if r.OK() {
		return r.Text
	}
	return fallback
}
