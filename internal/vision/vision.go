package vision

import (
	"context"
	"io"
)

// ConditionPrompt is the shared prompt used by all condition analyzers.
const ConditionPrompt = `This photo shows one piece of studio equipment being checked out or
returned. Describe its physical condition in a few words, then list any
visible damage, wear, or missing parts. Respond in plain text on a single
line, format: condition | issues`

// Analyzer derives a short condition report from a condition photo. Assess
// may return a nil report when the model response is unusable; callers treat
// that as "no note".
type Analyzer interface {
	Assess(ctx context.Context, r io.Reader, mimeType string) (*ConditionReport, error)
}

// ConditionReport is the parsed model output for one condition photo.
type ConditionReport struct {
	Condition string
	Issues    string
	Raw       string
}

// Note flattens the report into the single line stored on a transaction.
func (r *ConditionReport) Note() string {
	if r.Issues == "" {
		return r.Condition
	}
	return r.Condition + "; " + r.Issues
}
