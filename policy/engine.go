// Package policy evaluates the turn admission policy with OPA.
package policy

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/open-policy-agent/opa/rego"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// Limits are the configured bounds passed to the policy.
type Limits struct {
	MaxMessageChars int `json:"max_message_chars"`
	MaxImageBytes   int `json:"max_image_bytes"`
}

// Input is the document a turn is evaluated against.
type Input struct {
	SessionID    string `json:"session_id"`
	Message      string `json:"message"`
	MessageChars int    `json:"message_chars"`
	HasImage     bool   `json:"has_image"`
	ImageBytes   int    `json:"image_bytes"`
	Limits       Limits `json:"limits"`
}

// NewEngine creates a new policy engine with the given policy content.
// The module must define a set rule data.turn_policy.deny.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.turn_policy.deny"),
		rego.Module("turn_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// NewEngineFromFile loads the policy from path, or the default policy when path is empty.
func NewEngineFromFile(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		return NewEngine(ctx, DefaultPolicy)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return NewEngine(ctx, string(content))
}

// Evaluate returns the sorted denial reasons for input. No reasons means the turn is admitted.
func (e *Engine) Evaluate(ctx context.Context, input Input) ([]string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return nil, nil
	}

	values, ok := results[0].Expressions[0].Value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected policy result type %T", results[0].Expressions[0].Value)
	}

	reasons := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected denial reason type %T", v)
		}
		reasons = append(reasons, s)
	}
	sort.Strings(reasons)
	return reasons, nil
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package turn_policy

import rego.v1

deny contains "message or image is required" if {
	trim_space(input.message) == ""
	not input.has_image
}

deny contains msg if {
	input.limits.max_message_chars > 0
	input.message_chars > input.limits.max_message_chars
	msg := sprintf("message exceeds %d characters", [input.limits.max_message_chars])
}

deny contains msg if {
	input.has_image
	input.limits.max_image_bytes > 0
	input.image_bytes > input.limits.max_image_bytes
	msg := sprintf("image exceeds %d bytes", [input.limits.max_image_bytes])
}
`
