// Package policy admits or rejects session updates with an OPA policy.
package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/DeweyHur/online-trpg/internal/domain"
)

// Decision is the outcome of an update check.
type Decision struct {
	Allow   bool
	Reasons []string
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.session_policy.decision"),
		rego.Module("session_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// UpdateInput builds the policy input for a write of fields that would
// leave the session as s.
func UpdateInput(fields []string, s *domain.Session) (map[string]any, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if fields == nil {
		fields = []string{}
	}
	return map[string]any{"fields": fields, "session": doc}, nil
}

// Evaluate checks an update. The policy must define a decision object of
// the form {"allow": bool, "reasons": [string]}.
func (e *Engine) Evaluate(ctx context.Context, input any) (Decision, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Allow: true}, nil
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return Decision{}, fmt.Errorf("unexpected policy result %T", results[0].Expressions[0].Value)
	}
	d := Decision{}
	d.Allow, _ = obj["allow"].(bool)
	if reasons, ok := obj["reasons"].([]any); ok {
		for _, r := range reasons {
			if s, ok := r.(string); ok {
				d.Reasons = append(d.Reasons, s)
			}
		}
	}
	sort.Strings(d.Reasons)
	return d, nil
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package session_policy

default decision := {"allow": true, "reasons": []}

decision := {"allow": false, "reasons": sort(deny)} if count(deny) > 0

# The turn must belong to someone in the turn order.
deny contains msg if {
	turn := input.session.current_turn
	turn != null
	not turn in input.session.turn_order
	msg := sprintf("current_turn %q is not in turn_order", [turn])
}

deny contains msg if {
	some i, j
	input.session.turn_order[i] == input.session.turn_order[j]
	i < j
	msg := sprintf("turn_order lists %q twice", [input.session.turn_order[i]])
}

deny contains msg if {
	some entry in input.session.chat_history
	not entry.role in {"user", "model"}
	msg := sprintf("chat message role %q is not allowed", [entry.role])
}
`
