package core

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"
)

//go:embed policies/gate.rego
var gatePolicy string

// Decision is the outcome of the gating policy for one request.
type Decision struct {
	Allow  bool
	Reason string
}

// Policy evaluates the generation gating rules.
type Policy struct {
	query     rego.PreparedEvalQuery
	freeLimit int
}

func NewPolicy(ctx context.Context, freeLimit int) (*Policy, error) {
	query, err := rego.New(
		rego.Query("data.multimind.gate.decision"),
		rego.Module("gate.rego", gatePolicy),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare gating policy: %w", err)
	}
	return &Policy{query: query, freeLimit: freeLimit}, nil
}

func (p *Policy) Evaluate(ctx context.Context, kind Kind, ent Entitlement) (Decision, error) {
	input := map[string]interface{}{
		"kind":       string(kind),
		"plan":       string(ent.Plan),
		"free_usage": ent.FreeUsage,
		"free_limit": p.freeLimit,
	}

	rs, err := p.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate gating policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return Decision{}, fmt.Errorf("gating policy returned no decision")
	}

	obj, ok := rs[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Decision{}, fmt.Errorf("gating policy returned %T", rs[0].Expressions[0].Value)
	}
	allow, _ := obj["allow"].(bool)
	reason, _ := obj["reason"].(string)
	return Decision{Allow: allow, Reason: reason}, nil
}
