package rules

import (
	"fmt"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Expectation is one named assertion over a check's answer.
type Expectation struct {
	Name string
	Node Node
}

// ParseExpectations parses check expect entries. An entry is either a bare
// node or {name, require}.
func ParseExpectations(raw []map[string]any) ([]Expectation, error) {
	out := make([]Expectation, 0, len(raw))
	for i, m := range raw {
		name := fmt.Sprintf("expect[%d]", i)
		body := any(m)
		if req, ok := m["require"]; ok {
			if n, _ := m["name"].(string); n != "" {
				name = n
			}
			body = req
		}
		node, err := ParseNode(body)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		out = append(out, Expectation{Name: name, Node: node})
	}
	return out, nil
}

// Score returns the fraction of expectations that hold, or 0 with none.
// Failing expectation names are returned for the check log. An expectation
// that errors counts as failed.
func Score(expectations []Expectation, env Env) (float64, []string) {
	if len(expectations) == 0 {
		return 0, nil
	}
	passed := 0
	var failures []string
	for _, e := range expectations {
		ok, err := e.Node.Eval(env)
		switch {
		case err != nil:
			failures = append(failures, fmt.Sprintf("%s: %v", e.Name, err))
		case !ok:
			failures = append(failures, fmt.Sprintf("%s: %s is false", e.Name, e.Node))
		default:
			passed++
		}
	}
	return float64(passed) / float64(len(expectations)), failures
}

// ScoreCheck parses the check's expectations and scores answer against them.
func ScoreCheck(check domain.CheckDef, answer string) (float64, []string, error) {
	exps, err := ParseExpectations(check.Expect)
	if err != nil {
		return 0, nil, err
	}
	score, failures := Score(exps, MapEnv{
		"question":  check.Question,
		"answer":    answer,
		"reference": check.ReferenceAnswer,
	})
	return score, failures, nil
}
