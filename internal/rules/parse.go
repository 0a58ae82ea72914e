package rules

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// RulesKey is the parameters path of the rule list.
const RulesKey = "postRetrievalProcessor.rules"

// Rule drops documents for which When holds but Require does not.
type Rule struct {
	Name    string
	When    Node
	Require Node
}

// Check reports whether the rule passes for env.
func (r *Rule) Check(env Env) (bool, error) {
	if r.When != nil {
		applies, err := r.When.Eval(env)
		if err != nil {
			return false, err
		}
		if !applies {
			return true, nil
		}
	}
	return r.Require.Eval(env)
}

// ParseRules parses a rule list. Each entry needs a require node.
func ParseRules(raw []map[string]any) ([]Rule, error) {
	out := make([]Rule, 0, len(raw))
	for i, m := range raw {
		name, _ := m["name"].(string)
		if name == "" {
			name = fmt.Sprintf("rule[%d]", i)
		}

		reqRaw, ok := m["require"]
		if !ok {
			return nil, fmt.Errorf("%w: %s: missing require", domain.ErrConfig, name)
		}
		req, err := ParseNode(reqRaw)
		if err != nil {
			return nil, fmt.Errorf("parse %s require: %w", name, err)
		}

		rule := Rule{Name: name, Require: req}
		if whenRaw, ok := m["when"]; ok && whenRaw != nil {
			when, err := ParseNode(whenRaw)
			if err != nil {
				return nil, fmt.Errorf("parse %s when: %w", name, err)
			}
			rule.When = when
		}
		out = append(out, rule)
	}
	return out, nil
}

// ParseNode parses one expression. It must be a map with exactly one operator key.
//
//nolint:gocognit // one branch per operator
func ParseNode(raw any) (Node, error) {
	m, ok := toMap(raw)
	if !ok {
		return nil, fmt.Errorf("%w: rule node must be a map, got %T", domain.ErrConfig, raw)
	}
	if len(m) != 1 {
		return nil, fmt.Errorf("%w: rule node needs exactly one operator, got %v", domain.ErrConfig, sortedKeys(m))
	}

	for op, arg := range m {
		switch op {
		case "contains", "equals":
			args, err := leafArgs(op, arg, "value")
			if err != nil {
				return nil, err
			}
			if op == "contains" {
				return &Contains{Field: args.field, Value: args.value, IgnoreCase: args.ignoreCase}, nil
			}
			return &Equals{Field: args.field, Value: args.value, IgnoreCase: args.ignoreCase}, nil

		case "regex":
			args, err := leafArgs(op, arg, "pattern")
			if err != nil {
				return nil, err
			}
			pattern := args.value
			if args.ignoreCase {
				pattern = "(?i)" + pattern
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("%w: regex %q: %v", domain.ErrConfig, args.value, err)
			}
			return &Regex{Field: args.field, Pattern: re}, nil

		case "all", "any":
			list, ok := arg.([]any)
			if !ok || len(list) == 0 {
				return nil, fmt.Errorf("%w: %s needs a non-empty list", domain.ErrConfig, op)
			}
			nodes := make([]Node, 0, len(list))
			for _, item := range list {
				n, err := ParseNode(item)
				if err != nil {
					return nil, err
				}
				nodes = append(nodes, n)
			}
			if op == "all" {
				return &All{Nodes: nodes}, nil
			}
			return &Any{Nodes: nodes}, nil

		case "not":
			n, err := ParseNode(arg)
			if err != nil {
				return nil, err
			}
			return &Not{Node: n}, nil

		default:
			return nil, fmt.Errorf("%w: unknown rule operator %q", domain.ErrConfig, op)
		}
	}
	return nil, fmt.Errorf("%w: empty rule node", domain.ErrConfig)
}

type leaf struct {
	field      string
	value      string
	ignoreCase bool
}

func leafArgs(op string, raw any, valueKey string) (leaf, error) {
	m, ok := toMap(raw)
	if !ok {
		return leaf{}, fmt.Errorf("%w: %s arguments must be a map", domain.ErrConfig, op)
	}
	field, _ := m["field"].(string)
	if field == "" {
		return leaf{}, fmt.Errorf("%w: %s needs a field", domain.ErrConfig, op)
	}
	if !validField(field) {
		return leaf{}, fmt.Errorf("%w: %s: unknown field %q", domain.ErrConfig, op, field)
	}
	v, ok := m[valueKey]
	if !ok {
		return leaf{}, fmt.Errorf("%w: %s needs %s", domain.ErrConfig, op, valueKey)
	}
	ic, _ := m["ignoreCase"].(bool)
	return leaf{field: field, value: fmt.Sprint(v), ignoreCase: ic}, nil
}

func toMap(raw any) (map[string]any, bool) {
	switch v := raw.(type) {
	case map[string]any:
		return v, true
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
