// Package rules implements the declarative post-retrieval filter.
//
// A rule set is parsed from the parameters document:
//
//	postRetrievalProcessor:
//	  rules:
//	    - name: upgrade-notes-only-for-upgrade-questions
//	      when:
//	        contains: {field: url, value: /whats-new/}
//	      require:
//	        regex: {field: query, pattern: "(?i)upgrade|migrat"}
//
// Leaves are contains, regex and equals. Combinators are all, any and not.
package rules

import (
	"fmt"
	"regexp"
	"strings"
)

// Env resolves field names to values.
type Env interface {
	Field(name string) (string, error)
}

// Node is one boolean expression of the rule AST.
type Node interface {
	Eval(env Env) (bool, error)
	String() string
}

// Contains is true when the field contains Value.
type Contains struct {
	Field      string
	Value      string
	IgnoreCase bool
}

// Eval implements Node.
func (n *Contains) Eval(env Env) (bool, error) {
	v, err := env.Field(n.Field)
	if err != nil {
		return false, err
	}
	if n.IgnoreCase {
		return strings.Contains(strings.ToLower(v), strings.ToLower(n.Value)), nil
	}
	return strings.Contains(v, n.Value), nil
}

func (n *Contains) String() string {
	return fmt.Sprintf("contains(%s, %q)", n.Field, n.Value)
}

// Equals is true when the field equals Value.
type Equals struct {
	Field      string
	Value      string
	IgnoreCase bool
}

// Eval implements Node.
func (n *Equals) Eval(env Env) (bool, error) {
	v, err := env.Field(n.Field)
	if err != nil {
		return false, err
	}
	if n.IgnoreCase {
		return strings.EqualFold(v, n.Value), nil
	}
	return v == n.Value, nil
}

func (n *Equals) String() string {
	return fmt.Sprintf("equals(%s, %q)", n.Field, n.Value)
}

// Regex is true when the pattern matches anywhere in the field.
type Regex struct {
	Field   string
	Pattern *regexp.Regexp
}

// Eval implements Node.
func (n *Regex) Eval(env Env) (bool, error) {
	v, err := env.Field(n.Field)
	if err != nil {
		return false, err
	}
	return n.Pattern.MatchString(v), nil
}

func (n *Regex) String() string {
	return fmt.Sprintf("regex(%s, %q)", n.Field, n.Pattern.String())
}

// All is true when every child is true. Evaluation stops at the first false.
type All struct {
	Nodes []Node
}

// Eval implements Node.
func (n *All) Eval(env Env) (bool, error) {
	for _, c := range n.Nodes {
		ok, err := c.Eval(env)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (n *All) String() string { return "all(" + joinNodes(n.Nodes) + ")" }

// Any is true when some child is true. Evaluation stops at the first true.
type Any struct {
	Nodes []Node
}

// Eval implements Node.
func (n *Any) Eval(env Env) (bool, error) {
	for _, c := range n.Nodes {
		ok, err := c.Eval(env)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (n *Any) String() string { return "any(" + joinNodes(n.Nodes) + ")" }

// Not negates its child.
type Not struct {
	Node Node
}

// Eval implements Node.
func (n *Not) Eval(env Env) (bool, error) {
	ok, err := n.Node.Eval(env)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func (n *Not) String() string { return "not(" + n.Node.String() + ")" }

func joinNodes(nodes []Node) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, ", ")
}
