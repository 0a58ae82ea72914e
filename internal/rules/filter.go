package rules

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Filter applies rules to retrieved documents.
type Filter struct {
	rules     []Rule
	onFailure func(rule string)
}

// FilterOption configures a Filter.
type FilterOption func(*Filter)

// WithFailureHook is called with the rule name whenever a rule errors.
func WithFailureHook(fn func(rule string)) FilterOption {
	return func(f *Filter) {
		f.onFailure = fn
	}
}

// NewFilter creates a filter over parsed rules.
func NewFilter(rules []Rule, opts ...FilterOption) *Filter {
	f := &Filter{rules: rules}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FromParameters parses the rule list under RulesKey.
// A document without rules yields an empty filter that keeps everything.
func FromParameters(params *domain.Parameters, opts ...FilterOption) (*Filter, error) {
	var raw []map[string]any
	if params != nil {
		raw = params.List(RulesKey)
	}
	parsed, err := ParseRules(raw)
	if err != nil {
		return nil, err
	}
	return NewFilter(parsed, opts...), nil
}

// Rules returns the parsed rules.
func (f *Filter) Rules() []Rule {
	return f.rules
}

// Apply returns the documents that pass every rule, in input order.
func (f *Filter) Apply(log *zap.Logger, query string, docs []domain.Document) []domain.Document {
	if len(f.rules) == 0 {
		return docs
	}
	log = logger.OrNop(log)
	logger.Section(log, "Post-retrieval rules")

	out := make([]domain.Document, 0, len(docs))
	for i := range docs {
		env := DocumentEnv{Query: query, Doc: &docs[i]}
		if rule, ok := f.passes(log, env); !ok {
			log.Debug(fmt.Sprintf("dropped %s by rule %s", docs[i].URLOrSource(), rule))
			continue
		}
		out = append(out, docs[i])
	}
	if dropped := len(docs) - len(out); dropped > 0 {
		log.Info(fmt.Sprintf("rules dropped %d of %d documents", dropped, len(docs)))
	}
	return out
}

// passes evaluates rules in order and reports the first rule that failed.
// A rule that errors is logged and treated as passing.
func (f *Filter) passes(log *zap.Logger, env Env) (string, bool) {
	for _, r := range f.rules {
		ok, err := r.Check(env)
		if err != nil {
			log.Warn("rule evaluation failed, keeping document",
				zap.String("rule", r.Name), zap.Error(err))
			if f.onFailure != nil {
				f.onFailure(r.Name)
			}
			continue
		}
		if !ok {
			return r.Name, false
		}
	}
	return "", true
}
