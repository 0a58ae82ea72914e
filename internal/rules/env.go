package rules

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

const metaPrefix = "meta."

var knownFields = map[string]bool{
	"query":     true,
	"text":      true,
	"url":       true,
	"source":    true,
	"type":      true,
	"question":  true,
	"answer":    true,
	"reference": true,
}

func validField(name string) bool {
	if strings.HasPrefix(name, metaPrefix) {
		return len(name) > len(metaPrefix)
	}
	return knownFields[name]
}

// DocumentEnv exposes a retrieved document and its query to rules.
type DocumentEnv struct {
	Query string
	Doc   *domain.Document
}

// Field implements Env. A missing metadata key is an error.
func (e DocumentEnv) Field(name string) (string, error) {
	switch name {
	case "query":
		return e.Query, nil
	case "text":
		return e.Doc.Text, nil
	case "url":
		return e.Doc.URLOrSource(), nil
	case "source":
		return e.Doc.Source(), nil
	case "type":
		return e.Doc.Type(), nil
	}
	if key, ok := strings.CutPrefix(name, metaPrefix); ok {
		v, ok := e.Doc.Metadata[key]
		if !ok || v == nil {
			return "", fmt.Errorf("%w: metadata key %q not found", domain.ErrRuleEvaluation, key)
		}
		return fmt.Sprint(v), nil
	}
	return "", fmt.Errorf("%w: field %q not available for documents", domain.ErrRuleEvaluation, name)
}

// MapEnv exposes a fixed set of string fields, as used by check expectations.
type MapEnv map[string]string

// Field implements Env.
func (e MapEnv) Field(name string) (string, error) {
	v, ok := e[name]
	if !ok {
		return "", fmt.Errorf("%w: field %q not available", domain.ErrRuleEvaluation, name)
	}
	return v, nil
}
