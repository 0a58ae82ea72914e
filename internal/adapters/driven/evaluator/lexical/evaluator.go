// Package lexical scores an answer against a reference by token overlap.
package lexical

import (
	"context"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Evaluator implements the interface.
var _ driven.Evaluator = (*Evaluator)(nil)

// Evaluator computes the F1 of the token multisets of two texts.
type Evaluator struct{}

// NewEvaluator creates a lexical evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// EvaluateSemantic returns a score in [0, 1]. Two empty texts score 1.
func (e *Evaluator) EvaluateSemantic(_ context.Context, log *zap.Logger, reference, actual string) (float64, error) {
	ref := Tokenize(reference)
	got := Tokenize(actual)
	score := F1(ref, got)
	if log != nil {
		log.Debug("lexical score", zap.Int("reference_tokens", len(ref)), zap.Int("answer_tokens", len(got)), zap.Float64("f1", score))
	}
	return score, nil
}

// Tokenize lowercases text and splits it on anything but letters and digits.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// F1 is the harmonic mean of token precision and recall.
func F1(reference, actual []string) float64 {
	if len(reference) == 0 && len(actual) == 0 {
		return 1
	}
	if len(reference) == 0 || len(actual) == 0 {
		return 0
	}

	counts := make(map[string]int, len(reference))
	for _, tok := range reference {
		counts[tok]++
	}
	common := 0
	for _, tok := range actual {
		if counts[tok] > 0 {
			counts[tok]--
			common++
		}
	}
	if common == 0 {
		return 0
	}

	precision := float64(common) / float64(len(actual))
	recall := float64(common) / float64(len(reference))
	return 2 * precision * recall / (precision + recall)
}
