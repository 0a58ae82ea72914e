package driven

import (
	"context"

	"go.uber.org/zap"
)

// Answerer produces the answer a check evaluates.
type Answerer interface {
	Answer(ctx context.Context, log *zap.Logger, question string) (string, error)
}

// Evaluator scores semantic agreement between a reference and an actual answer.
// Scores are in [0, 1].
type Evaluator interface {
	EvaluateSemantic(ctx context.Context, log *zap.Logger, reference, actual string) (float64, error)
}
