package llm

import "context"

type contextKey struct{}

// Purposes label requests in the LLM request log.
const (
	PurposeQuizGeneration = "quiz-generation"
	PurposeUnknown        = "unknown"
)

// WithPurpose labels requests made with ctx.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, contextKey{}, purpose)
}

// PurposeFrom returns the label set by WithPurpose.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(contextKey{}).(string); ok {
		return v
	}
	return PurposeUnknown
}
