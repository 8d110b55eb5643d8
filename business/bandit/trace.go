package bandit

import "context"

type ctxKey string

const TraceIDKey ctxKey = "trace_id"

// WithTraceID tags ctx so oracles can label their logs with the play they
// belong to.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TraceIDKey, id)
}

func TraceIDFromContext(ctx context.Context) string {
	if v := ctx.Value(TraceIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
