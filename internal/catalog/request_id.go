package catalog

import "context"

type requestIDKey struct{}

// WithRequestID attaches id to ctx; the client forwards it upstream as
// X-Request-Id.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
