// Package requestctx carries per-request metadata below the transport layer
// so stores and the audit sink can tag what they write.
package requestctx

import "context"

type ctxKey struct{}

type Meta struct {
	RequestID string
	ClientIP  string
}

func With(ctx context.Context, meta Meta) context.Context {
	return context.WithValue(ctx, ctxKey{}, meta)
}

func FromContext(ctx context.Context) Meta {
	meta, _ := ctx.Value(ctxKey{}).(Meta)
	return meta
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	meta := FromContext(ctx)
	meta.RequestID = requestID
	return With(ctx, meta)
}

func GetRequestID(ctx context.Context) string {
	return FromContext(ctx).RequestID
}

func GetClientIP(ctx context.Context) string {
	return FromContext(ctx).ClientIP
}
