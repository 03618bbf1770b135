package domain

import "context"

type suppressRetryKey struct{}

// SuppressRetryEnqueue marks ctx so a failing Attribute call does not write
// a fresh retry record. The retry driver uses this: the record being driven
// already carries the attempt's inputs and will hold its updated error text.
func SuppressRetryEnqueue(ctx context.Context) context.Context {
	return context.WithValue(ctx, suppressRetryKey{}, true)
}

func RetryEnqueueSuppressed(ctx context.Context) bool {
	suppressed, _ := ctx.Value(suppressRetryKey{}).(bool)
	return suppressed
}
