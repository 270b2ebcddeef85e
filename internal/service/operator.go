package service

import "context"

type operatorKey struct{}

// WithOperator attaches the authenticated operator id to ctx.
func WithOperator(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, operatorKey{}, id)
}

// OperatorFrom returns the operator id attached by WithOperator, or 0.
func OperatorFrom(ctx context.Context) int {
	id, _ := ctx.Value(operatorKey{}).(int)
	return id
}
