package auth

import (
	"context"

	"github.com/pribylovaa/wedding-guestbook/internal/models"
)

type operatorKey struct{}

// WithOperator кладёт аутентифицированного оператора в контекст запроса.
func WithOperator(ctx context.Context, op *models.Operator) context.Context {
	return context.WithValue(ctx, operatorKey{}, op)
}

// OperatorFrom достаёт оператора из контекста; nil — анонимный запрос.
func OperatorFrom(ctx context.Context) *models.Operator {
	op, _ := ctx.Value(operatorKey{}).(*models.Operator)
	return op
}
