package middleware

import (
	"net/http"
	"strings"

	"github.com/pribylovaa/wedding-guestbook/internal/auth"
	apierrors "github.com/pribylovaa/wedding-guestbook/internal/errors"
	"github.com/pribylovaa/wedding-guestbook/internal/models"
	"github.com/pribylovaa/wedding-guestbook/internal/service"
	logctx "github.com/pribylovaa/wedding-guestbook/pkg/log"
	"github.com/pribylovaa/wedding-guestbook/pkg/redact"
)

// TokenVerifier проверяет bearer-токен оператора.
type TokenVerifier interface {
	Verify(token string) (*models.Operator, error)
}

// Auth извлекает Bearer-токен из Authorization и, если он валиден, кладёт оператора
// в контекст (auth.WithOperator). Отсутствующий или негодный токен запрос не
// обрывает: публичные маршруты обслуживаются анонимно, а RequireOperator отвечает 401.
func Auth(v TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			op, err := v.Verify(token)
			if err != nil {
				logctx.From(r.Context()).Debug("bearer token rejected", "token", redact.Token(), "err", err)
				next.ServeHTTP(w, r)
				return
			}

			ctx := auth.WithOperator(r.Context(), op)
			ctx = logctx.With(ctx, "operator_id", op.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireOperator пропускает дальше только запросы с аутентифицированным оператором.
// Проверка конкретных прав остаётся за сервисом (403).
func RequireOperator() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth.OperatorFrom(r.Context()) == nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="guestbook"`)
				apierrors.WriteError(w, r, service.ErrUnauthenticated)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "

	h := r.Header.Get("Authorization")
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}

	return strings.TrimSpace(h[len(prefix):])
}
