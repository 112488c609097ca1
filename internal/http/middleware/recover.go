package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	apierrors "github.com/pribylovaa/wedding-guestbook/internal/errors"
	logctx "github.com/pribylovaa/wedding-guestbook/pkg/log"
)

// Recover превращает panic обработчика в 500/internal с единым телом ошибки.
// Причина и стек уходят только в лог. Если ответ уже начат, тело не дописывается.
// http.ErrAbortHandler пробрасывается дальше: им net/http обрывает соединение.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := newStatusWriter(w)

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}

				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				logctx.From(r.Context()).LogAttrs(r.Context(), slog.LevelError, "panic recovered",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("reason", rec),
					slog.String("stack", string(debug.Stack())),
				)

				if !sw.wrote() {
					apierrors.WriteError(sw, r, errors.New("panic"))
				}
			}()

			next.ServeHTTP(sw, r)
		})
	}
}
