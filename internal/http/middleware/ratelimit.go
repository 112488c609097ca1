package middleware

import (
	"net"
	"net/http"

	apierrors "github.com/pribylovaa/wedding-guestbook/internal/errors"
	"github.com/pribylovaa/wedding-guestbook/internal/metrics"
	"github.com/pribylovaa/wedding-guestbook/internal/ratelimit"
	logctx "github.com/pribylovaa/wedding-guestbook/pkg/log"
)

// RateLimit ограничивает частоту запросов по IP клиента для класса маршрутов policy.
// Превышение лимита — 429. Если лимитер недоступен, запрос не блокируется:
// пишем предупреждение и пропускаем.
func RateLimit(policy string, l ratelimit.Limiter, m *metrics.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := l.Allow(r.Context(), ClientIP(r))
			if err != nil {
				logctx.From(r.Context()).Warn("rate limiter unavailable, allowing request",
					"policy", policy, "err", err)
				next.ServeHTTP(w, r)
				return
			}

			if !ok {
				m.RateLimited(policy)
				apierrors.WriteError(w, r, apierrors.ErrRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP — хост из RemoteAddr. За прокси RemoteAddr заранее переписывает chi RealIP.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
