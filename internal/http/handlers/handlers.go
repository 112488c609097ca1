// handlers — REST-обработчики guestbook-service: публичная гостевая книга и админка операторов.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/pribylovaa/wedding-guestbook/internal/auth"
	"github.com/pribylovaa/wedding-guestbook/internal/service"
)

// maxBodyBytes — ограничение тела запроса (сообщение до тысяч символов с запасом на JSON).
const maxBodyBytes = 64 << 10

// Handlers агрегирует зависимости (сервис и аутентификатор операторов).
type Handlers struct {
	Service *service.Service
	Auth    *auth.Authenticator
}

func New(svc *service.Service, a *auth.Authenticator) *Handlers {
	return &Handlers{Service: svc, Auth: a}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля и ограничиваем размер.
func decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

// decodeOptional — как decodeStrict, но пустое тело допустимо.
func decodeOptional(w http.ResponseWriter, r *http.Request, value any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}

	if err := decodeStrict(w, r, value); err != nil && err != io.EOF {
		return err
	}

	return nil
}
