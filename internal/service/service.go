// service содержит бизнес-логику гостевой книги: приём, модерация, лайки, выдача и статистика.
package service

import (
	"errors"
	"strings"
	"time"

	"github.com/pribylovaa/wedding-guestbook/internal/config"
	"github.com/pribylovaa/wedding-guestbook/internal/metrics"
	"github.com/pribylovaa/wedding-guestbook/internal/models"
	"github.com/pribylovaa/wedding-guestbook/internal/storage"
	"github.com/pribylovaa/wedding-guestbook/internal/validation"
)

var (
	// ErrNotFound — сообщение отсутствует (или недоступно для операции, как лайк неодобренного).
	ErrNotFound = errors.New("not found")
	// ErrInvalidCursor — битый/чужой page_token.
	ErrInvalidCursor = errors.New("invalid cursor")
	// ErrInvalidArgument — неверные входные параметры запроса к сервису.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrValidation — ввод гостя не прошёл проверку; подробности в *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthenticated — операция требует оператора, а его нет.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden — у оператора нет нужного права.
	ErrForbidden = errors.New("forbidden")
	// ErrInternal — внутренняя ошибка (сторадж/БД/контекст и т.д.).
	ErrInternal = errors.New("internal")
)

// ValidationError — отказ в приёме сообщения с перечнем всех нарушенных полей.
type ValidationError struct {
	Fields []validation.FieldError
}

func (e *ValidationError) Error() string {
	return (&validation.Error{Fields: e.Fields}).Error()
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Service — бизнес-логика guestbook-service.
type Service struct {
	storage   storage.Storage
	validator *validation.Validator
	limits    config.LimitsConfig
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Option — необязательная зависимость сервиса.
type Option func(*Service)

// WithMetrics подключает счётчики доменных событий.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock подменяет источник времени для меток модерации.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New создает новый экземпляр Service.
func New(st storage.Storage, limits config.LimitsConfig, opts ...Option) *Service {
	s := &Service{
		storage:   st,
		validator: validation.New(limits),
		limits:    limits,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// authorize — общая проверка оператора для операций модерации и админской выдачи.
func authorize(op *models.Operator) error {
	if op == nil {
		return ErrUnauthenticated
	}

	if !op.Can(models.CapabilityModerate) {
		return ErrForbidden
	}

	return nil
}

func operatorID(op *models.Operator) string {
	if op == nil {
		return ""
	}
	return op.ID
}

func normalizeID(id string) string {
	return strings.TrimSpace(id)
}
