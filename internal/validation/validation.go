// Package validation проверяет входящие сообщения гостевой книги до записи в хранилище.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pribylovaa/wedding-guestbook/internal/config"
)

// Имена полей совпадают с JSON-контрактом публичного API.
const (
	FieldGuestName  = "guestName"
	FieldGuestEmail = "guestEmail"
	FieldMessage    = "message"
)

// Коды нарушенных правил.
const (
	CodeRequired = "required"
	CodeEmail    = "email"
	CodeMax      = "max"
)

// Input — сырой ввод гостя.
type Input struct {
	GuestName  string
	GuestEmail string
	Message    string
}

// FieldError — одно нарушенное правило одного поля.
type FieldError struct {
	Field   string
	Code    string
	Message string
}

// Error перечисляет все нарушенные поля, а не только первое.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Code)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Validator — чистая функция от ввода и лимитов; безопасен для конкурентного использования.
type Validator struct {
	v          *validator.Validate
	nameMax    int
	messageMax int
}

// New создаёт валидатор с явными лимитами из конфигурации.
func New(limits config.LimitsConfig) *Validator {
	return &Validator{
		v:          validator.New(),
		nameMax:    limits.NameMaxLen,
		messageMax: limits.MessageMaxLen,
	}
}

// Validate нормализует ввод (TrimSpace) и проверяет его.
// Возвращает нормализованный Input или *Error со списком всех нарушений.
func (val *Validator) Validate(in Input) (Input, error) {
	in.GuestName = strings.TrimSpace(in.GuestName)
	in.GuestEmail = strings.TrimSpace(in.GuestEmail)
	in.Message = strings.TrimSpace(in.Message)

	var fields []FieldError

	// validator считает длину строки в рунах.
	fields = val.check(fields, FieldGuestName, in.GuestName, fmt.Sprintf("required,max=%d", val.nameMax))
	fields = val.check(fields, FieldGuestEmail, in.GuestEmail, "omitempty,email")
	fields = val.check(fields, FieldMessage, in.Message, fmt.Sprintf("required,max=%d", val.messageMax))

	if len(fields) > 0 {
		return Input{}, &Error{Fields: fields}
	}

	return in, nil
}

func (val *Validator) check(acc []FieldError, field, value, rules string) []FieldError {
	err := val.v.Var(value, rules)
	if err == nil {
		return acc
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return append(acc, FieldError{Field: field, Code: "invalid", Message: field + " is invalid"})
	}

	for _, fe := range verrs {
		acc = append(acc, FieldError{
			Field:   field,
			Code:    fe.Tag(),
			Message: describe(field, fe),
		})
	}

	return acc
}

func describe(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case CodeRequired:
		return field + " is required"
	case CodeEmail:
		return field + " must be a valid email address"
	case CodeMax:
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return field + " is invalid"
	}
}
