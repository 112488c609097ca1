// redact маскирует персональные данные гостей перед записью в логи.
package redact

import "strings"

// Email оставляет первые две руны локальной части и домен: "anna@x.ru" -> "an***@x.ru".
// Строка без ровно одного '@' целиком заменяется на "***".
func Email(s string) string {
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return "***"
	}

	local, domain := []rune(parts[0]), parts[1]
	if len(local) > 2 {
		return string(local[:2]) + "***@" + domain
	}

	return "***@" + domain
}

// Name оставляет только первую руну имени гостя.
func Name(s string) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) == 0 {
		return ""
	}

	return string(r[0]) + "***"
}

// Token — заглушка вместо значения bearer-токена в логах.
func Token() string { return "[REDACTED_TOKEN]" }
