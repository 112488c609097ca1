package redact

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestEmail_Table — маскирование e-mail гостя: валидные адреса, короткая локальная часть,
// невалидный формат и многобайтовые руны.
func TestEmail_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "ascii_local_gt_2", in: "anna@example.com", want: "an***@example.com"},
		{name: "ascii_local_len_1", in: "a@ex.com", want: "***@ex.com"},
		{name: "ascii_local_len_2", in: "ab@ex.com", want: "***@ex.com"},
		{name: "invalid_no_at", in: "no-at-here", want: "***"},
		{name: "invalid_multiple_at", in: "a@b@c", want: "***"},
		{name: "preserve_domain", in: "guest+rsvp@EXAMPLE.org", want: "gu***@EXAMPLE.org"},
		{name: "empty_string", in: "", want: "***"},
		{name: "unicode_local_gt_2_runes", in: "гость@свадьба.рф", want: "го***@свадьба.рф"},
		{name: "unicode_local_len_2_runes", in: "юз@домен", want: "***@домен"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Email(tt.in))
		})
	}
}

func TestName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "A***", Name("Amy"))
	require.Equal(t, "Я***", Name("  Яна "))
	require.Equal(t, "", Name("   "))
}

// TestToken — литерал для токенов неизменен.
func TestToken(t *testing.T) {
	t.Parallel()

	require.Equal(t, "[REDACTED_TOKEN]", Token())
}
