package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/pribylovaa/wedding-guestbook/internal/config"
	"github.com/stretchr/testify/require"
)

func newValidator() *Validator {
	return New(config.LimitsConfig{NameMaxLen: 10, MessageMaxLen: 20})
}

func fieldCodes(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *Error
	require.True(t, errors.As(err, &verr), "want *validation.Error, got %T", err)
	out := map[string]string{}
	for _, f := range verr.Fields {
		out[f.Field] = f.Code
		require.NotEmpty(t, f.Message)
	}
	return out
}

func TestValidate_OK_Normalizes(t *testing.T) {
	got, err := newValidator().Validate(Input{
		GuestName:  "  Anna ",
		GuestEmail: " anna@example.com ",
		Message:    "\tCongrats!\n",
	})
	require.NoError(t, err)
	require.Equal(t, Input{GuestName: "Anna", GuestEmail: "anna@example.com", Message: "Congrats!"}, got)
}

func TestValidate_EmailOptional(t *testing.T) {
	_, err := newValidator().Validate(Input{GuestName: "Anna", Message: "hi"})
	require.NoError(t, err)
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want map[string]string
	}{
		{
			name: "empty_name",
			in:   Input{GuestName: "", Message: "hi"},
			want: map[string]string{FieldGuestName: CodeRequired},
		},
		{
			name: "whitespace_name",
			in:   Input{GuestName: "   ", Message: "hi"},
			want: map[string]string{FieldGuestName: CodeRequired},
		},
		{
			name: "bad_email",
			in:   Input{GuestName: "Anna", GuestEmail: "not-an-email", Message: "hi"},
			want: map[string]string{FieldGuestEmail: CodeEmail},
		},
		{
			name: "message_too_long",
			in:   Input{GuestName: "Anna", Message: strings.Repeat("a", 21)},
			want: map[string]string{FieldMessage: CodeMax},
		},
		{
			name: "all_fields",
			in:   Input{GuestName: " ", GuestEmail: "x@", Message: ""},
			want: map[string]string{FieldGuestName: CodeRequired, FieldGuestEmail: CodeEmail, FieldMessage: CodeRequired},
		},
		{
			name: "name_too_long",
			in:   Input{GuestName: strings.Repeat("b", 11), Message: "hi"},
			want: map[string]string{FieldGuestName: CodeMax},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newValidator().Validate(tt.in)
			require.Error(t, err)
			require.Equal(t, tt.want, fieldCodes(t, err))
		})
	}
}

// Длина считается в символах, а не в байтах.
func TestValidate_LengthInRunes(t *testing.T) {
	v := newValidator()

	_, err := v.Validate(Input{GuestName: "Анна", Message: strings.Repeat("я", 20)})
	require.NoError(t, err)

	_, err = v.Validate(Input{GuestName: "Анна", Message: strings.Repeat("я", 21)})
	require.Equal(t, map[string]string{FieldMessage: CodeMax}, fieldCodes(t, err))
}

func TestError_Message(t *testing.T) {
	err := &Error{Fields: []FieldError{{Field: "guestName", Code: "required"}, {Field: "message", Code: "max"}}}
	require.Equal(t, "validation failed: guestName: required, message: max", err.Error())
}
