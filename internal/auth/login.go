package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pribylovaa/wedding-guestbook/internal/config"
	"github.com/pribylovaa/wedding-guestbook/internal/models"
	"github.com/pribylovaa/wedding-guestbook/pkg/log"
	"golang.org/x/crypto/bcrypt"
)

// dummyHash — хеш для сравнения при неизвестном логине.
var dummyHash = []byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3ZUgWCs.C9NNf0lBdl5yA9K")

// Authenticator — вход операторов, заданных в конфигурации (bcrypt-хэши паролей).
type Authenticator struct {
	operators map[string]config.Operator
	tokens    *TokenManager
}

// NewAuthenticator индексирует операторов по username (без учёта регистра).
func NewAuthenticator(ops []config.Operator, tokens *TokenManager) *Authenticator {
	idx := make(map[string]config.Operator, len(ops))
	for _, op := range ops {
		idx[strings.ToLower(strings.TrimSpace(op.Username))] = op
	}

	return &Authenticator{operators: idx, tokens: tokens}
}

// Login проверяет пару логин/пароль и выпускает токен.
// Любая неудача — ErrInvalidCredentials без уточнения причины.
func (a *Authenticator) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	const op = "auth.Authenticator.Login"

	username = strings.ToLower(strings.TrimSpace(username))
	lg := log.From(ctx).With("op", op, "username", username)

	acc, ok := a.operators[username]
	if !ok || password == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		lg.Warn("login failed")
		return "", time.Time{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		lg.Warn("login failed")
		return "", time.Time{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, exp, err := a.tokens.Issue(models.Operator{
		ID:           acc.ID,
		Name:         acc.Name,
		Capabilities: acc.Capabilities,
	})
	if err != nil {
		lg.Error("token sign failed", "err", err)
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("operator logged in", "operator_id", acc.ID)

	return token, exp, nil
}

// HashPassword — bcrypt-хэш для секции auth.operators (используется CLI).
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
