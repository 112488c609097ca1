// Package auth — идентификация операторов гостевой книги: вход по паролю и проверка JWT.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pribylovaa/wedding-guestbook/internal/config"
	"github.com/pribylovaa/wedding-guestbook/internal/models"
)

var (
	// ErrInvalidToken — подпись, алгоритм, issuer/audience или формат токена неверны.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired — срок действия токена истёк.
	ErrTokenExpired = errors.New("token expired")
	// ErrInvalidCredentials — неверная пара логин/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type operatorClaims struct {
	Name         string   `json:"name"`
	Capabilities []string `json:"caps"`
	jwt.RegisteredClaims
}

// TokenManager выпускает и проверяет HS256-токены операторов.
type TokenManager struct {
	secret   []byte
	issuer   string
	audience []string
	ttl      time.Duration
	now      func() time.Time
}

// NewTokenManager создаёт менеджер по секции auth конфигурации.
func NewTokenManager(cfg config.AuthConfig) *TokenManager {
	return &TokenManager{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TokenTTL,
		now:      time.Now,
	}
}

// Issue подписывает токен оператора; возвращает токен и момент истечения.
func (m *TokenManager) Issue(op models.Operator) (string, time.Time, error) {
	const fn = "auth.TokenManager.Issue"

	now := m.now().UTC()
	exp := now.Add(m.ttl)

	claims := operatorClaims{
		Name:         op.Name,
		Capabilities: op.Capabilities,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			Subject:   op.ID,
			Audience:  jwt.ClaimStrings(m.audience),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", fn, err)
	}

	return signed, exp, nil
}

// Verify проверяет токен и восстанавливает оператора из claims.
func (m *TokenManager) Verify(tokenStr string) (*models.Operator, error) {
	const fn = "auth.TokenManager.Verify"

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(5 * time.Second),
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	}
	if len(m.audience) > 0 {
		opts = append(opts, jwt.WithAudience(m.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &operatorClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, ErrInvalidToken
			}
			return m.secret, nil
		},
		opts...,
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s: %w", fn, ErrTokenExpired)
		}
		return nil, fmt.Errorf("%s: %w", fn, ErrInvalidToken)
	}

	claims, ok := token.Claims.(*operatorClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%s: %w", fn, ErrInvalidToken)
	}

	return &models.Operator{
		ID:           claims.Subject,
		Name:         claims.Name,
		Capabilities: claims.Capabilities,
	}, nil
}
