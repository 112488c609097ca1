package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/wedding-guestbook/internal/auth"
	"github.com/pribylovaa/wedding-guestbook/internal/config"
	gbhttp "github.com/pribylovaa/wedding-guestbook/internal/http"
	"github.com/pribylovaa/wedding-guestbook/internal/http/handlers"
	"github.com/pribylovaa/wedding-guestbook/internal/models"
	"github.com/pribylovaa/wedding-guestbook/internal/service"
	"github.com/pribylovaa/wedding-guestbook/internal/storage/memory"
)

func TestRun_HashPassword(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"hash-password", "s3cret"}, &out))

	hash := strings.TrimSpace(out.String())
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}

func TestRun_UnknownCommand(t *testing.T) {
	require.Error(t, run([]string{"-state", t.TempDir(), "dance"}, &bytes.Buffer{}))
	require.Error(t, run(nil, &bytes.Buffer{}))
}

func TestRun_SubmitLikeList(t *testing.T) {
	svc := service.New(memory.New(), config.LimitsConfig{Default: 20, Max: 100, MessageMaxLen: 1000, NameMaxLen: 100, BulkMax: 10})
	tokens := auth.NewTokenManager(config.AuthConfig{JWTSecret: "x", Issuer: "gb", TokenTTL: time.Hour})
	srv := httptest.NewServer(gbhttp.NewRouter(handlers.New(svc, auth.NewAuthenticator(nil, tokens)), gbhttp.Options{}))
	t.Cleanup(srv.Close)

	state := t.TempDir()
	global := []string{"-server", srv.URL, "-state", state}

	var out bytes.Buffer
	require.NoError(t, run(append(global, "submit", "-name", "Anna", "-message", "Congrats!"), &out))
	require.Contains(t, out.String(), "awaiting moderation")

	id := strings.Fields(out.String())[1]
	op := &models.Operator{ID: "op-1", Capabilities: []string{models.CapabilityModerate}}
	require.NoError(t, svc.Moderate(context.Background(), service.ModerateInput{Operator: op, ID: id, Action: models.ActionApprove}))

	out.Reset()
	require.NoError(t, run(append(global, "like", id), &out))
	require.Contains(t, out.String(), "1 likes")

	out.Reset()
	require.NoError(t, run(append(global, "list", "-all"), &out))
	require.Contains(t, out.String(), "Anna")
	require.Contains(t, out.String(), "♥ 1")

	// Повторный запуск использует тот же client id.
	b, err := os.ReadFile(filepath.Join(state, "client-id"))
	require.NoError(t, err)
	require.NotEmpty(t, strings.TrimSpace(string(b)))

	out.Reset()
	require.NoError(t, run(append(global, "unlike", id), &out))
	require.Contains(t, out.String(), "0 likes")
}

func TestRun_SubmitValidationPrintsFields(t *testing.T) {
	svc := service.New(memory.New(), config.LimitsConfig{Default: 20, Max: 100, MessageMaxLen: 1000, NameMaxLen: 100, BulkMax: 10})
	srv := httptest.NewServer(gbhttp.NewRouter(handlers.New(svc, nil), gbhttp.Options{}))
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	err := run([]string{"-server", srv.URL, "-state", t.TempDir(), "submit", "-message", "hi"}, &out)
	require.Error(t, err)
	require.Contains(t, out.String(), "guestName")
}
