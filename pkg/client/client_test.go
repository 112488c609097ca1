package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/wedding-guestbook/internal/auth"
	"github.com/pribylovaa/wedding-guestbook/internal/config"
	gbhttp "github.com/pribylovaa/wedding-guestbook/internal/http"
	"github.com/pribylovaa/wedding-guestbook/internal/http/handlers"
	"github.com/pribylovaa/wedding-guestbook/internal/models"
	"github.com/pribylovaa/wedding-guestbook/internal/service"
	"github.com/pribylovaa/wedding-guestbook/internal/storage/memory"
)

var testLimits = config.LimitsConfig{Default: 2, Max: 10, MessageMaxLen: 1000, NameMaxLen: 100, BulkMax: 10}

func newServer(t *testing.T) (*httptest.Server, *service.Service) {
	t.Helper()

	svc := service.New(memory.New(), testLimits)
	tokens := auth.NewTokenManager(config.AuthConfig{JWTSecret: "x", Issuer: "gb", TokenTTL: time.Hour})
	router := gbhttp.NewRouter(handlers.New(svc, auth.NewAuthenticator(nil, tokens)), gbhttp.Options{Verifier: tokens})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv, svc
}

func approve(t *testing.T, svc *service.Service, id string) {
	t.Helper()
	op := &models.Operator{ID: "op-1", Capabilities: []string{models.CapabilityModerate}}
	require.NoError(t, svc.Moderate(context.Background(), service.ModerateInput{Operator: op, ID: id, Action: models.ActionApprove}))
}

func TestClient_SubmitListLike(t *testing.T) {
	srv, svc := newServer(t)
	ctx := context.Background()

	c, err := New(srv.URL+"/", WithClientID("browser-1"))
	require.NoError(t, err)

	msg, err := c.Submit(ctx, Submission{GuestName: "Anna", Message: "Congrats!"})
	require.NoError(t, err)
	require.Equal(t, "pending", msg.Status)

	_, err = c.Like(ctx, msg.ID)
	require.True(t, IsNotFound(err))

	approve(t, svc, msg.ID)

	likes, err := c.Like(ctx, msg.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, likes)

	page, err := c.List(ctx, ListParams{SortBy: "mostLiked"})
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	require.True(t, page.Messages[0].LikedByMe)

	likes, err = c.Unlike(ctx, msg.ID)
	require.NoError(t, err)
	require.Zero(t, likes)
}

func TestClient_PagingFollowsToken(t *testing.T) {
	srv, svc := newServer(t)
	ctx := context.Background()

	c, err := New(srv.URL)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		msg, err := c.Submit(ctx, Submission{GuestName: "Guest", Message: "wish"})
		require.NoError(t, err)
		approve(t, svc, msg.ID)
	}

	var seen []string
	p := ListParams{}
	for {
		page, err := c.List(ctx, p)
		require.NoError(t, err)
		for _, m := range page.Messages {
			seen = append(seen, m.ID)
		}
		if page.NextPageToken == "" {
			break
		}
		p.PageToken = page.NextPageToken
	}

	require.Len(t, seen, 5)
}

func TestClient_ValidationError(t *testing.T) {
	srv, _ := newServer(t)

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Submit(context.Background(), Submission{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.Equal(t, "validation_failed", apiErr.Code)
	require.Len(t, apiErr.Fields, 2)
}

func TestClient_LikeRequiresClientID(t *testing.T) {
	c, err := New("http://localhost:1")
	require.NoError(t, err)

	_, err = c.Like(context.Background(), "id")
	require.Error(t, err)
}

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com")
	require.Error(t, err)
}

func TestLikedSet_ReconcileAndPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "liked.json")

	s, err := LoadLikedSet(path)
	require.NoError(t, err)
	require.Empty(t, s.IDs())

	require.NoError(t, s.Reconcile("b", true))
	require.NoError(t, s.Reconcile("a", true))
	require.NoError(t, s.Reconcile("a", true))
	require.True(t, s.Has("a"))

	reloaded, err := LoadLikedSet(path)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, reloaded.IDs())

	// Сервер сообщил, что лайка больше нет.
	require.NoError(t, reloaded.ReconcilePage(&Page{Messages: []Message{{ID: "b", LikedByMe: false}, {ID: "c", LikedByMe: true}}}))
	require.Equal(t, []string{"a", "c"}, reloaded.IDs())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `["a","c"]`, string(b))
}

func TestLikedSet_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "liked.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := LoadLikedSet(path)
	require.Error(t, err)
}

func TestPoller_SkipsWhileInFlight(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	release := make(chan struct{})
	var calls atomic.Int32

	p := NewPoller(5*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return p.Skipped() >= 3 }, time.Second, time.Millisecond)
	require.EqualValues(t, 1, calls.Load())

	close(release)
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancel")
	}
}
