// guestbook-cli — консольный клиент гостевой книги: отправка, лента, лайки, наблюдение
// за лентой и генерация bcrypt-хэшей для операторов.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/pribylovaa/wedding-guestbook/internal/auth"
	"github.com/pribylovaa/wedding-guestbook/pkg/client"
	"github.com/pribylovaa/wedding-guestbook/pkg/log"
)

const usage = `usage: guestbook-cli [global flags] <command> [flags]

commands:
  submit   -name NAME [-email EMAIL] -message TEXT
  list     [-search S] [-sort newest|oldest|mostLiked] [-page-size N] [-all]
  like     ID
  unlike   ID
  watch    [-interval 10s] [-sort ...]
  hash-password PASSWORD

global flags:
`

func main() {
	_ = godotenv.Load()

	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type app struct {
	client *client.Client
	liked  *client.LikedSet
	out    io.Writer
}

func run(args []string, out io.Writer) error {
	global := flag.NewFlagSet("guestbook-cli", flag.ContinueOnError)
	server := global.String("server", envOr("GUESTBOOK_URL", "http://localhost:50090"), "guestbook-service base URL")
	stateDir := global.String("state", envOr("GUESTBOOK_STATE_DIR", defaultStateDir()), "directory for client id and liked set")
	verbose := global.Bool("v", false, "debug logging")
	global.Usage = func() {
		fmt.Fprint(global.Output(), usage)
		global.PrintDefaults()
	}

	if err := global.Parse(args); err != nil {
		return err
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return errors.New("command is required")
	}

	cmd, cmdArgs := rest[0], rest[1:]

	if cmd == "hash-password" {
		return hashPassword(cmdArgs, out)
	}

	a, err := newApp(*server, *stateDir, out)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch cmd {
	case "submit":
		return a.submit(ctx, cmdArgs)
	case "list":
		return a.list(ctx, cmdArgs)
	case "like":
		return a.like(ctx, cmdArgs, true)
	case "unlike":
		return a.like(ctx, cmdArgs, false)
	case "watch":
		return a.watch(ctx, cmdArgs)
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func newApp(server, stateDir string, out io.Writer) (*app, error) {
	clientID, err := loadClientID(filepath.Join(stateDir, "client-id"))
	if err != nil {
		return nil, err
	}

	c, err := client.New(server, client.WithClientID(clientID))
	if err != nil {
		return nil, err
	}

	liked, err := client.LoadLikedSet(filepath.Join(stateDir, "liked.json"))
	if err != nil {
		return nil, err
	}

	return &app{client: c, liked: liked, out: out}, nil
}

func (a *app) submit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	name := fs.String("name", "", "guest name")
	email := fs.String("email", "", "guest email (optional)")
	text := fs.String("message", "", "message text")
	if err := fs.Parse(args); err != nil {
		return err
	}

	msg, err := a.client.Submit(ctx, client.Submission{GuestName: *name, GuestEmail: *email, Message: *text})
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
			for _, f := range apiErr.Fields {
				fmt.Fprintf(a.out, "  %s: %s\n", f.Field, f.Message)
			}
		}
		return err
	}

	fmt.Fprintf(a.out, "submitted %s (awaiting moderation)\n", msg.ID)
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	search := fs.String("search", "", "case-insensitive search in name and text")
	sortBy := fs.String("sort", "", "newest|oldest|mostLiked")
	pageSize := fs.Int("page-size", 0, "page size (server default if 0)")
	all := fs.Bool("all", false, "follow nextPageToken until the end")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p := client.ListParams{Search: *search, SortBy: *sortBy, PageSize: int32(*pageSize)}
	for {
		page, err := a.fetch(ctx, p)
		if err != nil {
			return err
		}

		a.print(page)

		if !*all || page.NextPageToken == "" {
			if page.NextPageToken != "" {
				fmt.Fprintf(a.out, "-- more: %d total --\n", page.Total)
			}
			return nil
		}
		p.PageToken = page.NextPageToken
	}
}

func (a *app) like(ctx context.Context, args []string, like bool) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return errors.New("message id is required")
	}
	id := args[0]

	var (
		likes int64
		err   error
	)
	if like {
		likes, err = a.client.Like(ctx, id)
	} else {
		likes, err = a.client.Unlike(ctx, id)
	}
	if err != nil {
		if client.IsNotFound(err) {
			_ = a.liked.Reconcile(id, false)
		}
		return err
	}

	if err := a.liked.Reconcile(id, like); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s: %d likes\n", id, likes)
	return nil
}

func (a *app) watch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	interval := fs.Duration("interval", 10*time.Second, "refresh interval")
	sortBy := fs.String("sort", "", "newest|oldest|mostLiked")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *interval <= 0 {
		return errors.New("interval must be positive")
	}

	ctx = log.With(ctx, "cmd", "watch")

	poller := client.NewPoller(*interval, func(ctx context.Context) error {
		page, err := a.fetch(ctx, client.ListParams{SortBy: *sortBy})
		if err != nil {
			return err
		}

		fmt.Fprintf(a.out, "== %s ==\n", time.Now().Format(time.TimeOnly))
		a.print(page)
		return nil
	})

	poller.Run(ctx)
	return nil
}

// fetch загружает страницу и сверяет локальный набор лайков с likedByMe сервера.
func (a *app) fetch(ctx context.Context, p client.ListParams) (*client.Page, error) {
	page, err := a.client.List(ctx, p)
	if err != nil {
		return nil, err
	}

	if page.Degraded {
		slog.Warn("guestbook is temporarily unavailable, showing nothing")
		return page, nil
	}

	if err := a.liked.ReconcilePage(page); err != nil {
		slog.Warn("liked set not saved", "err", err)
	}

	return page, nil
}

func (a *app) print(page *client.Page) {
	for _, m := range page.Messages {
		mark := " "
		if m.IsHighlighted {
			mark = "*"
		}
		heart := "♡"
		if a.liked.Has(m.ID) {
			heart = "♥"
		}

		fmt.Fprintf(a.out, "%s %s  %s (%s)  %s %d\n    %s\n",
			mark, m.ID, m.GuestName, m.SubmittedAt.Local().Format("2006-01-02 15:04"), heart, m.Likes, m.Message)
	}
}

func hashPassword(args []string, out io.Writer) error {
	if len(args) != 1 || args[0] == "" {
		return errors.New("usage: hash-password PASSWORD")
	}

	h, err := auth.HashPassword(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintln(out, h)
	return nil
}

// loadClientID читает постоянный анонимный id клиента или создаёт новый.
func loadClientID(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(b)); id != "" {
			return id, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read client id: %w", err)
	}

	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("save client id: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("save client id: %w", err)
	}

	return id, nil
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "guestbook")
	}
	return ".guestbook"
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
