// client — HTTP-клиент публичного API гостевой книги для сайта-компаньона и CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// HeaderClientID — анонимный идентификатор клиента для лайков и likedByMe.
const HeaderClientID = "X-Client-Id"

// Message — сообщение в публичной ленте.
type Message struct {
	ID            string    `json:"id"`
	GuestName     string    `json:"guestName"`
	Message       string    `json:"message"`
	Status        string    `json:"status"`
	IsHighlighted bool      `json:"isHighlighted"`
	Likes         int64     `json:"likes"`
	LikedByMe     bool      `json:"likedByMe"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

// Page — страница публичной ленты. Degraded — сервер не смог прочитать хранилище.
type Page struct {
	Messages      []Message `json:"messages"`
	Total         int64     `json:"total"`
	NextPageToken string    `json:"nextPageToken"`
	Degraded      bool      `json:"degraded,omitempty"`
}

// Submission — ввод гостя.
type Submission struct {
	GuestName  string `json:"guestName"`
	GuestEmail string `json:"guestEmail,omitempty"`
	Message    string `json:"message"`
}

// ListParams — параметры публичной выдачи; пустые значения — дефолты сервера.
type ListParams struct {
	Search    string
	SortBy    string
	PageSize  int32
	PageToken string
}

// FieldError — нарушение правила поля ввода.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIError — ответ сервера с ошибкой.
type APIError struct {
	StatusCode int          `json:"-"`
	Code       string       `json:"code"`
	Message    string       `json:"message"`
	RequestID  string       `json:"requestId,omitempty"`
	Fields     []FieldError `json:"fields,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("guestbook api: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsNotFound — сообщение отсутствует или не одобрено.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client — клиент публичного API.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	clientID string
}

// Option — настройка клиента.
type Option func(*Client)

// WithHTTPClient подменяет http.Client (по умолчанию таймаут 10s).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithClientID задаёт идентификатор клиента, отправляемый в X-Client-Id.
func WithClientID(id string) Option {
	return func(c *Client) { c.clientID = id }
}

// New создаёт клиент для baseURL, например http://localhost:50090.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("client: unsupported scheme %q", u.Scheme)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// ClientID — идентификатор, с которым клиент ставит лайки.
func (c *Client) ClientID() string { return c.clientID }

func (c *Client) Submit(ctx context.Context, in Submission) (*Message, error) {
	var out struct {
		Message Message `json:"message"`
	}

	if err := c.do(ctx, http.MethodPost, "/messages", nil, in, &out); err != nil {
		return nil, err
	}

	return &out.Message, nil
}

func (c *Client) List(ctx context.Context, p ListParams) (*Page, error) {
	q := url.Values{}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.SortBy != "" {
		q.Set("sortBy", p.SortBy)
	}
	if p.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(int(p.PageSize)))
	}
	if p.PageToken != "" {
		q.Set("pageToken", p.PageToken)
	}

	var out Page
	if err := c.do(ctx, http.MethodGet, "/messages", q, nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Like возвращает число лайков после операции.
func (c *Client) Like(ctx context.Context, id string) (int64, error) {
	return c.like(ctx, http.MethodPost, id)
}

func (c *Client) Unlike(ctx context.Context, id string) (int64, error) {
	return c.like(ctx, http.MethodDelete, id)
}

func (c *Client) like(ctx context.Context, method, id string) (int64, error) {
	if c.clientID == "" {
		return 0, errors.New("client: client id is not set")
	}

	var out struct {
		Likes int64 `json:"likes"`
	}

	if err := c.do(ctx, method, "/messages/"+url.PathEscape(id)+"/like", nil, nil, &out); err != nil {
		return 0, err
	}

	return out.Likes, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out any) error {
	u := *c.baseURL
	u.Path += path
	u.RawQuery = q.Encode()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.clientID != "" {
		req.Header.Set(HeaderClientID, c.clientID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var env struct {
			Error APIError `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&env)

		apiErr := env.Error
		apiErr.StatusCode = resp.StatusCode
		if apiErr.Code == "" {
			apiErr.Code = strings.ToLower(strings.ReplaceAll(http.StatusText(resp.StatusCode), " ", "_"))
		}

		return &apiErr
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}

	return nil
}
