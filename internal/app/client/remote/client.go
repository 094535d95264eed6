// Package remote - HTTP клиент удаленного сервиса каталога.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"stockkeeper/internal/domain/apperr"
	"stockkeeper/internal/domain/product"
	"stockkeeper/internal/domain/sale"
	"stockkeeper/internal/domain/stock"
	"stockkeeper/internal/domain/user"
)

const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultBackoff    = 200 * time.Millisecond

	SinceLayout = product.SinceLayout
)

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
}

type Client struct {
	client    *http.Client
	config    Config
	log       *slog.Logger
	baseURL   string
	userAgent string

	mu    sync.RWMutex
	token string

	sleep func(ctx context.Context, d time.Duration) error
}

func New(config Config, log *slog.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	if base == "" {
		return nil, errors.New("remote base url is empty")
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse remote base url: %w", err)
	}

	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.Backoff <= 0 {
		config.Backoff = DefaultBackoff
	}

	client := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}

	return &Client{
		client:    client,
		config:    config,
		log:       log.With("component", "remote"),
		baseURL:   base,
		userAgent: "StockKeeper-Client/1.0",
		sleep:     sleepCtx,
	}, nil
}

// BaseURL возвращает нормализованный адрес сервиса.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// HealthCheck проверяет доступность сервера. Без повторов.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.once(ctx, "health", http.MethodGet, "/health", nil, false, nil)
}

func (c *Client) Login(ctx context.Context, login, password string) (string, error) {
	var resp user.LoginResponse
	err := c.do(ctx, "login", http.MethodPost, "/login",
		user.BaseRequest{Login: login, Password: password}, false, &resp)
	if err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", &apperr.RemoteError{Op: "login", StatusCode: http.StatusOK, Message: "empty token"}
	}

	c.SetToken(resp.Token)
	return resp.Token, nil
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, "logout", http.MethodPost, "/logout", nil, true, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

// ListProducts возвращает сырые записи каталога и время сервера на момент выборки.
// Нулевой since - полная выгрузка.
func (c *Client) ListProducts(ctx context.Context, since time.Time) ([]json.RawMessage, time.Time, error) {
	path := "/products"
	if !since.IsZero() {
		path += "?" + url.Values{"updated_since": {since.UTC().Format(SinceLayout)}}.Encode()
	}

	var resp product.ListResponse
	if err := c.do(ctx, "list products", http.MethodGet, path, nil, true, &resp); err != nil {
		return nil, time.Time{}, err
	}
	return resp.Products, resp.ServerTime, nil
}

func (c *Client) UpdatePrices(ctx context.Context, id int64, req product.PriceRequest) (*product.Wire, error) {
	var resp product.Wire
	path := "/products/" + strconv.FormatInt(id, 10) + "/price"
	if err := c.do(ctx, "update prices", http.MethodPost, path, req, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) AddStock(ctx context.Context, req stock.AddRequest) (*stock.AddResponse, error) {
	var resp stock.AddResponse
	if err := c.do(ctx, "add stock", http.MethodPost, "/stock/add", req, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CreateSale(ctx context.Context, req sale.PushRequest) (*sale.PushResponse, error) {
	var resp sale.PushResponse
	if err := c.do(ctx, "create sale", http.MethodPost, "/sales", req, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do повторяет запрос на 5xx, 429 и ошибках сети с экспоненциальной задержкой.
func (c *Client) do(ctx context.Context, op, method, path string, body any, auth bool, result any) error {
	for attempt := 0; ; attempt++ {
		err := c.once(ctx, op, method, path, body, auth, result)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !apperr.IsRetryable(err) || attempt >= c.config.MaxRetries {
			return err
		}

		delay := c.backoff(attempt)
		c.log.Warn("повтор удаленного вызова",
			"op", op,
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)
		if err := c.sleep(ctx, delay); err != nil {
			return &apperr.RemoteError{Op: op, Err: err}
		}
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	exp := c.config.Backoff * time.Duration(1<<attempt)
	jitter := time.Duration(rand.Int63n(int64(exp/2) + 1))
	return exp + jitter
}

func (c *Client) once(ctx context.Context, op, method, path string, body any, auth bool, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		if token := c.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	c.log.Debug("отправка запроса", "method", method, "url", req.URL.String())

	resp, err := c.client.Do(req)
	if err != nil {
		return &apperr.RemoteError{Op: op, Err: err}
	}

	return c.parseResponse(op, resp, result)
}

// problem - тело ошибки huma (application/problem+json).
type problem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Error  string `json:"error"`
}

func (c *Client) parseResponse(op string, resp *http.Response, result any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &apperr.RemoteError{Op: op, StatusCode: 0, Err: fmt.Errorf("read body: %w", err)}
	}

	c.log.Debug("получен ответ", "op", op, "status", resp.StatusCode, "bytes", len(body))

	if resp.StatusCode >= http.StatusBadRequest {
		var p problem
		msg := ""
		if err := json.Unmarshal(body, &p); err == nil {
			switch {
			case p.Detail != "":
				msg = p.Detail
			case p.Error != "":
				msg = p.Error
			default:
				msg = p.Title
			}
		}
		return &apperr.RemoteError{Op: op, StatusCode: resp.StatusCode, Message: msg}
	}

	if result != nil && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return &apperr.RemoteError{Op: op, StatusCode: resp.StatusCode, Message: "malformed response", Err: err}
		}
	}

	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
