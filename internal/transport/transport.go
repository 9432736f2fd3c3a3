package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shaiso/aybuctl/internal/telemetry"
)

// Заголовки протокола задач.
const (
	HeaderTaskUUID     = "X-Task-UUID"
	HeaderTaskStatus   = "X-Task-Status"
	HeaderRequestError = "X-Request-Error"
)

const formContentType = "application/x-www-form-urlencoded"

// Config — параметры Client. Задаются один раз при создании
// и дальше только читаются, поэтому Client можно использовать
// из нескольких горутин.
type Config struct {
	// Host — базовый адрес API, к нему дописывается path запроса.
	Host string

	// Username/Password — basic auth. Используются, только если заданы оба.
	Username string
	Password string

	// Token — bearer-токен. Имеет приоритет над basic auth.
	Token string

	// Timeout — таймаут запроса по умолчанию. 0 — без таймаута.
	Timeout time.Duration

	// VerifySSL=false отключает проверку сертификата сервера.
	VerifySSL bool

	// HTTPClient — опционально; по умолчанию создаётся свой.
	HTTPClient *http.Client

	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// Client — HTTP-клиент API менеджера инстансов.
type Client struct {
	host       string
	auth       credentials
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *telemetry.Metrics
}

// New создаёт Client.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		if !cfg.VerifySSL {
			tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // явно задано в конфиге
		}
		httpClient = &http.Client{Transport: tr}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.Discard()
	}

	return &Client{
		host:       strings.TrimRight(cfg.Host, "/"),
		auth:       newCredentials(cfg.Username, cfg.Password, cfg.Token),
		timeout:    cfg.Timeout,
		httpClient: httpClient,
		logger:     logger,
		metrics:    cfg.Metrics,
	}
}

// Username возвращает имя пользователя из конфигурации.
func (c *Client) Username() string {
	return c.auth.username
}

// URL возвращает абсолютный адрес для path.
func (c *Client) URL(path string) string {
	return c.host + path
}

// Response — результат успешного обмена с API.
type Response struct {
	// StatusCode — HTTP статус.
	StatusCode int

	// Header — заголовки ответа.
	Header http.Header

	// Body — JSON тела ответа. nil, если тело пустое, не JSON
	// или статус >= 400.
	Body json.RawMessage

	// Raw — тело как есть (только для статусов < 400).
	Raw []byte
}

// TaskID возвращает идентификатор задачи, который вернул сервер.
func (r *Response) TaskID() string {
	return r.Header.Get(HeaderTaskUUID)
}

// TaskStatus возвращает статус задачи из заголовка ответа.
func (r *Response) TaskStatus() string {
	return r.Header.Get(HeaderTaskStatus)
}

// HasBody сообщает, есть ли в ответе JSON.
func (r *Response) HasBody() bool {
	return r != nil && len(r.Body) > 0
}

// Decode разбирает Body в v.
func (r *Response) Decode(v any) error {
	if !r.HasBody() {
		return fmt.Errorf("response has no content")
	}
	return json.Unmarshal(r.Body, v)
}

// Get выполняет GET.
func (c *Client) Get(ctx context.Context, path string, opts ...Option) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil, nil, opts...)
}

// Head выполняет HEAD.
func (c *Client) Head(ctx context.Context, path string, opts ...Option) (*Response, error) {
	return c.Do(ctx, http.MethodHead, path, nil, nil, opts...)
}

// Delete выполняет DELETE.
func (c *Client) Delete(ctx context.Context, path string, opts ...Option) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, opts...)
}

// Post выполняет POST с form-encoded телом.
func (c *Client) Post(ctx context.Context, path string, form url.Values, opts ...Option) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, nil, form, opts...)
}

// Put выполняет PUT с form-encoded телом.
func (c *Client) Put(ctx context.Context, path string, form url.Values, opts ...Option) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, nil, form, opts...)
}

// Do выполняет запрос.
//
// Результат:
//   - нет ответа (сеть, таймаут): nil, ошибка с ErrNoResponse
//   - статус >= 400: Response без Body, *RequestError
//   - успех: Response; Body = nil, если тело не JSON (это не ошибка)
func (c *Client) Do(ctx context.Context, method, path string, header http.Header, form url.Values, opts ...Option) (*Response, error) {
	o := c.options(opts)

	if !allowedMethod(method) {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotAllowed, method)
	}

	target := c.URL(path)
	if !o.quiet {
		c.logger.Info(fmt.Sprintf("%s %s", method, target))
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	var body io.Reader
	if form != nil && method != http.MethodGet && method != http.MethodHead {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrNoResponse, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", formContentType)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	o.auth.apply(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(method, 0, time.Since(start))
		c.logger.Error("error connecting to API", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrNoResponse, err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)
	c.metrics.ObserveRequest(method, resp.StatusCode, time.Since(start))

	result := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
	}

	if resp.StatusCode >= 400 {
		reqErr := &RequestError{
			StatusCode: resp.StatusCode,
			Reason:     http.StatusText(resp.StatusCode),
			Message:    resp.Header.Get(HeaderRequestError),
		}
		c.logger.Error("error in response",
			"status", resp.StatusCode,
			"reason", reqErr.Reason,
			"message", reqErr.Message,
		)
		return result, reqErr
	}

	if o.debug {
		c.logger.Debug("response", "status", resp.Status, "headers", resp.Header)
	}
	if !o.quiet {
		c.logger.Info(fmt.Sprintf("OK %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	}

	if readErr != nil {
		c.logger.Warn("failed to read response body", "error", readErr)
		return result, nil
	}

	result.Raw = raw
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		result.Body = json.RawMessage(trimmed)
	} else if len(trimmed) > 0 {
		c.logger.Debug("response body is not JSON", "bytes", len(raw))
	}

	return result, nil
}

func allowedMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodHead:
		return true
	default:
		return false
	}
}
