package transport

import (
	"net/http"
	"time"
)

// Option меняет параметры одного запроса.
type Option func(*requestOptions)

type requestOptions struct {
	timeout time.Duration
	auth    credentials
	quiet   bool
	debug   bool
}

// WithTimeout задаёт таймаут запроса вместо таймаута клиента.
func WithTimeout(d time.Duration) Option {
	return func(o *requestOptions) { o.timeout = d }
}

// WithBasicAuth заменяет учётные данные клиента.
func WithBasicAuth(username, password string) Option {
	return func(o *requestOptions) { o.auth = newCredentials(username, password, "") }
}

// WithoutAuth отправляет запрос без учётных данных.
func WithoutAuth() Option {
	return func(o *requestOptions) { o.auth = credentials{} }
}

// Quiet отключает info-логи запроса ("GET url", "OK 200 OK").
// Ошибки логируются всегда.
func Quiet() Option {
	return func(o *requestOptions) { o.quiet = true }
}

// Debug логирует заголовки ответа. Отменяет Quiet.
func Debug() Option {
	return func(o *requestOptions) { o.debug = true }
}

func (c *Client) options(opts []Option) requestOptions {
	o := requestOptions{
		timeout: c.timeout,
		auth:    c.auth,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.debug {
		o.quiet = false
	}
	return o
}

type credentials struct {
	username string
	password string
	token    string
}

func newCredentials(username, password, token string) credentials {
	return credentials{username: username, password: password, token: token}
}

func (c credentials) apply(req *http.Request) {
	switch {
	case c.token != "":
		req.Header.Set("Authorization", "Bearer "+c.token)
	case c.username != "" && c.password != "":
		req.SetBasicAuth(c.username, c.password)
	}
}
