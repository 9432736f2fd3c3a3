package events

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
)

// Feed — соединение с шиной событий.
//
// Recv блокируется до следующего сообщения и возвращает его части
// (ожидается две: топик и payload). Recv вызывается из одной горутины,
// Subscribe/Unsubscribe — из любых.
type Feed interface {
	Subscribe(prefix string) error
	Unsubscribe(prefix string) error
	Recv() ([][]byte, error)
	Close() error
}

// DialOptions — параметры подключения к шине.
type DialOptions struct {
	// Exchange — topic exchange для amqp:// (см. config.DefaultExchange).
	Exchange string

	Logger *slog.Logger
}

// Dial подключается к шине по адресу.
//
// Схема адреса выбирает транспорт:
//   - tcp://, ipc:// — ZeroMQ SUB (формат сервера менеджера)
//   - amqp://, amqps:// — RabbitMQ topic exchange
//
// ctx ограничивает время жизни ZeroMQ-сокета.
func Dial(ctx context.Context, addr string, opts DialOptions) (Feed, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse subscription address %q: %w", addr, err)
	}

	switch u.Scheme {
	case "tcp", "ipc":
		return DialZMQ(ctx, addr)
	case "amqp", "amqps":
		return DialAMQP(addr, opts.Exchange, opts.Logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}
