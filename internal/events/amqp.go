package events

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/aybuctl/internal/telemetry"
)

// amqpFeed — подписка на события задач через RabbitMQ.
//
// Топология:
//
//	{exchange} (topic, durable)
//	└── aybuctl.{uuid} (exclusive, auto-delete)
//	        bindings: {prefix}.# на каждую активную подписку
//
// Routing key сообщения — топик события, тело — payload.
type amqpFeed struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
	logger   *slog.Logger

	deliveries <-chan amqp.Delivery
}

// DialAMQP подключается к RabbitMQ и начинает потребление из
// собственной временной очереди.
func DialAMQP(addr, exchange string, logger *slog.Logger) (Feed, error) {
	if logger == nil {
		logger = telemetry.Discard()
	}
	if exchange == "" {
		return nil, fmt.Errorf("amqp feed requires an exchange name")
	}

	conn, err := amqp.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	f := &amqpFeed{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		queue:    "aybuctl." + uuid.NewString(),
		logger:   logger,
	}

	if err := f.setup(); err != nil {
		f.Close()
		return nil, err
	}

	logger.Debug("connected to RabbitMQ", "exchange", exchange, "queue", f.queue)
	return f, nil
}

// setup объявляет exchange и очередь и запускает consume.
func (f *amqpFeed) setup() error {
	err := f.channel.ExchangeDeclare(
		f.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange %s: %w", f.exchange, err)
	}

	_, err = f.channel.QueueDeclare(
		f.queue, // name
		false,   // durable
		true,    // delete when unused
		true,    // exclusive
		false,   // no-wait
		nil,     // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", f.queue, err)
	}

	deliveries, err := f.channel.Consume(
		f.queue, // queue
		"",      // consumer tag (auto-generated)
		true,    // auto-ack: события только для отображения
		true,    // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	f.deliveries = deliveries
	return nil
}

// bindingKey — ключ привязки для всех топиков задачи.
func bindingKey(prefix string) string {
	return prefix + ".#"
}

func (f *amqpFeed) Subscribe(prefix string) error {
	if err := f.channel.QueueBind(f.queue, bindingKey(prefix), f.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", f.queue, f.exchange, err)
	}
	return nil
}

func (f *amqpFeed) Unsubscribe(prefix string) error {
	if err := f.channel.QueueUnbind(f.queue, bindingKey(prefix), f.exchange, nil); err != nil {
		return fmt.Errorf("unbind queue %s from %s: %w", f.queue, f.exchange, err)
	}
	return nil
}

func (f *amqpFeed) Recv() ([][]byte, error) {
	d, ok := <-f.deliveries
	if !ok {
		return nil, fmt.Errorf("deliveries channel closed")
	}
	return [][]byte{[]byte(d.RoutingKey), d.Body}, nil
}

// Close закрывает канал и соединение. Очередь удаляется брокером.
func (f *amqpFeed) Close() error {
	var errs []error

	if f.channel != nil {
		if err := f.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}

	if f.conn != nil {
		if err := f.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}

	return errors.Join(errs...)
}
