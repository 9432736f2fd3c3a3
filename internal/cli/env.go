package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/aybuctl/internal/config"
	"github.com/shaiso/aybuctl/internal/events"
	"github.com/shaiso/aybuctl/internal/task"
	"github.com/shaiso/aybuctl/internal/telemetry"
	"github.com/shaiso/aybuctl/internal/transport"
)

// metricsPushTimeout — сколько ждать Pushgateway при выходе.
const metricsPushTimeout = 5 * time.Second

// dialFunc открывает соединение с шиной событий.
type dialFunc func(ctx context.Context, addr string, opts events.DialOptions) (events.Feed, error)

// Env — окружение одной команды: конфигурация, логгер, вывод и
// лениво создаваемые клиенты. Передаётся командам явно.
type Env struct {
	Config  *config.Config
	Logger  *slog.Logger
	Out     *Output
	Metrics *telemetry.Metrics

	// NoWait: изменяющие команды не ждут событий задачи (Submit вместо Run).
	NoWait bool

	ids  *task.IDGenerator
	dial dialFunc

	clientOnce sync.Once
	client     *transport.Client

	subMu sync.Mutex
	sub   *events.Subscriber
}

// NewEnv создаёт Env. logger и metrics могут быть nil.
func NewEnv(cfg *config.Config, logger *slog.Logger, out *Output, metrics *telemetry.Metrics) *Env {
	if logger == nil {
		logger = telemetry.Discard()
	}
	if out == nil {
		out = NewOutput(false)
	}
	return &Env{
		Config:  cfg,
		Logger:  logger,
		Out:     out,
		Metrics: metrics,
		ids:     task.NewIDGenerator(),
		dial:    events.Dial,
	}
}

// Client возвращает HTTP-клиент API. Создаётся при первом вызове.
func (e *Env) Client() *transport.Client {
	e.clientOnce.Do(func() {
		remote := e.Config.Remote
		e.client = transport.New(transport.Config{
			Host:      remote.Host,
			Username:  remote.Username,
			Password:  remote.Password,
			Token:     remote.Token,
			Timeout:   remote.Timeout,
			VerifySSL: remote.VerifySSL,
			Logger:    e.Logger,
			Metrics:   e.Metrics,
		})
	})
	return e.client
}

// Subscriber возвращает подписчика на события задач.
// Соединение с шиной открывается при первом вызове и живёт до Close.
func (e *Env) Subscriber(ctx context.Context) (*events.Subscriber, error) {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	if e.sub != nil {
		return e.sub, nil
	}

	remote := e.Config.Remote
	feed, err := e.dial(ctx, remote.SubscriptionAddr, events.DialOptions{
		Exchange: remote.SubscriptionExchange,
		Logger:   e.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", remote.SubscriptionAddr, err)
	}

	e.Logger.Debug("subscribed to event feed", "addr", remote.SubscriptionAddr)
	e.sub = events.NewSubscriber(feed, e.Logger)
	return e.sub, nil
}

// Executor возвращает исполнитель задач. Для синхронного режима
// подключается к шине событий.
func (e *Env) Executor(ctx context.Context) (*task.Executor, error) {
	cfg := task.Config{
		Client:  e.Client(),
		IDs:     e.ids,
		Logger:  e.Logger,
		Metrics: e.Metrics,
	}
	if !e.NoWait {
		sub, err := e.Subscriber(ctx)
		if err != nil {
			return nil, err
		}
		cfg.Source = sub
	}
	return task.NewExecutor(cfg), nil
}

// Execute выполняет изменяющий запрос как задачу.
//
// Прерывание (Ctrl-C) не считается ошибкой: выводится предупреждение,
// что задача на сервере может ещё выполняться.
func (e *Env) Execute(ctx context.Context, req task.Request) (*task.Outcome, error) {
	ex, err := e.Executor(ctx)
	if err != nil {
		return nil, err
	}

	var out *task.Outcome
	if e.NoWait {
		out, err = ex.Submit(ctx, req)
	} else {
		out, err = ex.Run(ctx, req)
	}

	if errors.Is(err, task.ErrInterrupted) {
		e.Out.Notice(fmt.Sprintf("interrupted: task %s may still be running on the server", out.ID))
		return out, nil
	}
	if err != nil {
		return out, err
	}

	e.Out.Outcome(out)
	return out, nil
}

// Close закрывает подписку и отправляет метрики, если задан push_url.
func (e *Env) Close() error {
	var errs []error

	e.subMu.Lock()
	if e.sub != nil {
		errs = append(errs, e.sub.Close())
		e.sub = nil
	}
	e.subMu.Unlock()

	if e.Config != nil && e.Config.Metrics.PushURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), metricsPushTimeout)
		defer cancel()
		if err := e.Metrics.Push(ctx, e.Config.Metrics.PushURL, e.Config.Metrics.Job); err != nil {
			e.Logger.Warn("failed to push metrics", "error", err)
		}
	}

	return errors.Join(errs...)
}
