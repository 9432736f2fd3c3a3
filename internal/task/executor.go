package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/shaiso/aybuctl/internal/events"
	"github.com/shaiso/aybuctl/internal/telemetry"
	"github.com/shaiso/aybuctl/internal/transport"
)

// Doer выполняет HTTP-запрос. Реализуется *transport.Client.
type Doer interface {
	Do(ctx context.Context, method, path string, header http.Header, form url.Values, opts ...transport.Option) (*transport.Response, error)
}

// EventSource выдаёт поток событий по префиксу топика. Реализуется *events.Subscriber.
type EventSource interface {
	Subscribe(prefix string) (events.Stream, error)
}

// Request — изменяющий запрос, который превращается в задачу.
type Request struct {
	Method  string
	Path    string
	Form    url.Values
	Options []transport.Option
}

// Outcome — итог исполнения задачи.
type Outcome struct {
	// ID — correlation ID, отправленный в X-Task-UUID.
	ID string

	// TaskID — значение X-Task-UUID из ответа сервера.
	TaskID string

	Status Status
	State  State

	// Response — ответ сервера. nil, если ответа не было.
	Response *transport.Response

	// Events — количество промежуточных событий, выведенных в лог.
	Events int

	// Last — событие, завершившее ожидание (finished или неизвестный уровень).
	Last *events.Event
}

// Finished возвращает true, если ожидание закончилось маркером finished.
func (o *Outcome) Finished() bool {
	return o.Last != nil && o.Last.Finished()
}

// Body возвращает JSON-тело ответа или nil.
func (o *Outcome) Body() []byte {
	if o.Response == nil {
		return nil
	}
	return o.Response.Body
}

// Config — зависимости Executor.
type Config struct {
	Client Doer

	// Source нужен только для Run. Submit работает без него.
	Source EventSource

	// IDs — генератор correlation ID. По умолчанию NewIDGenerator().
	IDs *IDGenerator

	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// Executor проводит задачу от запроса до финального состояния.
//
// Повторов нет: за один вызов отправляется не больше одного запроса.
// Executor безопасен для параллельного использования.
type Executor struct {
	client  Doer
	source  EventSource
	ids     *IDGenerator
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// NewExecutor создаёт Executor.
func NewExecutor(cfg Config) *Executor {
	ids := cfg.IDs
	if ids == nil {
		ids = NewIDGenerator()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.Discard()
	}
	return &Executor{
		client:  cfg.Client,
		source:  cfg.Source,
		ids:     ids,
		logger:  logger,
		metrics: cfg.Metrics,
	}
}

// Run выполняет задачу синхронно.
//
// Подписка на события оформляется до отправки запроса.
// При DEFERRED возвращается сразу, иначе выводит события задачи
// в лог до маркера finished или события с неизвестным уровнем.
//
// Ошибки: transport.ErrNoResponse, *transport.RequestError,
// ErrInterrupted (отмена ctx во время ожидания), ErrFeedLost.
// Outcome возвращается всегда, в том числе вместе с ошибкой.
func (e *Executor) Run(ctx context.Context, req Request) (*Outcome, error) {
	return e.execute(ctx, req, true)
}

// Submit отправляет задачу и не ждёт событий.
func (e *Executor) Submit(ctx context.Context, req Request) (*Outcome, error) {
	return e.execute(ctx, req, false)
}

func (e *Executor) execute(ctx context.Context, req Request, follow bool) (out *Outcome, err error) {
	out = &Outcome{
		ID:    e.ids.Next(),
		State: StateIssuing,
	}
	logger := telemetry.WithTaskID(e.logger, out.ID)

	defer func() {
		e.metrics.TaskDone(out.State.String())
		logger.Debug("task done", "state", out.State, "status", out.Status)
	}()

	var stream events.Stream
	if follow {
		if e.source == nil {
			out.State = StateErrored
			out.Status = StatusFailed
			return out, ErrNoEventSource
		}
		stream, err = e.source.Subscribe(out.ID)
		if err != nil {
			out.State = StateErrored
			out.Status = StatusFailed
			return out, fmt.Errorf("subscribe to %s: %w", out.ID, err)
		}
		defer func() {
			if cerr := stream.Close(); cerr != nil {
				logger.Warn("failed to release subscription", "error", cerr)
			}
		}()
	}

	header := http.Header{}
	header.Set(transport.HeaderTaskUUID, out.ID)

	resp, err := e.client.Do(ctx, req.Method, req.Path, header, req.Form, req.Options...)
	out.Response = resp
	if err != nil {
		out.State = StateErrored
		out.Status = StatusFailed
		return out, err
	}

	out.State = StateAwaitingStatus
	out.TaskID = resp.TaskID()
	out.Status = ParseStatus(resp.TaskStatus())
	logger.Info(fmt.Sprintf("Task %s: %s", out.TaskID, resp.TaskStatus()))

	if out.Status == StatusDeferred {
		out.State = StateDeferredDone
		return out, nil
	}
	if !follow {
		out.State = StateSubmitted
		return out, nil
	}

	out.State = StateStreaming
	return out, e.stream(ctx, stream, out, logger)
}

// stream читает события до финального. Каждое событие с известным
// уровнем выводится в лог этим уровнем.
func (e *Executor) stream(ctx context.Context, stream events.Stream, out *Outcome, logger *slog.Logger) error {
	for {
		ev, err := stream.Receive(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				out.State = StateInterrupted
				return fmt.Errorf("%w: %w", ErrInterrupted, ctxErr)
			}
			out.State = StateErrored
			if errors.Is(err, events.ErrFeedClosed) || errors.Is(err, events.ErrClosed) || errors.Is(err, events.ErrStreamClosed) {
				return fmt.Errorf("%w: %w", ErrFeedLost, err)
			}
			return err
		}

		e.metrics.EventReceived(ev.Severity())

		level, known := ev.Level()
		if known {
			out.Events++
			logger.Log(ctx, level, fmt.Sprintf("%s: %s", ev.Topic, ev.Message))
			continue
		}

		out.Last = &ev
		out.State = StateFinished
		if ev.Finished() {
			logger.Info("task finished", "message", ev.Message)
		} else {
			logger.Info(fmt.Sprintf("%s: %s", ev.Topic, ev.Message))
		}
		return nil
	}
}
