package events

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/shaiso/aybuctl/internal/telemetry"
)

// Stream — события одного префикса (correlation ID).
type Stream interface {
	// Prefix возвращает префикс топика подписки.
	Prefix() string

	// Receive блокируется до следующего события подписки, отмены ctx
	// или потери соединения. Битые сообщения пропускаются.
	Receive(ctx context.Context) (Event, error)

	// Close снимает подписку с шины. Повторный вызов ничего не делает.
	Close() error
}

// Subscriber раздаёт события одной шины нескольким подпискам.
//
// Соединение общее для всего процесса: задачи, выполняемые параллельно,
// подписываются каждая на свой префикс, а единственная горутина
// диспетчера читает шину и раскладывает события по подпискам.
type Subscriber struct {
	feed   Feed
	logger *slog.Logger

	mu      sync.Mutex
	streams map[string]*stream
	closing bool
	err     error

	done      chan struct{} // закрывается, когда диспетчер остановлен
	closeOnce sync.Once
	closeErr  error
	wg        sync.WaitGroup
}

// NewSubscriber запускает диспетчер поверх feed.
// Subscriber владеет feed и закрывает его в Close.
func NewSubscriber(feed Feed, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = telemetry.Discard()
	}

	s := &Subscriber{
		feed:    feed,
		logger:  logger,
		streams: make(map[string]*stream),
		done:    make(chan struct{}),
	}

	s.wg.Add(1)
	go s.run()

	return s
}

// Subscribe подписывается на события с топиком prefix или prefix.*.
// Подписка действует сразу после возврата: события, опубликованные
// после этого, не теряются.
func (s *Subscriber) Subscribe(prefix string) (Stream, error) {
	if prefix == "" {
		return nil, ErrEmptyPrefix
	}

	st := &stream{
		prefix: prefix,
		sub:    s,
		notify: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}

	s.mu.Lock()
	switch {
	case s.closing:
		s.mu.Unlock()
		return nil, ErrClosed
	case s.err != nil:
		err := s.err
		s.mu.Unlock()
		return nil, err
	}
	if _, ok := s.streams[prefix]; ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadySubscribed, prefix)
	}
	// Префикс занят заранее, запрос к шине идёт без s.mu.
	s.streams[prefix] = st
	s.mu.Unlock()

	if err := s.feed.Subscribe(prefix); err != nil {
		s.mu.Lock()
		if s.streams[prefix] == st {
			delete(s.streams, prefix)
		}
		s.mu.Unlock()
		return nil, err
	}

	s.logger.Debug("subscribed", "prefix", prefix)
	return st, nil
}

// Active возвращает число активных подписок.
func (s *Subscriber) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams)
}

// Err возвращает причину остановки диспетчера (nil, пока он работает).
func (s *Subscriber) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close закрывает шину и дожидается остановки диспетчера.
func (s *Subscriber) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closing = true
		s.mu.Unlock()

		s.closeErr = s.feed.Close()
	})

	s.wg.Wait()
	return s.closeErr
}

// run — цикл диспетчера.
func (s *Subscriber) run() {
	defer s.wg.Done()

	for {
		frames, err := s.feed.Recv()
		if err != nil {
			s.stop(err)
			return
		}

		// Битое сообщение не прерывает ожидание подписчиков.
		if len(frames) != 2 {
			s.logger.Warn("error while reading from subscription: malformed message",
				"parts", len(frames),
			)
			continue
		}

		s.route(NewEvent(frames[0], frames[1]))
	}
}

// route доставляет событие всем подходящим подпискам.
// Очереди подписок не ограничены: route не ждёт читателей.
func (s *Subscriber) route(ev Event) {
	s.mu.Lock()
	var targets []*stream
	for prefix, st := range s.streams {
		if matches(ev.Topic, prefix) {
			targets = append(targets, st)
		}
	}
	s.mu.Unlock()

	if len(targets) == 0 {
		s.logger.Debug("event without subscriber", "topic", ev.Topic)
		return
	}

	for _, st := range targets {
		st.push(ev)
	}
}

// stop фиксирует причину остановки и будит всех читателей.
func (s *Subscriber) stop(err error) {
	s.mu.Lock()
	if s.closing {
		s.err = ErrClosed
	} else {
		s.err = fmt.Errorf("%w: %w", ErrFeedClosed, err)
		s.logger.Error("event feed lost", "error", err)
	}
	s.mu.Unlock()

	close(s.done)
}

func (s *Subscriber) unsubscribe(st *stream) error {
	s.mu.Lock()
	if s.streams[st.prefix] == st {
		delete(s.streams, st.prefix)
	}
	alive := !s.closing && s.err == nil
	s.mu.Unlock()

	if !alive {
		return nil
	}

	s.logger.Debug("unsubscribed", "prefix", st.prefix)
	return s.feed.Unsubscribe(st.prefix)
}

// matches: топик совпадает с префиксом или продолжает его через точку.
// Так подписка на "host.1-1" не получает события "host.1-10.info".
func matches(topic, prefix string) bool {
	if !strings.HasPrefix(topic, prefix) {
		return false
	}
	return len(topic) == len(prefix) || topic[len(prefix)] == '.'
}

type stream struct {
	prefix string
	sub    *Subscriber

	mu     sync.Mutex
	queue  []Event
	notify chan struct{} // сигнал «в очереди что-то появилось», буфер 1

	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func (st *stream) Prefix() string {
	return st.prefix
}

// push кладёт событие в очередь и будит читателя. Никогда не блокируется.
func (st *stream) push(ev Event) {
	select {
	case <-st.closed:
		return
	default:
	}

	st.mu.Lock()
	st.queue = append(st.queue, ev)
	st.mu.Unlock()

	select {
	case st.notify <- struct{}{}:
	default:
	}
}

func (st *stream) pop() (Event, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if len(st.queue) == 0 {
		return Event{}, false
	}
	ev := st.queue[0]
	st.queue[0] = Event{}
	st.queue = st.queue[1:]
	return ev, true
}

func (st *stream) Receive(ctx context.Context) (Event, error) {
	for {
		// Уже доставленные события отдаём раньше, чем сообщаем об остановке.
		if ev, ok := st.pop(); ok {
			return ev, nil
		}

		select {
		case <-st.notify:
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-st.closed:
			return Event{}, ErrStreamClosed
		case <-st.sub.done:
			if ev, ok := st.pop(); ok {
				return ev, nil
			}
			return Event{}, st.sub.Err()
		}
	}
}

func (st *stream) Close() error {
	st.closeOnce.Do(func() {
		close(st.closed)
		st.closeErr = st.sub.unsubscribe(st)
	})
	return st.closeErr
}
