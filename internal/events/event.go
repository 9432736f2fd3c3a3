package events

import (
	"log/slog"
	"strings"

	"github.com/shaiso/aybuctl/internal/telemetry"
)

// FinishedMarker — последний сегмент топика, которым сервер
// сообщает о завершении задачи.
const FinishedMarker = "finished"

// Event — сообщение из шины событий.
//
// Топик имеет вид {correlation_id}.{...}.{severity}, где severity —
// уровень лога (info, warning, error, ...) или FinishedMarker.
type Event struct {
	Topic   string
	Message string
}

// NewEvent собирает событие из двух частей сообщения.
// Payload очищается от пробелов по краям.
func NewEvent(topic, payload []byte) Event {
	return Event{
		Topic:   string(topic),
		Message: strings.TrimSpace(string(payload)),
	}
}

// Severity возвращает последний сегмент топика в нижнем регистре.
func (e Event) Severity() string {
	i := strings.LastIndexByte(e.Topic, '.')
	return strings.ToLower(e.Topic[i+1:])
}

// Level возвращает уровень лога для события.
// false — сегмент не является известным уровнем (в том числе "finished").
func (e Event) Level() (slog.Level, bool) {
	if e.Finished() {
		return slog.LevelInfo, false
	}
	return telemetry.ParseLevel(e.Severity())
}

// Finished сообщает, что сервер пометил задачу завершённой.
func (e Event) Finished() bool {
	return e.Severity() == FinishedMarker
}

// Terminal сообщает, что событие завершает ожидание задачи:
// маркер "finished" или неизвестный уровень.
func (e Event) Terminal() bool {
	_, known := e.Level()
	return !known
}
