package task

import "strings"

// Status — статус задачи, полученный из HTTP-ответа.
//
// От событий подписки не зависит.
type Status string

const (
	// StatusAccepted — сервер принял задачу, прогресс идёт через подписку.
	StatusAccepted Status = "ACCEPTED"

	// StatusDeferred — сервер поставил задачу в очередь, ждать нечего.
	StatusDeferred Status = "DEFERRED"

	// StatusFailed — запрос не дошёл или отклонён (нет ответа, код >= 400).
	StatusFailed Status = "FAILED"
)

// ParseStatus переводит значение заголовка X-Task-Status в Status.
// Всё, кроме DEFERRED, означает синхронное отслеживание.
func ParseStatus(header string) Status {
	if strings.EqualFold(strings.TrimSpace(header), string(StatusDeferred)) {
		return StatusDeferred
	}
	return StatusAccepted
}

// State — состояние исполнения задачи.
//
// Жизненный цикл:
//
//	ISSUING → AWAITING_STATUS → DEFERRED_DONE
//	                          ↘ STREAMING → FINISHED
//	                                      ↘ INTERRUPTED
//	        (или) → ERRORED (из ISSUING или AWAITING_STATUS, либо потеря подписки)
//	                          ↘ SUBMITTED (Submit: без ожидания событий)
type State string

const (
	StateIssuing        State = "ISSUING"
	StateAwaitingStatus State = "AWAITING_STATUS"
	StateDeferredDone   State = "DEFERRED_DONE"
	StateStreaming      State = "STREAMING"
	StateFinished       State = "FINISHED"
	StateErrored        State = "ERRORED"

	// StateInterrupted — ожидание прервано извне. Задача на сервере могла продолжиться.
	StateInterrupted State = "INTERRUPTED"

	// StateSubmitted — запрос принят, события не отслеживались.
	StateSubmitted State = "SUBMITTED"
)

// IsTerminal возвращает true, если состояние финальное.
func (s State) IsTerminal() bool {
	switch s {
	case StateDeferredDone, StateFinished, StateErrored, StateInterrupted, StateSubmitted:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление State.
func (s State) String() string {
	return string(s)
}
