package task

import "errors"

// Ошибки исполнения задачи.
var (
	// ErrInterrupted — ожидание событий прервано (SIGINT, отмена контекста).
	// Исход задачи на сервере неизвестен.
	ErrInterrupted = errors.New("task interrupted")

	// ErrFeedLost — подписка на события закрылась во время ожидания.
	ErrFeedLost = errors.New("event feed lost")

	// ErrNoEventSource — синхронная задача без подписки на события.
	ErrNoEventSource = errors.New("executor has no event source")
)
