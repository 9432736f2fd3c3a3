package events

import "errors"

// Ошибки подписки.
var (
	// ErrClosed — Subscriber закрыт вызовом Close.
	ErrClosed = errors.New("subscriber closed")

	// ErrFeedClosed — соединение с шиной событий потеряно.
	ErrFeedClosed = errors.New("event feed closed")

	// ErrStreamClosed — Stream закрыт, события больше не доставляются.
	ErrStreamClosed = errors.New("stream closed")

	// ErrAlreadySubscribed — на этот префикс уже есть активная подписка.
	ErrAlreadySubscribed = errors.New("prefix already subscribed")

	// ErrEmptyPrefix — пустой префикс подписал бы на все события.
	ErrEmptyPrefix = errors.New("empty subscription prefix")

	// ErrUnsupportedScheme — адрес шины с неизвестной схемой.
	ErrUnsupportedScheme = errors.New("unsupported subscription address scheme")
)
