package transport

import (
	"errors"
	"fmt"
)

// Ошибки транспорта.
var (
	// ErrNoResponse — ответа нет: соединение отклонено, таймаут, DNS.
	// Запрос считается не выполненным на сервере, повтор в рамках
	// одного вызова не делается.
	ErrNoResponse = errors.New("no response from API")

	// ErrRequestRejected — сервер ответил статусом >= 400.
	ErrRequestRejected = errors.New("request rejected")

	// ErrMethodNotAllowed — метод не входит в GET/POST/PUT/DELETE/HEAD.
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// RequestError — ответ со статусом >= 400.
type RequestError struct {
	// StatusCode — HTTP статус.
	StatusCode int

	// Reason — текстовое описание статуса ("Not Found").
	Reason string

	// Message — сообщение сервера из заголовка X-Request-Error (может быть пустым).
	Message string
}

func (e *RequestError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("error in response: %d %s", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("error in response: %d %s: %s", e.StatusCode, e.Reason, e.Message)
}

// Unwrap позволяет проверять errors.Is(err, ErrRequestRejected).
func (e *RequestError) Unwrap() error {
	return ErrRequestRejected
}
