// Package transport выполняет HTTP-запросы к API менеджера инстансов.
//
// Client добавляет к path базовый host, подставляет учётные данные,
// кодирует тело как application/x-www-form-urlencoded и классифицирует
// ответ:
//
//	resp, err := client.Post(ctx, "/instances", transport.Form(params))
//	switch {
//	case errors.Is(err, transport.ErrNoResponse):     // сервер недоступен
//	case errors.Is(err, transport.ErrRequestRejected): // статус >= 400
//	}
//
// Ответы с ошибкой никогда не несут Body. Невалидный JSON в успешном
// ответе не ошибка: Body просто nil.
package transport
