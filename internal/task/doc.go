// Package task исполняет изменяющие команды как отслеживаемые задачи.
//
// Каждая задача получает correlation ID ({host}.{pid}-{n}). ID уходит
// на сервер в заголовке X-Task-UUID и служит префиксом топика, по которому
// сервер публикует ход выполнения.
//
// Executor.Run:
//
//  1. выдаёт ID и подписывается на его события (до запроса, чтобы не
//     потерять ранние события);
//  2. отправляет запрос; нет ответа или код >= 400 — задача ERRORED;
//  3. X-Task-Status: DEFERRED — задача в очереди на сервере, выходим;
//  4. иначе читает события и выводит их в лог до маркера finished
//     или события с неизвестным уровнем.
//
// Отмена контекста во время ожидания даёт ErrInterrupted: задача на
// сервере при этом не отменяется.
package task
