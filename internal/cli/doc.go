// Package cli реализует команды aybuctl.
//
// # Обзор
//
// Каждый ресурс API (instances, tasks, envs, themes, groups, users,
// redirects, archives, aliases) — значение Resource в статическом
// реестре Resources(). Общие команды list, info и delete даёт collection,
// остальные ресурс добавляет сам.
//
// # Ключевые компоненты
//
// ## Env
//
// Окружение команды: конфигурация, логгер, Output, метрики и лениво
// создаваемые transport.Client и events.Subscriber. Глобального
// состояния нет: Env создаётся в main и передаётся через EnvFunc,
// которая вызывается после разбора PersistentFlags.
//
// Изменяющие команды идут через Env.Execute: запрос выполняется как
// задача (task.Executor), события задачи выводятся в лог. С --no-wait
// задача только отправляется.
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Текст: поля и списки в порядке документа (gjson), таблицы (text/tabwriter)
//   - JSON: тело ответа как есть, с отступами — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Notice/Error) — в stderr.
// Это позволяет использовать pipe: aybuctl instances list --json | jq .
package cli
