// Package telemetry обеспечивает наблюдаемость CLI.
//
// Включает:
//   - logging.go — structured logging через slog (stderr + опциональный файл с ротацией)
//   - metrics.go — Prometheus метрики запуска с отправкой в Pushgateway
//
// Логгер не устанавливается глобально: он создаётся один раз в main
// и передаётся дальше явно (через cli.Env).
package telemetry
