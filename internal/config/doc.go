// Package config загружает конфигурацию aybuctl.
//
// Порядок источников (каждый следующий перекрывает предыдущий):
//   - значения по умолчанию (Default)
//   - файл: INI старого клиента (~/.aybu_manager_cli.conf) или JSON по расширению
//   - переменные окружения AYBU_* (двойное подчёркивание — вложенность)
//   - флаги командной строки (Options.Overrides)
//
// Отсутствие remote.host или remote.subscription_addr — фатальная ошибка.
package config
