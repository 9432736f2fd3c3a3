package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/iancoleman/strcase"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// DefaultFile — файл конфигурации, если путь не задан явно.
	DefaultFile = "~/.aybu_manager_cli.conf"

	// DefaultSubscriptionAddr — адрес шины событий по умолчанию.
	DefaultSubscriptionAddr = "tcp://localhost:8999"

	// DefaultExchange — topic exchange для событий задач (только amqp://).
	DefaultExchange = "aybu.tasks"

	// DefaultTimeout — таймаут HTTP-запроса по умолчанию.
	DefaultTimeout = 60 * time.Second

	// EnvPrefix — префикс переменных окружения.
	// AYBU_REMOTE__HOST -> remote.host
	EnvPrefix = "AYBU_"
)

// ErrInvalid — конфигурация не прошла проверку.
var ErrInvalid = errors.New("invalid configuration")

// Config — конфигурация CLI.
type Config struct {
	Remote  RemoteConfig  `koanf:"remote"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// RemoteConfig — параметры API менеджера и шины событий (секция [remote]).
type RemoteConfig struct {
	Host                 string        `koanf:"host" validate:"required,url"`
	SubscriptionAddr     string        `koanf:"subscription_addr" validate:"required"`
	SubscriptionExchange string        `koanf:"subscription_exchange"`
	Username             string        `koanf:"username"`
	Password             string        `koanf:"password"`
	Token                string        `koanf:"token"`
	Timeout              time.Duration `koanf:"timeout" validate:"gte=0"`
	VerifySSL            bool          `koanf:"verify_ssl"`
}

// LogConfig — параметры логирования (секция [log]).
type LogConfig struct {
	Level      string `koanf:"level" validate:"omitempty,loglevel"`
	Format     string `koanf:"format" validate:"omitempty,oneof=text json"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `koanf:"max_backups" validate:"gte=0"`
}

// MetricsConfig — отправка метрик в Pushgateway (секция [metrics]).
type MetricsConfig struct {
	PushURL string `koanf:"push_url" validate:"omitempty,url"`
	Job     string `koanf:"job"`
}

// Default возвращает значения по умолчанию.
func Default() Config {
	return Config{
		Remote: RemoteConfig{
			SubscriptionAddr:     DefaultSubscriptionAddr,
			SubscriptionExchange: DefaultExchange,
			Timeout:              DefaultTimeout,
			VerifySSL:            true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Options — источник конфигурации.
type Options struct {
	// File — путь к файлу. Пустая строка — DefaultFile, отсутствие которого не ошибка.
	File string

	// Overrides — значения из флагов командной строки (ключи вида "remote.host").
	// Имеют наивысший приоритет.
	Overrides map[string]any
}

// Load собирает конфигурацию: defaults -> файл -> окружение -> флаги.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	// 1. Значения по умолчанию
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	// 2. Файл (INI как у старого клиента или JSON)
	if err := loadFile(k, opts.File); err != nil {
		return nil, err
	}

	// 3. Окружение: AYBU_REMOTE__HOST -> remote.host
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	// 4. Флаги
	for key, value := range opts.Overrides {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("override %s: %w", key, err)
		}
	}

	var cfg Config
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			TagName:          "koanf",
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				secondsToDurationHook,
				mapstructure.StringToTimeDurationHookFunc(),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate проверяет обязательные поля.
// Без remote.host и remote.subscription_addr CLI не запускается.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		key := fieldKey(fe.StructNamespace())
		if fe.Tag() == "required" {
			msgs = append(msgs, fmt.Sprintf("missing configuration for %s", key))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed %q check (value %v)", key, fe.Tag(), fe.Value()))
	}

	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func loadFile(k *koanf.Koanf, path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	path, err := ExpandHome(path)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("cannot read config file: %w", err)
	}

	var parser koanf.Parser = INIParser()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		parser = json.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return fmt.Errorf("load config file %s: %w", path, err)
	}
	return nil
}

// ExpandHome раскрывает ведущий "~/" в домашний каталог.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "__", ".")
}

// fieldKey превращает "Config.Remote.SubscriptionAddr" в "remote.subscription_addr".
func fieldKey(ns string) string {
	parts := strings.Split(strings.TrimPrefix(ns, "Config."), ".")
	for i, p := range parts {
		parts[i] = strcase.ToSnake(p)
	}
	return strings.Join(parts, ".")
}
