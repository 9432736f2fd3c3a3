// aybuctl — инструмент командной строки для управления инстансами
// через HTTP API менеджера.
//
// Использование:
//
//	aybuctl [-F CONFIG] [-V] [--json] [--no-wait] <resource> <command> [args]
//
// Ресурсы:
//
//	instances  Инстансы: deploy, enable, disable, reload, archive, restore, ...
//	tasks      Задачи на сервере и их логи
//	envs       Окружения
//	themes     Темы
//	groups     Группы
//	users      Пользователи
//	redirects  Редиректы доменов
//	archives   Архивы инстансов
//	aliases    Алиасы доменов
//
// Изменяющие команды выполняются как задачи: CLI ждёт событий задачи
// из шины (subscription_addr) и выводит их в лог. Ctrl-C прерывает
// ожидание, но не задачу на сервере.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/iancoleman/strcase"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/shaiso/aybuctl/internal/cli"
	"github.com/shaiso/aybuctl/internal/config"
	"github.com/shaiso/aybuctl/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

// remoteFlags — флаги, переопределяющие секцию [remote] конфигурации.
var remoteFlags = []struct {
	name  string
	usage string
}{
	{"host", "API base URL"},
	{"subscription-addr", "Event feed address (tcp://, ipc://, amqp://)"},
	{"username", "API username"},
	{"password", "API password"},
	{"timeout", "HTTP timeout: seconds or a duration (30s, 1m)"},
}

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configFile string
		verbose    bool
		jsonOutput bool
		noWait     bool

		env       *cli.Env
		logCloser io.Closer
	)

	rootCmd := &cobra.Command{
		Use:           "aybuctl",
		Short:         "aybuctl — instance manager CLI",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "F", "", "Config file (default "+config.DefaultFile+")")
	pf.BoolVarP(&verbose, "verbose", "V", false, "Be verbose")
	pf.BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	pf.BoolVar(&noWait, "no-wait", false, "Submit tasks without waiting for their events")
	for _, f := range remoteFlags {
		pf.String(f.name, "", f.usage)
	}

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if skipsConfig(cmd) {
			return nil
		}

		cfg, err := config.Load(config.Options{
			File:      configFile,
			Overrides: remoteOverrides(cmd.Flags()),
		})
		if err != nil {
			return err
		}

		logFile, err := config.ExpandHome(cfg.Log.File)
		if err != nil {
			return err
		}

		logger, closer, err := telemetry.SetupLogger(telemetry.LogOptions{
			Level:      cfg.Log.Level,
			Verbose:    verbose,
			Format:     cfg.Log.Format,
			File:       logFile,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
		})
		if err != nil {
			return err
		}
		logCloser = closer

		env = cli.NewEnv(cfg, logger, cli.NewOutput(jsonOutput), telemetry.NewMetrics())
		env.NoWait = noWait
		return nil
	}

	envFn := func() *cli.Env { return env }
	rootCmd.AddCommand(cli.NewCommands(envFn)...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)

	if env != nil {
		if cerr := env.Close(); cerr != nil {
			env.Logger.Warn("failed to close event feed", "error", cerr)
		}
	}
	if logCloser != nil {
		logCloser.Close()
	}

	if err != nil {
		cli.NewOutput(jsonOutput).Error(err.Error())
		return 1
	}
	return 0
}

// skipsConfig: служебным командам (help, completion) конфигурация не нужна.
func skipsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion":
			return true
		}
	}
	return false
}

// remoteOverrides собирает заданные флаги [remote] в ключи конфигурации:
// --subscription-addr → remote.subscription_addr.
func remoteOverrides(flags *pflag.FlagSet) map[string]any {
	overrides := make(map[string]any)
	for _, f := range remoteFlags {
		flag := flags.Lookup(f.name)
		if flag == nil || !flag.Changed {
			continue
		}
		overrides["remote."+strcase.ToSnake(f.name)] = flag.Value.String()
	}
	return overrides
}
