package cli

import (
	"github.com/spf13/cobra"

	"github.com/shaiso/aybuctl/internal/transport"
)

type tasks struct{ collection }

func (tasks) Short() string { return "Inspect server-side tasks" }

func (r tasks) Commands(envFn EnvFunc) []*cobra.Command {
	return []*cobra.Command{
		r.listCmd(envFn),
		r.infoCmd(envFn, "TASK"),
		r.logsCmd(envFn),
		r.deleteCmd(envFn, "TASK", false),
		r.flushCmd(envFn),
		r.flushLogsCmd(envFn),
	}
}

func (r tasks) logsCmd(envFn EnvFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "logs TASK",
		Short: "Show the logs of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFn()

			resp, err := env.Client().Get(cmd.Context(), r.url(args[0], "logs"))
			if err != nil {
				return err
			}

			env.Out.Lines(resp.Body)
			return nil
		},
	}
}

func (r tasks) flushCmd(envFn EnvFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Remove all finished tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFn()

			if _, err := env.Client().Delete(cmd.Context(), r.root, transport.Debug()); err != nil {
				return err
			}
			env.Out.Success("Tasks flushed")
			return nil
		},
	}
}

func (r tasks) flushLogsCmd(envFn EnvFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "flush-logs TASK",
		Short: "Remove the logs of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFn()

			if _, err := env.Client().Delete(cmd.Context(), r.url(args[0], "logs"), transport.Debug()); err != nil {
				return err
			}
			env.Out.Success("Logs flushed: " + args[0])
			return nil
		},
	}
}
