package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/shaiso/aybuctl/internal/transport"
)

type envs struct{ collection }

func (envs) Short() string { return "Manage environments" }

func (r envs) Commands(envFn EnvFunc) []*cobra.Command {
	return []*cobra.Command{
		r.listCmd(envFn),
		r.infoCmd(envFn, "NAME"),
		r.createCmd(envFn),
		r.deleteCmd(envFn, "NAME", false),
		r.renameCmd(envFn),
	}
}

func (r envs) createCmd(envFn EnvFunc) *cobra.Command {
	var venv string

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]any{"name": args[0]}
			if venv != "" {
				params["venv_name"] = venv
			}
			return r.tracked(cmd, envFn(), http.MethodPost, r.root, params)
		},
	}

	cmd.Flags().StringVar(&venv, "venv-name", "", "Virtualenv to use")

	return cmd
}

func (r envs) renameCmd(envFn EnvFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "rename NAME NEW_NAME",
		Short: "Rename an environment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFn()

			form := transport.Form(map[string]any{"name": args[1]})
			if _, err := env.Client().Put(cmd.Context(), r.url(args[0]), form); err != nil {
				return err
			}
			env.Out.Success(fmt.Sprintf("Environment renamed: %s -> %s", args[0], args[1]))
			return nil
		},
	}
}
