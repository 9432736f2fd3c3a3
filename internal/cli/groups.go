package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shaiso/aybuctl/internal/transport"
)

type groups struct{ collection }

func (groups) Short() string { return "Manage groups" }

func (r groups) Commands(envFn EnvFunc) []*cobra.Command {
	return []*cobra.Command{
		r.listCmd(envFn),
		r.infoCmd(envFn, "NAME"),
		r.createCmd(envFn),
		r.updateCmd(envFn),
		r.deleteCmd(envFn, "NAME", false),
	}
}

func (r groups) createCmd(envFn EnvFunc) *cobra.Command {
	var instance string

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an empty group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]any{"name": args[0]}
			if instance != "" {
				params["instance"] = instance
			}

			env := envFn()
			if _, err := env.Client().Post(cmd.Context(), r.root, transport.Form(params)); err != nil {
				return err
			}
			env.Out.Success("Group created: " + args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&instance, "instance", "i", "", "Instance of the group")

	return cmd
}

func (r groups) updateCmd(envFn EnvFunc) *cobra.Command {
	var newName string
	var instance string

	cmd := &cobra.Command{
		Use:   "update NAME",
		Short: "Rename a group or change its instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]any{}
			if newName != "" {
				params["name"] = newName
			}
			// пустой --instance снимает привязку к инстансу
			if cmd.Flags().Changed("instance") {
				params["instance"] = instance
			}
			if len(params) == 0 {
				return errors.New("either --new-name or --instance is required")
			}

			env := envFn()
			if _, err := env.Client().Put(cmd.Context(), r.url(args[0]), transport.Form(params)); err != nil {
				return err
			}
			env.Out.Success(fmt.Sprintf("Group updated: %s", args[0]))
			return nil
		},
	}

	cmd.Flags().StringVarP(&newName, "new-name", "n", "", "New group name")
	cmd.Flags().StringVarP(&instance, "instance", "i", "", "Instance of the group")

	return cmd
}
