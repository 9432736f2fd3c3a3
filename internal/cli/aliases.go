package cli

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/shaiso/aybuctl/internal/transport"
)

type aliases struct{ collection }

func (aliases) Short() string { return "Manage domain aliases" }

func (r aliases) Commands(envFn EnvFunc) []*cobra.Command {
	return []*cobra.Command{
		r.listAliasesCmd(envFn),
		r.infoCmd(envFn, "DOMAIN"),
		r.createCmd(envFn),
		r.editCmd(envFn),
		r.deleteCmd(envFn, "DOMAIN", true),
	}
}

func (r aliases) listAliasesCmd(envFn EnvFunc) *cobra.Command {
	var logRequest bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFn()

			var opts []transport.Option
			if !logRequest {
				opts = append(opts, transport.Quiet())
			}
			resp, err := env.Client().Get(cmd.Context(), r.root, opts...)
			if err != nil {
				return err
			}

			env.Out.Records(resp.Body, []string{"DOMAIN", "DESTINATION"}, []string{"destination"})
			return nil
		},
	}

	cmd.Flags().BoolVarP(&logRequest, "log-request", "r", false, "Log the request and response status")

	return cmd
}

func (r aliases) createCmd(envFn EnvFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "create DOMAIN DESTINATION_DOMAIN",
		Short: "Make a domain an alias of an instance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.tracked(cmd, envFn(), http.MethodPost, r.root, map[string]any{
				"domain":      args[0],
				"destination": args[1],
			})
		},
	}
}

func (r aliases) editCmd(envFn EnvFunc) *cobra.Command {
	var destination string
	var newDomain string

	cmd := &cobra.Command{
		Use:   "edit DOMAIN",
		Short: "Change an alias",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]any{}
			if destination != "" {
				params["destination"] = destination
			}
			if newDomain != "" {
				params["new_domain"] = newDomain
			}
			if len(params) == 0 {
				return errors.New("nothing to change")
			}
			return r.tracked(cmd, envFn(), http.MethodPut, r.url(args[0]), params)
		},
	}

	cmd.Flags().StringVarP(&destination, "destination", "d", "", "Destination instance")
	cmd.Flags().StringVarP(&newDomain, "new-domain", "n", "", "New domain for the alias")

	return cmd
}
