package cli

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/shaiso/aybuctl/internal/transport"
)

type redirects struct{ collection }

func (redirects) Short() string { return "Manage redirects" }

func (r redirects) Commands(envFn EnvFunc) []*cobra.Command {
	return []*cobra.Command{
		r.listRedirectsCmd(envFn),
		r.infoCmd(envFn, "SOURCE"),
		r.createCmd(envFn),
		r.editCmd(envFn),
		r.deleteCmd(envFn, "SOURCE", true),
	}
}

func (r redirects) listRedirectsCmd(envFn EnvFunc) *cobra.Command {
	var full bool
	var logRequest bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List redirects",
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

			if full {
				env.Out.Nested(resp.Body)
				return nil
			}
			env.Out.Records(resp.Body,
				[]string{"SOURCE", "DESTINATION", "TARGET_PATH", "HTTP_CODE"},
				[]string{"destination", "target_path", "http_code"},
			)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&full, "full", "f", false, "Show all the fields of every redirect")
	cmd.Flags().BoolVarP(&logRequest, "log-request", "r", false, "Log the request and response status")

	return cmd
}

func (r redirects) createCmd(envFn EnvFunc) *cobra.Command {
	var httpCode string
	var targetPath string

	cmd := &cobra.Command{
		Use:   "create SOURCE_DOMAIN DESTINATION_DOMAIN",
		Short: "Redirect a domain to an instance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]any{
				"source":      args[0],
				"destination": args[1],
			}
			if httpCode != "" {
				params["http_code"] = httpCode
			}
			if targetPath != "" {
				params["target_path"] = targetPath
			}
			return r.tracked(cmd, envFn(), http.MethodPost, r.root, params)
		},
	}

	cmd.Flags().StringVarP(&httpCode, "http-code", "c", "", "HTTP code to issue")
	cmd.Flags().StringVarP(&targetPath, "target-path", "p", "", "Target path on the destination domain")

	return cmd
}

func (r redirects) editCmd(envFn EnvFunc) *cobra.Command {
	var destination string
	var httpCode string
	var targetPath string

	cmd := &cobra.Command{
		Use:   "edit SOURCE_DOMAIN",
		Short: "Change a redirect",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]any{}
			if destination != "" {
				params["destination"] = destination
			}
			if httpCode != "" {
				params["http_code"] = httpCode
			}
			// пустой --target-path сбрасывает путь
			if cmd.Flags().Changed("target-path") {
				params["target_path"] = targetPath
			}
			if len(params) == 0 {
				return errors.New("nothing to change")
			}
			return r.tracked(cmd, envFn(), http.MethodPut, r.url(args[0]), params)
		},
	}

	cmd.Flags().StringVarP(&destination, "destination", "d", "", "Destination instance")
	cmd.Flags().StringVarP(&httpCode, "http-code", "c", "", "HTTP code to issue")
	cmd.Flags().StringVarP(&targetPath, "target-path", "p", "", "Target path on the destination domain")

	return cmd
}
