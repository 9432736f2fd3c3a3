package cli

import (
	"net/http"

	"github.com/spf13/cobra"
)

// instanceAction — действие над инстансом: PUT {action: ...}.
type instanceAction struct {
	use    string
	action string
	short  string
}

var instanceActions = []instanceAction{
	{"enable", "enable", "Re-enable a previously disabled instance"},
	{"disable", "disable", "Disable an instance: stop the vassal, keep data and db"},
	{"flush", "flush_cache", "Flush the cache of an instance"},
	{"reload", "reload", "Reload the vassal of an instance"},
	{"kill", "kill", "Kill the vassal of an instance (SIGTERM)"},
	{"sentence", "sentence", "Kill the vassal of an instance (SIGKILL)"},
	{"archive", "archive", "Create an archive of an instance"},
}

type instances struct{ collection }

func (instances) Short() string { return "Manage instances" }

func (r instances) Commands(envFn EnvFunc) []*cobra.Command {
	cmds := []*cobra.Command{
		r.listCmd(envFn),
		r.infoCmd(envFn, "DOMAIN"),
		r.deployCmd(envFn),
		r.deleteCmd(envFn, "DOMAIN", true),
		r.restoreCmd(envFn),
	}
	for _, a := range instanceActions {
		cmds = append(cmds, r.actionCmd(envFn, a))
	}
	return cmds
}

func (r instances) deployCmd(envFn EnvFunc) *cobra.Command {
	var theme string
	var language string
	var disabled bool

	cmd := &cobra.Command{
		Use:   "deploy DOMAIN ENVIRONMENT OWNER TECHNICAL_CONTACT",
		Short: "Deploy a new instance for a domain",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.tracked(cmd, envFn(), http.MethodPost, r.root, map[string]any{
				"domain":                  args[0],
				"environment_name":        args[1],
				"owner_email":             args[2],
				"technical_contact_email": args[3],
				"theme":                   theme,
				"default_language":        language,
				"enabled":                 !disabled,
			})
		},
	}

	cmd.Flags().StringVar(&theme, "theme", "", "Theme name")
	cmd.Flags().StringVar(&language, "default-language", "it", "Default language")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Deploy the instance disabled")

	return cmd
}

func (r instances) actionCmd(envFn EnvFunc, a instanceAction) *cobra.Command {
	return &cobra.Command{
		Use:   a.use + " DOMAIN",
		Short: a.short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.tracked(cmd, envFn(), http.MethodPut, r.url(args[0]), map[string]any{
				"action": a.action,
			})
		},
	}
}

func (r instances) restoreCmd(envFn EnvFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "restore DOMAIN ARCHIVE",
		Short: "Restore an instance from an archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.tracked(cmd, envFn(), http.MethodPut, r.url(args[0]), map[string]any{
				"action":  "restore",
				"archive": args[1],
			})
		},
	}
}
