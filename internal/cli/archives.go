package cli

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shaiso/aybuctl/internal/transport"
)

// archiveExt — расширение скачанного архива.
const archiveExt = ".tar.gz"

type archives struct{ collection }

func (archives) Short() string { return "Manage instance archives" }

func (r archives) Commands(envFn EnvFunc) []*cobra.Command {
	return []*cobra.Command{
		r.listCmd(envFn),
		r.infoCmd(envFn, "NAME"),
		r.createCmd(envFn),
		r.renameCmd(envFn),
		r.downloadCmd(envFn),
		r.deleteCmd(envFn, "NAME", false),
	}
}

func (r archives) createCmd(envFn EnvFunc) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create DOMAIN",
		Short: "Archive an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]any{"domain": args[0]}
			if name != "" {
				params["name"] = name
			}
			return r.tracked(cmd, envFn(), http.MethodPost, r.root, params)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Archive name")

	return cmd
}

func (r archives) renameCmd(envFn EnvFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "rename NAME NEW_NAME",
		Short: "Rename an archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFn()

			form := transport.Form(map[string]any{"name": args[1]})
			if _, err := env.Client().Put(cmd.Context(), r.url(args[0]), form); err != nil {
				return err
			}
			env.Out.Success(fmt.Sprintf("Archive renamed: %s -> %s", args[0], args[1]))
			return nil
		},
	}
}

func (r archives) downloadCmd(envFn EnvFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "download NAME PATH",
		Short: "Download an archive to PATH.tar.gz (or PATH/NAME.tar.gz)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFn()

			resp, err := env.Client().Get(cmd.Context(), r.url(args[0]))
			if err != nil {
				return err
			}

			dest := archivePath(args[0], args[1])
			if err := os.WriteFile(dest, resp.Raw, 0o644); err != nil {
				return fmt.Errorf("save archive: %w", err)
			}
			env.Out.Success(fmt.Sprintf("Archive saved: %s (%d bytes)", dest, len(resp.Raw)))
			return nil
		},
	}
}

// archivePath: если dest — каталог, архив сохраняется в нём под своим именем.
func archivePath(name, dest string) string {
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		dest = filepath.Join(dest, name)
	}
	return dest + archiveExt
}
