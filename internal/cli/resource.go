package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/spf13/cobra"

	"github.com/shaiso/aybuctl/internal/task"
	"github.com/shaiso/aybuctl/internal/transport"
)

// EnvFunc возвращает Env команды. Вызывается внутри RunE, когда
// PersistentFlags уже разобраны.
type EnvFunc func() *Env

// Resource — набор команд для одного ресурса API.
type Resource interface {
	// Name — имя группы команд (instances, users, ...).
	Name() string
	Short() string
	Commands(envFn EnvFunc) []*cobra.Command
}

// Resources возвращает все ресурсы CLI.
func Resources() []Resource {
	return []Resource{
		instances{newCollection("instances", "")},
		tasks{newCollection("tasks", "")},
		envs{newCollection("envs", "/environments")},
		themes{newCollection("themes", "")},
		groups{newCollection("groups", "")},
		users{newCollection("users", "")},
		redirects{newCollection("redirects", "")},
		archives{newCollection("archives", "")},
		aliases{newCollection("aliases", "")},
	}
}

// NewResourceCmd создаёт группу команд ресурса.
func NewResourceCmd(r Resource, envFn EnvFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   r.Name(),
		Short: r.Short(),
	}
	cmd.AddCommand(r.Commands(envFn)...)
	return cmd
}

// NewCommands создаёт группы команд для всех ресурсов.
func NewCommands(envFn EnvFunc) []*cobra.Command {
	resources := Resources()
	cmds := make([]*cobra.Command, len(resources))
	for i, r := range resources {
		cmds[i] = NewResourceCmd(r, envFn)
	}
	return cmds
}

// collection — общие команды ресурса: list, info, delete.
type collection struct {
	name string
	root string
}

func newCollection(name, root string) collection {
	if root == "" {
		root = "/" + name
	}
	return collection{name: name, root: root}
}

func (c collection) Name() string {
	return c.name
}

// url собирает путь ресурса: root/part1/part2. Части экранируются.
func (c collection) url(parts ...string) string {
	var b strings.Builder
	b.WriteString(c.root)
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(strings.TrimPrefix(p, "/")))
	}
	return b.String()
}

func (c collection) listCmd(envFn EnvFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s", c.name),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFn()

			resp, err := env.Client().Get(cmd.Context(), c.root)
			if err != nil {
				return err
			}

			env.Out.List(resp.Body)
			return nil
		},
	}
}

func (c collection) infoCmd(envFn EnvFunc, arg string) *cobra.Command {
	return &cobra.Command{
		Use:   "info " + arg,
		Short: "Show details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFn()

			resp, err := env.Client().Get(cmd.Context(), c.url(args[0]))
			if err != nil {
				return err
			}

			env.Out.Fields(resp.Body)
			return nil
		},
	}
}

// deleteCmd удаляет ресурс. tracked=true — удаление выполняется на
// сервере как задача, и команда ждёт её событий.
func (c collection) deleteCmd(envFn EnvFunc, arg string, tracked bool) *cobra.Command {
	return &cobra.Command{
		Use:   "delete " + arg,
		Short: "Delete " + strings.ToLower(arg),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFn()
			path := c.url(args[0])

			if tracked {
				_, err := env.Execute(cmd.Context(), task.Request{Method: http.MethodDelete, Path: path})
				return err
			}

			if _, err := env.Client().Delete(cmd.Context(), path); err != nil {
				return err
			}
			env.Out.Success(fmt.Sprintf("Deleted: %s", args[0]))
			return nil
		},
	}
}

// tracked выполняет изменяющий запрос как задачу.
func (c collection) tracked(cmd *cobra.Command, env *Env, method, path string, params map[string]any) error {
	_, err := env.Execute(cmd.Context(), task.Request{
		Method: method,
		Path:   path,
		Form:   transport.Form(params),
	})
	return err
}

// parseAttributes разбирает аргументы вида key=value.
// Ключи приводятся к snake_case: logoWidth и logo-width дают logo_width.
func parseAttributes(args []string) (map[string]any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("missing attributes, expected KEY=VALUE")
	}
	attrs := make(map[string]any, len(args))
	for _, kv := range args {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid attribute format %q, expected KEY=VALUE", kv)
		}
		attrs[strcase.ToSnake(k)] = v
	}
	return attrs, nil
}

// splitList разбирает список через запятую, пустые элементы пропускаются.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
