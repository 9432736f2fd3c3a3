package cli

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/shaiso/aybuctl/internal/transport"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// newUser — параметры users create.
type newUser struct {
	Email        string   `validate:"required,email"`
	Password     string   `validate:"required"`
	Name         string   `validate:"required"`
	Surname      string   `validate:"required"`
	Company      string   `validate:"omitempty"`
	Web          string   `validate:"omitempty,url"`
	Twitter      string   `validate:"omitempty"`
	Groups       []string `validate:"dive,required"`
	Organization string   `validate:"omitempty"`
}

// params возвращает тело запроса. Пустые необязательные поля не отправляются.
func (u newUser) params() map[string]any {
	params := map[string]any{
		"email":    u.Email,
		"password": u.Password,
		"name":     u.Name,
		"surname":  u.Surname,
	}
	optional := map[string]string{
		"company":      u.Company,
		"web":          u.Web,
		"twitter":      u.Twitter,
		"organization": u.Organization,
	}
	for k, v := range optional {
		if v != "" {
			params[k] = v
		}
	}
	if len(u.Groups) > 0 {
		params["groups"] = u.Groups
	}
	return params
}

// validateUser проверяет параметры и возвращает понятную ошибку.
func validateUser(u newUser) error {
	err := validate.Struct(u)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, "missing "+field)
		default:
			msgs = append(msgs, fmt.Sprintf("invalid %s: %q", field, fe.Value()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

type users struct{ collection }

func (users) Short() string { return "Manage users" }

func (r users) Commands(envFn EnvFunc) []*cobra.Command {
	return []*cobra.Command{
		r.listCmd(envFn),
		r.infoCmd(envFn, "EMAIL"),
		r.createCmd(envFn),
		r.updateCmd(envFn),
		r.deleteCmd(envFn, "EMAIL", false),
		r.checkLoginCmd(envFn),
		r.allowedInstancesCmd(envFn),
	}
}

func (r users) createCmd(envFn EnvFunc) *cobra.Command {
	var u newUser
	var groupList string

	cmd := &cobra.Command{
		Use:   "create EMAIL",
		Short: "Create a user; the email is the username",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u.Email = args[0]
			u.Groups = splitList(groupList)
			if err := validateUser(u); err != nil {
				return err
			}

			env := envFn()
			if _, err := env.Client().Post(cmd.Context(), r.root, transport.Form(u.params())); err != nil {
				return err
			}
			env.Out.Success("User created: " + u.Email)
			return nil
		},
	}

	cmd.Flags().StringVarP(&u.Password, "password", "p", "", "User password (required)")
	cmd.Flags().StringVarP(&u.Name, "name", "n", "", "First name (required)")
	cmd.Flags().StringVarP(&u.Surname, "surname", "s", "", "Surname (required)")
	cmd.Flags().StringVarP(&u.Company, "company", "C", "", "Company")
	cmd.Flags().StringVarP(&u.Web, "web", "a", "", "Site address")
	cmd.Flags().StringVarP(&u.Twitter, "twitter", "t", "", "Twitter username")
	cmd.Flags().StringVarP(&groupList, "groups", "G", "", "Comma separated groups; every group must exist")
	cmd.Flags().StringVarP(&u.Organization, "organization", "o", "", "Organization group (must exist)")

	return cmd
}

func (r users) updateCmd(envFn EnvFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "update EMAIL KEY=VALUE...",
		Short: "Update user attributes",
		Long: "Update a user. Attributes are the ones of 'users create', given as key=value.\n" +
			"groups replaces ALL the groups of the user: groups=admin,staff",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseAttributes(args[1:])
			if err != nil {
				return err
			}
			if g, ok := params["groups"].(string); ok {
				params["groups"] = splitList(g)
			}

			env := envFn()
			resp, err := env.Client().Put(cmd.Context(), r.url(args[0]), transport.Form(params))
			if err != nil {
				return err
			}

			env.Out.Fields(resp.Body)
			return nil
		},
	}
}

func (r users) checkLoginCmd(envFn EnvFunc) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "check-login DOMAIN",
		Short: "Check whether a user can log into a domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFn()
			if email == "" {
				email = env.Client().Username()
			}
			if email == "" {
				return errors.New("no user given and no username configured")
			}

			query := url.Values{"action": {"login"}, "domain": {args[0]}}
			resp, err := env.Client().Get(cmd.Context(), r.url(email)+"?"+query.Encode())
			if err != nil {
				return err
			}

			env.Out.Fields(resp.Body)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "user", "u", "", "User to check (default: configured username)")

	return cmd
}

func (r users) allowedInstancesCmd(envFn EnvFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "allowed-instances EMAIL",
		Short: "List the instances a user can access",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFn()

			resp, err := env.Client().Get(cmd.Context(), r.url(args[0], "instances"))
			if err != nil {
				return err
			}

			env.Out.Sorted(resp.Body)
			return nil
		},
	}
}
