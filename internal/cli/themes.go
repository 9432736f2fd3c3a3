package cli

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shaiso/aybuctl/internal/transport"
)

var sizeRe = regexp.MustCompile(`^(\d+)[xX](\d+)$`)

// parseSize разбирает размер WIDTHxHEIGHT.
func parseSize(s string) (int, int, error) {
	m := sizeRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf("invalid size %q, expected WIDTHxHEIGHT", s)
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	return w, h, nil
}

type themes struct{ collection }

func (themes) Short() string { return "Manage themes" }

func (r themes) Commands(envFn EnvFunc) []*cobra.Command {
	return []*cobra.Command{
		r.listCmd(envFn),
		r.infoCmd(envFn, "NAME"),
		r.createCmd(envFn),
		r.updateCmd(envFn),
		r.deleteCmd(envFn, "NAME", false),
	}
}

func (r themes) createCmd(envFn EnvFunc) *cobra.Command {
	var (
		name           string
		author         string
		owner          string
		bannerSize     string
		logoSize       string
		mainMenuLevels int
		templateLevels int
		imageWidth     string
		version        string
		parent         string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bannerW, bannerH, err := parseSize(bannerSize)
			if err != nil {
				return fmt.Errorf("banner size: %w", err)
			}
			logoW, logoH, err := parseSize(logoSize)
			if err != nil {
				return fmt.Errorf("logo size: %w", err)
			}

			params := map[string]any{
				"name":             name,
				"author":           author,
				"owner":            owner,
				"banner_width":     bannerW,
				"banner_height":    bannerH,
				"logo_width":       logoW,
				"logo_height":      logoH,
				"main_menu_levels": mainMenuLevels,
				"template_levels":  templateLevels,
				"image_full_size":  imageWidth,
			}
			if parent != "" {
				params["parent"] = parent
			}
			if version != "" {
				params["version"] = version
			}

			env := envFn()
			resp, err := env.Client().Post(cmd.Context(), r.root, transport.Form(params))
			if err != nil {
				return err
			}

			env.Out.Fields(resp.Body)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "t", "", "Theme name")
	cmd.Flags().StringVarP(&author, "author", "a", "", "Theme author email")
	cmd.Flags().StringVarP(&owner, "owner", "o", "", "Theme owner email")
	cmd.Flags().StringVarP(&bannerSize, "banner-size", "b", "", "Banner size, e.g. 920x240")
	cmd.Flags().StringVarP(&logoSize, "logo-size", "l", "", "Logo size, e.g. 100x40")
	cmd.Flags().IntVarP(&mainMenuLevels, "main-menu-levels", "L", 0, "Main menu levels")
	cmd.Flags().IntVarP(&templateLevels, "template-levels", "T", 0, "Max template levels")
	cmd.Flags().StringVarP(&imageWidth, "image-width", "I", "", "Full image width in pixels")
	cmd.Flags().StringVar(&version, "version", "", "Theme version")
	cmd.Flags().StringVarP(&parent, "parent", "p", "", "Parent theme name (must exist)")

	for _, f := range []string{"name", "author", "owner", "banner-size", "logo-size", "main-menu-levels", "template-levels", "image-width"} {
		_ = cmd.MarkFlagRequired(f)
	}

	return cmd
}

func (r themes) updateCmd(envFn EnvFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "update NAME KEY=VALUE...",
		Short: "Update theme attributes",
		Long:  "Update a theme. Attributes are the ones of 'themes create', given as key=value.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseAttributes(args[1:])
			if err != nil {
				return err
			}
			params["name"] = args[0]

			env := envFn()
			resp, err := env.Client().Post(cmd.Context(), r.url(args[0]), transport.Form(params))
			if err != nil {
				return err
			}

			env.Out.Fields(resp.Body)
			return nil
		},
	}
}
