package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ataraxia/internal/model"
)

func addTheme(topLevel *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:       "theme [light|dark|system]",
		Short:     "Show or set the colour theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{model.ThemeLight, model.ThemeDark, model.ThemeSystem},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				theme, err := app.store.LoadTheme()
				if err != nil {
					return fmt.Errorf("load theme: %w", err)
				}
				current := model.ThemeSystem
				if theme != nil {
					current = theme.Theme
				}
				_, _ = fmt.Fprintf(app.out, "theme: %s\n", bold(current))
				return nil
			}

			if !model.ValidTheme(args[0]) {
				return fmt.Errorf("theme must be light, dark or system, got %q", args[0])
			}
			if err := app.store.SaveTheme(model.ThemePreference{Theme: args[0]}); err != nil {
				return fmt.Errorf("save theme: %w", err)
			}
			_, _ = fmt.Fprintf(app.out, "%s theme set to %s\n", checked, bold(args[0]))
			return nil
		},
	}
	topLevel.AddCommand(cmd)
}
