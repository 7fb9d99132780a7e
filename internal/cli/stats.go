package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func addStats(topLevel *cobra.Command, app *App) {
	show := func(cmd *cobra.Command, args []string) error {
		engine, err := app.loadEngine()
		if err != nil {
			return err
		}
		printStats(app.out, engine.State().Stats)
		return nil
	}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show or reset the focus statistics",
		Args:  cobra.NoArgs,
		RunE:  show,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the focus statistics",
			Args:  cobra.NoArgs,
			RunE:  show,
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Clear the focus statistics on this device",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				engine, err := app.loadEngine()
				if err != nil {
					return err
				}
				engine.ResetStats()
				if err := app.saveEngine(engine.State()); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(app.out, green("Statistics reset."))
				return nil
			},
		},
	)
	topLevel.AddCommand(cmd)
}
