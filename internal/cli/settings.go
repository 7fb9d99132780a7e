package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ataraxia/internal/model"
	"ataraxia/internal/timer"
)

func addSettings(topLevel *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the timer settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.showSettings()
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the timer settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.showSettings()
		},
	}

	var focus, shortBreak, longBreak, sessions int
	var autoStart bool
	set := &cobra.Command{
		Use:   "set",
		Short: "Change one or more timer settings",
		Example: `
ataraxia settings set --focus 50 --short-break 10
ataraxia settings set --auto-start=false
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			update := timer.ConfigUpdate{}
			if cmd.Flags().Changed("focus") {
				update.FocusMinutes = &focus
			}
			if cmd.Flags().Changed("short-break") {
				update.ShortBreakMinutes = &shortBreak
			}
			if cmd.Flags().Changed("long-break") {
				update.LongBreakMinutes = &longBreak
			}
			if cmd.Flags().Changed("sessions") {
				update.SessionsBeforeLongBreak = &sessions
			}
			if cmd.Flags().Changed("auto-start") {
				update.AutoStartEnabled = &autoStart
			}
			return app.updateSettings(update)
		},
	}
	set.Flags().IntVar(&focus, "focus", 0, "focus minutes (1-60)")
	set.Flags().IntVar(&shortBreak, "short-break", 0, "short break minutes (1-30)")
	set.Flags().IntVar(&longBreak, "long-break", 0, "long break minutes (5-60)")
	set.Flags().IntVar(&sessions, "sessions", 0, "focus sessions before a long break")
	set.Flags().BoolVar(&autoStart, "auto-start", true, "start the next phase automatically")

	toggle := &cobra.Command{
		Use:   "toggle-auto-start",
		Short: "Flip automatic start of the next phase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.mutateSettings(func(e *timer.Engine) error {
				e.ToggleAutoStart()
				return nil
			})
		},
	}

	cmd.AddCommand(show, set, toggle)
	topLevel.AddCommand(cmd)
}

func (a *App) showSettings() error {
	engine, err := a.loadEngine()
	if err != nil {
		return err
	}
	printSettings(a.out, engine.State().Settings)
	return nil
}

// updateSettings applies update within the bounds the settings form allows.
func (a *App) updateSettings(update timer.ConfigUpdate) error {
	return a.mutateSettings(func(e *timer.Engine) error {
		candidate := e.State().Settings
		if update.FocusMinutes != nil {
			candidate.FocusMinutes = *update.FocusMinutes
		}
		if update.ShortBreakMinutes != nil {
			candidate.ShortBreakMinutes = *update.ShortBreakMinutes
		}
		if update.LongBreakMinutes != nil {
			candidate.LongBreakMinutes = *update.LongBreakMinutes
		}
		if update.SessionsBeforeLongBreak != nil {
			candidate.SessionsBeforeLongBreak = *update.SessionsBeforeLongBreak
		}
		if err := (model.LocalSnapshot{TimerSettings: &candidate}).Validate(); err != nil {
			return err
		}
		e.UpdateConfiguration(update)
		return nil
	})
}

func (a *App) mutateSettings(fn func(*timer.Engine) error) error {
	engine, err := a.loadEngine()
	if err != nil {
		return err
	}
	if err := fn(engine); err != nil {
		return err
	}
	if err := a.saveEngine(engine.State()); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(a.out, green("Settings saved."))
	printSettings(a.out, engine.State().Settings)
	return nil
}
