package cli

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"ataraxia/internal/environment"
	"ataraxia/internal/model"
)

func addEnv(topLevel *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Choose the focus environment and its sound levels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.showEnvironment()
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the available environments",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.listEnvironments()
			},
		},
		&cobra.Command{
			Use:   "use <environment>",
			Short: "Switch the current environment",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.mutateEnvironment(func(m *environment.Mixer) error {
					if !m.SetCurrentEnvironment(args[0]) {
						return fmt.Errorf("unknown environment %q", args[0])
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "volume <0-100>",
			Short: "Set the master volume",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := parseVolume(args[0])
				if err != nil {
					return err
				}
				return app.mutateEnvironment(func(m *environment.Mixer) error {
					m.SetMasterVolume(v)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "track <track> <0-100>",
			Short: "Set the volume of one track",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := parseVolume(args[1])
				if err != nil {
					return err
				}
				return app.mutateEnvironment(func(m *environment.Mixer) error {
					if !m.SetTrackVolume(args[0], v) {
						return fmt.Errorf("unknown track %q", args[0])
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "mute",
			Short: "Mute all environment audio",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.mutateEnvironment(func(m *environment.Mixer) error {
					m.SetMuted(true)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "unmute",
			Short: "Unmute environment audio",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.mutateEnvironment(func(m *environment.Mixer) error {
					m.SetMuted(false)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "favorite <environment>",
			Short: "Add or remove an environment from the favourites",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.mutateEnvironment(func(m *environment.Mixer) error {
					if _, ok := app.catalog.Get(args[0]); !ok {
						return fmt.Errorf("unknown environment %q", args[0])
					}
					m.ToggleFavorite(args[0])
					return nil
				})
			},
		},
	)
	topLevel.AddCommand(cmd)
}

func parseVolume(raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 || v > 100 {
		return 0, fmt.Errorf("volume must be a number between 0 and 100, got %q", raw)
	}
	return v, nil
}

func (a *App) loadMixer() (*environment.Mixer, error) {
	prefs, err := a.store.LoadEnvironment()
	if err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	if prefs == nil {
		defaults := model.DefaultEnvironmentPreferences()
		prefs = &defaults
	}
	return environment.NewMixer(a.catalog, *prefs), nil
}

func (a *App) mutateEnvironment(fn func(*environment.Mixer) error) error {
	mixer, err := a.loadMixer()
	if err != nil {
		return err
	}
	if err := fn(mixer); err != nil {
		return err
	}
	if err := a.store.SaveEnvironment(mixer.Preferences()); err != nil {
		return fmt.Errorf("save environment: %w", err)
	}
	return a.printEnvironment(mixer)
}

func (a *App) showEnvironment() error {
	mixer, err := a.loadMixer()
	if err != nil {
		return err
	}
	return a.printEnvironment(mixer)
}

func (a *App) printEnvironment(mixer *environment.Mixer) error {
	prefs := mixer.Preferences()
	env, ok := mixer.Current()
	if !ok {
		_, _ = fmt.Fprintf(a.out, "%s %s\n", yellow("Unknown environment"), prefs.CurrentEnvironmentID)
		return nil
	}

	header := fmt.Sprintf("%s  master %d%%", bold(env.Name), prefs.MasterVolume)
	if prefs.AudioMuted {
		header += "  " + red("muted")
	}
	_, _ = fmt.Fprintln(a.out, header)

	tbl := newTable()
	tbl.AddRow(bold("Track"), bold("Category"), bold("Level"), bold("Plays at"))
	for _, tr := range env.Tracks {
		tbl.AddRow(tr.ID, string(tr.Category), fmt.Sprintf("%d%%", mixer.TrackVolume(tr.ID)), fmt.Sprintf("%d%%", mixer.EffectiveVolume(tr.ID)))
	}
	_, _ = fmt.Fprintln(a.out, tbl)
	return nil
}

func (a *App) listEnvironments() error {
	mixer, err := a.loadMixer()
	if err != nil {
		return err
	}
	prefs := mixer.Preferences()

	tbl := newTable()
	tbl.AddRow("", bold("ID"), bold("Name"), bold("Tracks"), bold("Favourite"))
	for _, env := range a.catalog.List() {
		marker := ""
		if env.ID == prefs.CurrentEnvironmentID {
			marker = checked
		}
		fav := ""
		if slices.Contains(prefs.FavoriteEnvironments, env.ID) {
			fav = yellow("★")
		}
		tbl.AddRow(marker, env.ID, env.Name, len(env.Tracks), fav)
	}
	_, _ = fmt.Fprintln(a.out, tbl)
	return nil
}
