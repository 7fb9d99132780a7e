// Package cli is the ataraxia command line: the timer, local preferences and
// the account session of this device.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ataraxia/internal/config"
	"ataraxia/internal/devicestore"
	"ataraxia/internal/environment"
	"ataraxia/internal/model"
	"ataraxia/internal/remote"
	"ataraxia/internal/timer"
)

// App is the state shared by every command of one invocation.
type App struct {
	configPath string
	dataDir    string

	cfg     *config.Client
	store   *devicestore.Store
	catalog *environment.Catalog
	logger  *slog.Logger
	out     io.Writer
}

func New() *cobra.Command {
	app := &App{catalog: environment.Default()}

	cmd := &cobra.Command{
		Use:           "ataraxia",
		Short:         "A calm focus timer with synced preferences.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.SetOut(color.Output)
	cmd.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default ./config.yaml or ~/.config/ataraxia/config.yaml)")
	cmd.PersistentFlags().StringVar(&app.dataDir, "data-dir", "", "directory of the device store")

	addTimer(cmd, app)
	addSettings(cmd, app)
	addStats(cmd, app)
	addEnv(cmd, app)
	addTheme(cmd, app)
	addAccount(cmd, app)
	return cmd
}

func (a *App) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadClient(viper.New(), a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.dataDir != "" {
		cfg.DataDir = a.dataDir
	}
	a.cfg = cfg

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelWarn
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	a.out = cmd.OutOrStdout()

	store, err := devicestore.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	a.store = store
	return nil
}

func (a *App) client() *remote.Client {
	return remote.New(a.cfg.ServerURL, a.cfg.RequestTimeout())
}

// loadEngine rebuilds a paused engine from the device store, falling back to
// the configured defaults.
func (a *App) loadEngine() (*timer.Engine, error) {
	settings := a.cfg.Timer.Settings()
	stats := model.TimerStats{}
	mode := model.ModeFocus

	doc, err := a.store.LoadTimer()
	if err != nil {
		return nil, fmt.Errorf("load timer: %w", err)
	}
	if doc != nil {
		if doc.Settings != nil {
			settings = *doc.Settings
		}
		if doc.Stats != nil {
			stats = *doc.Stats
		}
		mode = doc.Mode
	}

	engine := timer.New(settings, stats)
	engine.Restore(settings, stats, mode)
	return engine, nil
}

func (a *App) saveEngine(state timer.State) error {
	if err := a.store.SaveTimer(timerDocument(state)); err != nil {
		return fmt.Errorf("save timer: %w", err)
	}
	return nil
}

func timerDocument(state timer.State) devicestore.TimerDocument {
	settings := state.Settings
	stats := state.Stats
	return devicestore.TimerDocument{Settings: &settings, Stats: &stats, Mode: state.Mode}
}
