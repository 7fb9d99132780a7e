package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"reflect"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ataraxia/internal/devicestore"
	"ataraxia/internal/model"
	"ataraxia/internal/timer"
)

type timerOptions struct {
	mode string
	once bool
	tick time.Duration
}

func addTimer(topLevel *cobra.Command, app *App) {
	opts := timerOptions{}
	cmd := &cobra.Command{
		Use:   "timer",
		Short: "Run the focus timer until interrupted",
		Example: `
ataraxia timer
ataraxia timer --mode short_break --once
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.runTimer(ctx, opts)
		},
	}
	cmd.Flags().StringVar(&opts.mode, "mode", "", "start in this mode (focus, short_break, long_break)")
	cmd.Flags().BoolVar(&opts.once, "once", false, "stop after the current phase completes")
	cmd.Flags().DurationVar(&opts.tick, "tick", timer.DefaultTickInterval, "length of one timer second")
	_ = cmd.Flags().MarkHidden("tick")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show the persisted timer phase",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				engine, err := app.loadEngine()
				if err != nil {
					return err
				}
				s := engine.State()
				_, _ = fmt.Fprintf(app.out, "%s  %s  (%d focus sessions completed)\n",
					modeLabel(s.Mode), timer.FormatClock(s.SecondsRemaining), s.Stats.CompletedFocusSessions)
				return nil
			},
		},
		&cobra.Command{
			Use:   "skip",
			Short: "Move to the next phase as if the current one completed",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.mutateTimer(func(e *timer.Engine) error {
					e.Skip()
					return nil
				})
			},
		},
		&cobra.Command{
			Use:       "mode <focus|short_break|long_break>",
			Short:     "Switch to a mode with a full phase",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{string(model.ModeFocus), string(model.ModeShortBreak), string(model.ModeLongBreak)},
			RunE: func(cmd *cobra.Command, args []string) error {
				mode := model.Mode(args[0])
				if !mode.Valid() {
					return fmt.Errorf("unknown mode %q", args[0])
				}
				return app.mutateTimer(func(e *timer.Engine) error {
					e.SetMode(mode)
					return nil
				})
			},
		},
	)

	topLevel.AddCommand(cmd)
}

// mutateTimer applies fn to the persisted engine, saves and prints the result.
func (a *App) mutateTimer(fn func(*timer.Engine) error) error {
	engine, err := a.loadEngine()
	if err != nil {
		return err
	}
	if err := fn(engine); err != nil {
		return err
	}
	s := engine.State()
	if err := a.saveEngine(s); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(a.out, "%s  %s\n", modeLabel(s.Mode), timer.FormatClock(s.SecondsRemaining))
	return nil
}

func (a *App) runTimer(ctx context.Context, opts timerOptions) error {
	engine, err := a.loadEngine()
	if err != nil {
		return err
	}
	mode := model.Mode(opts.mode)
	if opts.mode != "" && !mode.Valid() {
		return fmt.Errorf("unknown mode %q", opts.mode)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	view := &timerView{out: a.out, bell: a.cfg.Bell}
	own := &lastWrite{}

	engine.OnChange(func(s timer.State) {
		doc := timerDocument(s)
		own.set(doc)
		if err := a.store.SaveTimer(doc); err != nil {
			a.logger.Error("persist timer", slog.Any("error", err))
		}
		view.render(s)
	})
	engine.SetCompletionCallback(func(c timer.Completion) {
		view.completed(c)
		if opts.once {
			cancel()
		}
	})

	if opts.mode != "" {
		engine.SetMode(mode)
	}

	followed := make(chan struct{})
	changes, err := a.store.Watch(ctx)
	if err != nil {
		a.logger.Warn("device store changes will not be followed", slog.Any("error", err))
		close(followed)
	} else {
		go func() {
			defer close(followed)
			a.followTimerChanges(engine, changes, own, view)
		}()
	}

	engine.Start()
	err = timer.NewDriver(engine, opts.tick, a.logger).Run(ctx)
	engine.Pause()
	cancel()
	<-followed
	_, _ = fmt.Fprintln(a.out)

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// followTimerChanges reloads the engine when another process rewrites the
// timer document, e.g. a migration restoring remote settings.
func (a *App) followTimerChanges(engine *timer.Engine, changes <-chan devicestore.Change, own *lastWrite, view *timerView) {
	for change := range changes {
		if change.Key != devicestore.KeyTimer || change.Removed {
			continue
		}
		doc, err := a.store.LoadTimer()
		if err != nil || doc == nil {
			a.logger.Debug("skip unreadable timer change", slog.Any("error", err))
			continue
		}
		if own.is(*doc) {
			continue
		}

		current := engine.State()
		settings, stats := current.Settings, current.Stats
		if doc.Settings != nil {
			settings = *doc.Settings
		}
		if doc.Stats != nil {
			stats = *doc.Stats
		}
		engine.Restore(settings, stats, doc.Mode)
		view.note("Timer settings changed elsewhere; reloaded and paused.")
		view.render(engine.State())
	}
}

// lastWrite remembers the two most recent documents this process wrote. A
// change event may observe either while the newer one is being saved.
type lastWrite struct {
	mu     sync.Mutex
	recent [2]*devicestore.TimerDocument
}

func (l *lastWrite) set(doc devicestore.TimerDocument) {
	l.mu.Lock()
	l.recent[0], l.recent[1] = l.recent[1], &doc
	l.mu.Unlock()
}

func (l *lastWrite) is(doc devicestore.TimerDocument) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, own := range l.recent {
		if own != nil && reflect.DeepEqual(*own, doc) {
			return true
		}
	}
	return false
}
