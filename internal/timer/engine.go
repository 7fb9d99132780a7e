// Package timer implements the focus timer state machine. The engine owns no
// I/O: a Driver advances it once per second and persistence happens through
// the OnChange hook.
package timer

import (
	"sync"

	"ataraxia/internal/model"
)

// Completion describes the phase that just ran out.
type Completion struct {
	Mode                   model.Mode
	CompletedFocusSessions int
}

type CompletionFunc func(Completion)

type ChangeFunc func(State)

// State is a copy of the engine at one instant.
type State struct {
	Mode             model.Mode          `json:"mode"`
	SecondsRemaining int                 `json:"secondsRemaining"`
	Running          bool                `json:"running"`
	Settings         model.TimerSettings `json:"settings"`
	Stats            model.TimerStats    `json:"stats"`
}

// PhaseSeconds is the full length of the active phase.
func (s State) PhaseSeconds() int {
	return s.Settings.SecondsFor(s.Mode)
}

// ConfigUpdate carries a partial settings change; nil fields are left alone.
type ConfigUpdate struct {
	FocusMinutes            *int
	ShortBreakMinutes       *int
	LongBreakMinutes        *int
	SessionsBeforeLongBreak *int
	AutoStartEnabled        *bool
}

type Engine struct {
	mu sync.Mutex

	settings  model.TimerSettings
	stats     model.TimerStats
	mode      model.Mode
	remaining int
	running   bool

	// epoch changes whenever mode or remaining are replaced outside Tick.
	epoch uint64

	onComplete CompletionFunc
	onChange   ChangeFunc
}

// New returns a paused engine in Focus mode.
func New(settings model.TimerSettings, stats model.TimerStats) *Engine {
	e := &Engine{}
	e.restoreLocked(settings, stats, model.ModeFocus)
	return e
}

// Restore rehydrates persisted settings and stats. The engine always comes
// back paused with a full phase for mode (Focus when mode is unknown). It does
// not fire the change hook.
func (e *Engine) Restore(settings model.TimerSettings, stats model.TimerStats, mode model.Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.restoreLocked(settings, stats, mode)
}

func (e *Engine) restoreLocked(settings model.TimerSettings, stats model.TimerStats, mode model.Mode) {
	if !mode.Valid() {
		mode = model.ModeFocus
	}
	e.settings = sanitizeSettings(settings)
	e.stats = sanitizeStats(stats)
	e.mode = mode
	e.remaining = e.settings.SecondsFor(mode)
	e.running = false
	e.epoch++
}

// SetCompletionCallback registers the single natural-completion callback,
// replacing any previous one. The callback runs on the ticking goroutine and
// must not block.
func (e *Engine) SetCompletionCallback(fn CompletionFunc) {
	e.mu.Lock()
	e.onComplete = fn
	e.mu.Unlock()
}

// OnChange registers the persistence hook called after every mutation.
func (e *Engine) OnChange(fn ChangeFunc) {
	e.mu.Lock()
	e.onChange = fn
	e.mu.Unlock()
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *Engine) Start() {
	e.update(func() bool {
		if e.running {
			return false
		}
		e.running = true
		return true
	})
}

func (e *Engine) Pause() {
	e.update(func() bool {
		if !e.running {
			return false
		}
		e.running = false
		return true
	})
}

// Reset refills the current phase without changing mode and pauses.
func (e *Engine) Reset() {
	e.update(func() bool {
		e.remaining = e.settings.SecondsFor(e.mode)
		e.running = false
		e.epoch++
		return true
	})
}

// Skip moves to the next phase as if the current one had completed. No time
// is accrued.
func (e *Engine) Skip() {
	e.update(func() bool {
		e.advanceLocked()
		return true
	})
}

// SetMode jumps to mode with a full phase and pauses. Session counts are not
// touched. Unknown modes are ignored.
func (e *Engine) SetMode(mode model.Mode) {
	if !mode.Valid() {
		return
	}
	e.update(func() bool {
		e.mode = mode
		e.remaining = e.settings.SecondsFor(mode)
		e.running = false
		e.epoch++
		return true
	})
}

// UpdateConfiguration merges u into the settings. Non-positive durations and
// session intervals below one are ignored. Updating the duration of the
// active mode refills the phase from the new value and pauses.
func (e *Engine) UpdateConfiguration(u ConfigUpdate) {
	e.update(func() bool {
		changed := false
		recalc := false
		apply := func(v *int, min int, dst *int, mode model.Mode) {
			if v == nil || *v < min {
				return
			}
			*dst = *v
			changed = true
			if mode != "" && mode == e.mode {
				recalc = true
			}
		}
		apply(u.FocusMinutes, 1, &e.settings.FocusMinutes, model.ModeFocus)
		apply(u.ShortBreakMinutes, 1, &e.settings.ShortBreakMinutes, model.ModeShortBreak)
		apply(u.LongBreakMinutes, 1, &e.settings.LongBreakMinutes, model.ModeLongBreak)
		apply(u.SessionsBeforeLongBreak, 1, &e.settings.SessionsBeforeLongBreak, "")
		if u.AutoStartEnabled != nil {
			e.settings.AutoStartEnabled = *u.AutoStartEnabled
			changed = true
		}

		if recalc {
			e.remaining = e.settings.SecondsFor(e.mode)
			e.running = false
			e.epoch++
		}
		return changed
	})
}

func (e *Engine) ToggleAutoStart() {
	e.update(func() bool {
		e.settings.AutoStartEnabled = !e.settings.AutoStartEnabled
		return true
	})
}

// ResetStats clears the accumulated session statistics.
func (e *Engine) ResetStats() {
	e.update(func() bool {
		e.stats = model.TimerStats{}
		return true
	})
}

// Tick advances the engine by one second. It is a no-op while paused or when
// the phase is already at zero. When the phase runs out the completion
// callback fires first, then the engine transitions.
func (e *Engine) Tick() {
	e.mu.Lock()
	if !e.running || e.remaining <= 0 {
		e.mu.Unlock()
		return
	}

	e.remaining--
	if e.mode == model.ModeFocus {
		e.stats.TotalFocusSeconds++
	} else {
		e.stats.TotalBreakSeconds++
	}

	if e.remaining > 0 {
		state, onChange := e.stateLocked(), e.onChange
		e.mu.Unlock()
		notify(onChange, state)
		return
	}

	epoch := e.epoch
	completion := Completion{Mode: e.mode, CompletedFocusSessions: e.stats.CompletedFocusSessions}
	onComplete := e.onComplete
	e.mu.Unlock()

	if onComplete != nil {
		onComplete(completion)
	}

	e.mu.Lock()
	// The callback may have moved the engine itself.
	if e.epoch == epoch && e.remaining == 0 {
		e.advanceLocked()
	}
	state, onChange := e.stateLocked(), e.onChange
	e.mu.Unlock()
	notify(onChange, state)
}

func (e *Engine) advanceLocked() {
	next := model.ModeFocus
	if e.mode == model.ModeFocus {
		e.stats.CompletedFocusSessions++
		if e.stats.CompletedFocusSessions%e.settings.SessionsBeforeLongBreak == 0 {
			next = model.ModeLongBreak
		} else {
			next = model.ModeShortBreak
		}
	}
	e.mode = next
	e.remaining = e.settings.SecondsFor(next)
	e.running = e.settings.AutoStartEnabled
	e.epoch++
}

func (e *Engine) update(fn func() bool) {
	e.mu.Lock()
	if !fn() {
		e.mu.Unlock()
		return
	}
	state, onChange := e.stateLocked(), e.onChange
	e.mu.Unlock()
	notify(onChange, state)
}

func (e *Engine) stateLocked() State {
	return State{
		Mode:             e.mode,
		SecondsRemaining: e.remaining,
		Running:          e.running,
		Settings:         e.settings,
		Stats:            e.stats,
	}
}

func notify(fn ChangeFunc, state State) {
	if fn != nil {
		fn(state)
	}
}

func sanitizeSettings(s model.TimerSettings) model.TimerSettings {
	def := model.DefaultTimerSettings()
	if s.FocusMinutes <= 0 {
		s.FocusMinutes = def.FocusMinutes
	}
	if s.ShortBreakMinutes <= 0 {
		s.ShortBreakMinutes = def.ShortBreakMinutes
	}
	if s.LongBreakMinutes <= 0 {
		s.LongBreakMinutes = def.LongBreakMinutes
	}
	if s.SessionsBeforeLongBreak < 1 {
		s.SessionsBeforeLongBreak = def.SessionsBeforeLongBreak
	}
	return s
}

func sanitizeStats(s model.TimerStats) model.TimerStats {
	if s.CompletedFocusSessions < 0 {
		s.CompletedFocusSessions = 0
	}
	if s.TotalFocusSeconds < 0 {
		s.TotalFocusSeconds = 0
	}
	if s.TotalBreakSeconds < 0 {
		s.TotalBreakSeconds = 0
	}
	return s
}
