package timer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ataraxia/internal/model"
)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func newEngine(t *testing.T, mutate func(*model.TimerSettings)) *Engine {
	t.Helper()
	settings := model.DefaultTimerSettings()
	if mutate != nil {
		mutate(&settings)
	}
	return New(settings, model.TimerStats{})
}

func TestNewStartsPausedInFocus(t *testing.T) {
	e := newEngine(t, nil)
	s := e.State()
	assert.Equal(t, model.ModeFocus, s.Mode)
	assert.Equal(t, 25*60, s.SecondsRemaining)
	assert.False(t, s.Running)
}

func TestStartPauseAreIdempotent(t *testing.T) {
	e := newEngine(t, nil)
	changes := 0
	e.OnChange(func(State) { changes++ })

	e.Start()
	e.Start()
	assert.True(t, e.State().Running)
	e.Pause()
	e.Pause()
	assert.False(t, e.State().Running)
	assert.Equal(t, 2, changes)
}

func TestTickIsNoopWhilePaused(t *testing.T) {
	e := newEngine(t, nil)
	e.Tick()
	s := e.State()
	assert.Equal(t, 1500, s.SecondsRemaining)
	assert.Zero(t, s.Stats.TotalFocusSeconds)
}

func TestTickDecrementsAndAccruesTime(t *testing.T) {
	for _, mode := range []model.Mode{model.ModeFocus, model.ModeShortBreak, model.ModeLongBreak} {
		t.Run(string(mode), func(t *testing.T) {
			e := newEngine(t, nil)
			e.SetMode(mode)
			e.Start()
			before := e.State()

			const n = 42
			for i := 0; i < n; i++ {
				e.Tick()
			}

			after := e.State()
			assert.Equal(t, before.SecondsRemaining-n, after.SecondsRemaining)
			total := func(s State) int { return s.Stats.TotalFocusSeconds + s.Stats.TotalBreakSeconds }
			assert.Equal(t, total(before)+n, total(after))
			if mode == model.ModeFocus {
				assert.Equal(t, n, after.Stats.TotalFocusSeconds)
			} else {
				assert.Equal(t, n, after.Stats.TotalBreakSeconds)
			}
		})
	}
}

func TestFullFocusPhaseWithoutAutoStart(t *testing.T) {
	e := newEngine(t, func(s *model.TimerSettings) { s.AutoStartEnabled = false })
	var completions []Completion
	e.SetCompletionCallback(func(c Completion) { completions = append(completions, c) })

	e.Start()
	for i := 0; i < 1500; i++ {
		e.Tick()
	}

	s := e.State()
	assert.Equal(t, model.ModeShortBreak, s.Mode)
	assert.False(t, s.Running)
	assert.Equal(t, 5*60, s.SecondsRemaining)
	assert.Equal(t, 1, s.Stats.CompletedFocusSessions)
	assert.Equal(t, 1500, s.Stats.TotalFocusSeconds)
	require.Len(t, completions, 1)
	assert.Equal(t, model.ModeFocus, completions[0].Mode)

	// Paused after the transition, so further ticks do nothing.
	e.Tick()
	assert.Len(t, completions, 1)
}

func TestAutoStartKeepsRunningAcrossTransition(t *testing.T) {
	e := newEngine(t, func(s *model.TimerSettings) { s.FocusMinutes = 1 })
	e.Start()
	for i := 0; i < 60; i++ {
		e.Tick()
	}
	s := e.State()
	assert.Equal(t, model.ModeShortBreak, s.Mode)
	assert.True(t, s.Running)
}

func TestCompletionCallbackRunsBeforeTransition(t *testing.T) {
	e := newEngine(t, func(s *model.TimerSettings) { s.FocusMinutes = 1 })
	var seen State
	e.SetCompletionCallback(func(Completion) { seen = e.State() })

	e.Start()
	for i := 0; i < 60; i++ {
		e.Tick()
	}
	assert.Equal(t, model.ModeFocus, seen.Mode)
	assert.Equal(t, 0, seen.SecondsRemaining)
	assert.Equal(t, 0, seen.Stats.CompletedFocusSessions)
	assert.Equal(t, model.ModeShortBreak, e.State().Mode)
}

func TestCallbackThatMovesEngineSuppressesTransition(t *testing.T) {
	e := newEngine(t, func(s *model.TimerSettings) { s.FocusMinutes = 1 })
	e.SetCompletionCallback(func(Completion) { e.SetMode(model.ModeLongBreak) })

	e.Start()
	for i := 0; i < 60; i++ {
		e.Tick()
	}
	s := e.State()
	assert.Equal(t, model.ModeLongBreak, s.Mode)
	assert.Zero(t, s.Stats.CompletedFocusSessions)
}

func TestRegisteringCallbackReplacesPrevious(t *testing.T) {
	e := newEngine(t, func(s *model.TimerSettings) { s.FocusMinutes = 1 })
	first, second := 0, 0
	e.SetCompletionCallback(func(Completion) { first++ })
	e.SetCompletionCallback(func(Completion) { second++ })

	e.Start()
	for i := 0; i < 60; i++ {
		e.Tick()
	}
	assert.Zero(t, first)
	assert.Equal(t, 1, second)
}

func TestSkipCyclesToLongBreak(t *testing.T) {
	e := newEngine(t, func(s *model.TimerSettings) { s.SessionsBeforeLongBreak = 4 })

	for round := 1; round <= 4; round++ {
		require.Equal(t, model.ModeFocus, e.State().Mode)
		e.Skip()
		s := e.State()
		assert.Equal(t, round, s.Stats.CompletedFocusSessions)
		if round < 4 {
			assert.Equal(t, model.ModeShortBreak, s.Mode, "round %d", round)
		} else {
			assert.Equal(t, model.ModeLongBreak, s.Mode)
			assert.Equal(t, 15*60, s.SecondsRemaining)
		}

		e.Skip()
		s = e.State()
		assert.Equal(t, model.ModeFocus, s.Mode)
		assert.Equal(t, round, s.Stats.CompletedFocusSessions, "break to focus must not count")
	}
}

func TestSkipDoesNotAccrueTime(t *testing.T) {
	e := newEngine(t, nil)
	e.Start()
	e.Tick()
	e.Skip()
	s := e.State()
	assert.Equal(t, 1, s.Stats.TotalFocusSeconds)
	assert.Zero(t, s.Stats.TotalBreakSeconds)
}

func TestResetKeepsMode(t *testing.T) {
	e := newEngine(t, nil)
	e.SetMode(model.ModeShortBreak)
	e.Start()
	e.Tick()
	e.Tick()
	e.Reset()

	s := e.State()
	assert.Equal(t, model.ModeShortBreak, s.Mode)
	assert.Equal(t, 300, s.SecondsRemaining)
	assert.False(t, s.Running)
	assert.Equal(t, 2, s.Stats.TotalBreakSeconds)
}

func TestSetModeDoesNotCountSessions(t *testing.T) {
	e := newEngine(t, nil)
	e.Start()
	e.SetMode(model.ModeLongBreak)
	s := e.State()
	assert.Equal(t, model.ModeLongBreak, s.Mode)
	assert.Equal(t, 900, s.SecondsRemaining)
	assert.False(t, s.Running)
	assert.Zero(t, s.Stats.CompletedFocusSessions)

	e.SetMode(model.Mode("nap"))
	assert.Equal(t, model.ModeLongBreak, e.State().Mode)
}

func TestUpdateActiveDurationRecalculatesAndPauses(t *testing.T) {
	cases := []struct {
		mode   model.Mode
		update func(int) ConfigUpdate
	}{
		{model.ModeFocus, func(d int) ConfigUpdate { return ConfigUpdate{FocusMinutes: intPtr(d)} }},
		{model.ModeShortBreak, func(d int) ConfigUpdate { return ConfigUpdate{ShortBreakMinutes: intPtr(d)} }},
		{model.ModeLongBreak, func(d int) ConfigUpdate { return ConfigUpdate{LongBreakMinutes: intPtr(d)} }},
	}
	for _, tc := range cases {
		for _, d := range []int{1, 7, 45, 120} {
			e := newEngine(t, nil)
			e.SetMode(tc.mode)
			e.Start()
			e.Tick()

			e.UpdateConfiguration(tc.update(d))

			s := e.State()
			assert.Equal(t, d*60, s.SecondsRemaining, "%s=%d", tc.mode, d)
			assert.False(t, s.Running)
		}
	}
}

func TestUpdateInactiveDurationLeavesCountdown(t *testing.T) {
	e := newEngine(t, nil)
	e.Start()
	e.Tick()

	e.UpdateConfiguration(ConfigUpdate{ShortBreakMinutes: intPtr(10), SessionsBeforeLongBreak: intPtr(2)})

	s := e.State()
	assert.Equal(t, 1499, s.SecondsRemaining)
	assert.True(t, s.Running)
	assert.Equal(t, 10, s.Settings.ShortBreakMinutes)
	assert.Equal(t, 2, s.Settings.SessionsBeforeLongBreak)
}

func TestUpdateIgnoresInvalidValues(t *testing.T) {
	e := newEngine(t, nil)
	changes := 0
	e.OnChange(func(State) { changes++ })

	e.UpdateConfiguration(ConfigUpdate{FocusMinutes: intPtr(0), LongBreakMinutes: intPtr(-5), SessionsBeforeLongBreak: intPtr(0)})

	s := e.State()
	assert.Equal(t, model.DefaultTimerSettings(), s.Settings)
	assert.Zero(t, changes)
}

func TestToggleAutoStartAndUpdate(t *testing.T) {
	e := newEngine(t, nil)
	e.ToggleAutoStart()
	assert.False(t, e.State().Settings.AutoStartEnabled)
	e.UpdateConfiguration(ConfigUpdate{AutoStartEnabled: boolPtr(true)})
	assert.True(t, e.State().Settings.AutoStartEnabled)
}

func TestResetStats(t *testing.T) {
	e := newEngine(t, nil)
	e.Start()
	e.Tick()
	e.Skip()
	e.ResetStats()
	assert.Equal(t, model.TimerStats{}, e.State().Stats)
}

func TestRestoreRecomputesFromMode(t *testing.T) {
	e := newEngine(t, nil)
	e.Start()

	settings := model.TimerSettings{FocusMinutes: 30, ShortBreakMinutes: 6, LongBreakMinutes: 20, SessionsBeforeLongBreak: 3}
	stats := model.TimerStats{CompletedFocusSessions: 7, TotalFocusSeconds: 100}
	e.Restore(settings, stats, model.ModeShortBreak)

	s := e.State()
	assert.Equal(t, model.ModeShortBreak, s.Mode)
	assert.Equal(t, 360, s.SecondsRemaining)
	assert.False(t, s.Running)
	assert.Equal(t, stats, s.Stats)

	e.Restore(settings, stats, "")
	assert.Equal(t, model.ModeFocus, e.State().Mode)
	assert.Equal(t, 1800, e.State().SecondsRemaining)
}

func TestRestoreRepairsInvalidSettings(t *testing.T) {
	e := New(model.TimerSettings{FocusMinutes: -1, SessionsBeforeLongBreak: 0}, model.TimerStats{TotalBreakSeconds: -3})
	s := e.State()
	assert.Equal(t, model.DefaultFocusMinutes, s.Settings.FocusMinutes)
	assert.Equal(t, model.DefaultSessionsBeforeLongBreak, s.Settings.SessionsBeforeLongBreak)
	assert.Zero(t, s.Stats.TotalBreakSeconds)
}

func TestOnChangeSeesEveryTick(t *testing.T) {
	e := newEngine(t, nil)
	var last State
	calls := 0
	e.OnChange(func(s State) {
		calls++
		last = s
	})
	e.Start()
	e.Tick()
	e.Tick()
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, last.Stats.TotalFocusSeconds)
}
