package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalSnapshotValidate(t *testing.T) {
	settings := DefaultTimerSettings()
	env := DefaultEnvironmentPreferences()
	env.TrackVolumes["rain"] = 40
	snapshot := LocalSnapshot{
		TimerSettings:          &settings,
		EnvironmentPreferences: &env,
		ThemePreferences:       &ThemePreference{Theme: ThemeDark},
	}
	require.NoError(t, snapshot.Validate())

	env.TrackVolumes["rain"] = 140
	assert.Error(t, snapshot.Validate())

	env.TrackVolumes["rain"] = 40
	snapshot.ThemePreferences.Theme = "sepia"
	assert.Error(t, snapshot.Validate())

	assert.NoError(t, LocalSnapshot{}.Validate())
}

func TestLocalSnapshotOverlayKeepsMissingSections(t *testing.T) {
	localEnv := DefaultEnvironmentPreferences()
	local := LocalSnapshot{
		EnvironmentPreferences: &localEnv,
		ThemePreferences:       &ThemePreference{Theme: ThemeLight},
	}
	remoteSettings := TimerSettings{FocusMinutes: 50, ShortBreakMinutes: 10, LongBreakMinutes: 30, SessionsBeforeLongBreak: 2}

	local.Overlay(LocalSnapshot{
		TimerSettings:    &remoteSettings,
		ThemePreferences: &ThemePreference{Theme: ThemeDark},
	})

	require.NotNil(t, local.TimerSettings)
	assert.Equal(t, 50, local.TimerSettings.FocusMinutes)
	assert.Equal(t, ThemeDark, local.ThemePreferences.Theme)
	assert.Same(t, &localEnv, local.EnvironmentPreferences)
	assert.Nil(t, local.TimerStats)

	remoteSettings.FocusMinutes = 1
	assert.Equal(t, 50, local.TimerSettings.FocusMinutes, "overlay must copy, not alias")
}

func TestSettingsSecondsFor(t *testing.T) {
	s := DefaultTimerSettings()
	assert.Equal(t, 1500, s.SecondsFor(ModeFocus))
	assert.Equal(t, 300, s.SecondsFor(ModeShortBreak))
	assert.Equal(t, 900, s.SecondsFor(ModeLongBreak))
	assert.Equal(t, 1500, s.SecondsFor(Mode("bogus")))
}
