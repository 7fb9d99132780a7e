package model

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"

	DefaultEnvironmentID = "forest"
	DefaultMasterVolume  = 80
)

type EnvironmentPreferences struct {
	CurrentEnvironmentID string         `json:"currentEnvironmentId"`
	MasterVolume         int            `json:"masterVolume" validate:"min=0,max=100"`
	TrackVolumes         map[string]int `json:"trackVolumes,omitempty" validate:"omitempty,dive,min=0,max=100"`
	AudioMuted           bool           `json:"audioMuted"`
	FavoriteEnvironments []string       `json:"favoriteEnvironments,omitempty"`
}

func DefaultEnvironmentPreferences() EnvironmentPreferences {
	return EnvironmentPreferences{
		CurrentEnvironmentID: DefaultEnvironmentID,
		MasterVolume:         DefaultMasterVolume,
		TrackVolumes:         map[string]int{},
	}
}

type ThemePreference struct {
	Theme string `json:"theme" validate:"oneof=light dark system"`
}

// LocalSnapshot is the device-local preference bundle. A nil section means the
// device holds nothing for it.
type LocalSnapshot struct {
	TimerSettings          *TimerSettings          `json:"timerSettings,omitempty"`
	TimerStats             *TimerStats             `json:"timerStats,omitempty"`
	EnvironmentPreferences *EnvironmentPreferences `json:"environmentPreferences,omitempty"`
	ThemePreferences       *ThemePreference        `json:"themePreferences,omitempty"`
}

func (s LocalSnapshot) Empty() bool {
	return s.TimerSettings == nil && s.TimerStats == nil &&
		s.EnvironmentPreferences == nil && s.ThemePreferences == nil
}

// Overlay copies every non-nil section of other over s.
func (s *LocalSnapshot) Overlay(other LocalSnapshot) {
	if other.TimerSettings != nil {
		v := *other.TimerSettings
		s.TimerSettings = &v
	}
	if other.TimerStats != nil {
		v := *other.TimerStats
		s.TimerStats = &v
	}
	if other.EnvironmentPreferences != nil {
		v := *other.EnvironmentPreferences
		s.EnvironmentPreferences = &v
	}
	if other.ThemePreferences != nil {
		v := *other.ThemePreferences
		s.ThemePreferences = &v
	}
}

// PreferenceRecord is the identity-keyed remote document.
type PreferenceRecord struct {
	LocalSnapshot
	UserID      string     `json:"userId"`
	Email       string     `json:"email,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
	MigratedAt  *time.Time `json:"migratedAt,omitempty"`
	Version     int        `json:"version"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the snapshot against the shared schema.
func (s LocalSnapshot) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid preference snapshot: %w", err)
	}
	return nil
}

func (r PreferenceRecord) Validate() error {
	return r.LocalSnapshot.Validate()
}

func ValidTheme(theme string) bool {
	return theme == ThemeLight || theme == ThemeDark || theme == ThemeSystem
}
