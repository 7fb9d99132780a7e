package model

type Mode string

const (
	ModeFocus      Mode = "focus"
	ModeShortBreak Mode = "short_break"
	ModeLongBreak  Mode = "long_break"
)

const (
	DefaultFocusMinutes            = 25
	DefaultShortBreakMinutes       = 5
	DefaultLongBreakMinutes        = 15
	DefaultSessionsBeforeLongBreak = 4
	DefaultAutoStartEnabled        = true
)

func (m Mode) Valid() bool {
	return m == ModeFocus || m == ModeShortBreak || m == ModeLongBreak
}

// IsBreak reports whether m is one of the two break modes.
func (m Mode) IsBreak() bool {
	return m == ModeShortBreak || m == ModeLongBreak
}

func (m Mode) Label() string {
	switch m {
	case ModeShortBreak:
		return "Short Break"
	case ModeLongBreak:
		return "Long Break"
	default:
		return "Focus"
	}
}

// TimerSettings is the user-adjustable part of the timer. The validate tags
// carry the bounds the settings forms enforce; the engine accepts any
// positive value.
type TimerSettings struct {
	FocusMinutes            int  `json:"focusMinutes" validate:"min=1,max=60"`
	ShortBreakMinutes       int  `json:"shortBreakMinutes" validate:"min=1,max=30"`
	LongBreakMinutes        int  `json:"longBreakMinutes" validate:"min=5,max=60"`
	SessionsBeforeLongBreak int  `json:"sessionsBeforeLongBreak" validate:"min=1"`
	AutoStartEnabled        bool `json:"autoStartEnabled"`
}

func DefaultTimerSettings() TimerSettings {
	return TimerSettings{
		FocusMinutes:            DefaultFocusMinutes,
		ShortBreakMinutes:       DefaultShortBreakMinutes,
		LongBreakMinutes:        DefaultLongBreakMinutes,
		SessionsBeforeLongBreak: DefaultSessionsBeforeLongBreak,
		AutoStartEnabled:        DefaultAutoStartEnabled,
	}
}

// MinutesFor returns the configured duration of mode in minutes.
func (s TimerSettings) MinutesFor(mode Mode) int {
	switch mode {
	case ModeShortBreak:
		return s.ShortBreakMinutes
	case ModeLongBreak:
		return s.LongBreakMinutes
	default:
		return s.FocusMinutes
	}
}

func (s TimerSettings) SecondsFor(mode Mode) int {
	return s.MinutesFor(mode) * 60
}

type TimerStats struct {
	CompletedFocusSessions int `json:"completedFocusSessions" validate:"min=0"`
	TotalFocusSeconds      int `json:"totalFocusSeconds" validate:"min=0"`
	TotalBreakSeconds      int `json:"totalBreakSeconds" validate:"min=0"`
}
