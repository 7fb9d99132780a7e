package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"ataraxia/internal/model"
	"ataraxia/internal/timer"
)

var (
	bold    = color.New(color.Bold).SprintFunc()
	green   = color.New(color.FgGreen).SprintFunc()
	yellow  = color.New(color.FgYellow).SprintFunc()
	red     = color.New(color.FgRed).SprintFunc()
	faint   = color.New(color.Faint).SprintFunc()
	focusC  = color.New(color.FgHiRed, color.Bold).SprintFunc()
	breakC  = color.New(color.FgHiCyan, color.Bold).SprintFunc()
	checked = green("✓")
)

func newTable() *uitable.Table {
	tbl := uitable.New()
	tbl.Separator = "  "
	return tbl
}

func modeLabel(mode model.Mode) string {
	if mode.IsBreak() {
		return breakC(mode.Label())
	}
	return focusC(mode.Label())
}

func printSettings(out io.Writer, s model.TimerSettings) {
	tbl := newTable()
	tbl.AddRow(bold("Setting"), bold("Value"))
	tbl.AddRow("focus", timer.FormatVerbose(s.FocusMinutes*60))
	tbl.AddRow("short break", timer.FormatVerbose(s.ShortBreakMinutes*60))
	tbl.AddRow("long break", timer.FormatVerbose(s.LongBreakMinutes*60))
	tbl.AddRow("sessions before long break", s.SessionsBeforeLongBreak)
	tbl.AddRow("auto start", onOff(s.AutoStartEnabled))
	_, _ = fmt.Fprintln(out, tbl)
}

func printStats(out io.Writer, s model.TimerStats) {
	tbl := newTable()
	tbl.AddRow(bold("Statistic"), bold("Value"))
	tbl.AddRow("completed focus sessions", s.CompletedFocusSessions)
	tbl.AddRow("total focus time", timer.FormatVerbose(s.TotalFocusSeconds))
	tbl.AddRow("total break time", timer.FormatVerbose(s.TotalBreakSeconds))
	_, _ = fmt.Fprintln(out, tbl)
}

func onOff(v bool) string {
	if v {
		return green("on")
	}
	return faint("off")
}

// timerView renders the running timer on a single terminal line.
type timerView struct {
	mu   sync.Mutex
	out  io.Writer
	bell bool
}

func (v *timerView) render(s timer.State) {
	v.mu.Lock()
	defer v.mu.Unlock()

	status := green("running")
	if !s.Running {
		status = yellow("paused")
	}
	_, _ = fmt.Fprintf(v.out, "\r%s  %s  %s %3.0f%%  %s  %s",
		modeLabel(s.Mode),
		bold(timer.FormatClock(s.SecondsRemaining)),
		progressBar(s.SecondsRemaining, s.PhaseSeconds(), 20),
		timer.Progress(s.SecondsRemaining, s.PhaseSeconds()),
		status,
		faint(fmt.Sprintf("sessions %d", s.Stats.CompletedFocusSessions)),
	)
}

func (v *timerView) completed(c timer.Completion) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.bell {
		_, _ = fmt.Fprint(v.out, "\a")
	}
	if c.Mode == model.ModeFocus {
		_, _ = fmt.Fprintf(v.out, "\n%s Focus session completed! Time for a break!\n", checked)
		return
	}
	_, _ = fmt.Fprintf(v.out, "\n%s Break completed! Time to get back to work!\n", checked)
}

func (v *timerView) note(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, _ = fmt.Fprintf(v.out, "\n%s\n", faint(msg))
}

func progressBar(remaining, total, width int) string {
	filled := int(timer.Progress(remaining, total) / 100 * float64(width))
	return "[" + strings.Repeat("█", filled) + strings.Repeat("·", width-filled) + "]"
}
