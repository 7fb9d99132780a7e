package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ataraxia/internal/db/dbtest"
	"ataraxia/internal/devicestore"
	"ataraxia/internal/handler"
	"ataraxia/internal/migration"
	"ataraxia/internal/model"
	"ataraxia/internal/repository"
	"ataraxia/internal/router"
	"ataraxia/internal/service"
)

func setupCLI(t *testing.T) string {
	t.Helper()
	color.NoColor = true
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ATARAXIA_BELL", "false")
	return t.TempDir()
}

func run(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	cmd := New()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--data-dir", dataDir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, dataDir string, args ...string) string {
	t.Helper()
	out, err := run(t, dataDir, args...)
	require.NoError(t, err, "ataraxia %s", strings.Join(args, " "))
	return out
}

func openStore(t *testing.T, dataDir string) *devicestore.Store {
	t.Helper()
	store, err := devicestore.Open(dataDir)
	require.NoError(t, err)
	return store
}

func TestSettingsSetAndShow(t *testing.T) {
	dir := setupCLI(t)

	out := mustRun(t, dir, "settings")
	assert.Contains(t, out, "25 minutes")

	out = mustRun(t, dir, "settings", "set", "--focus", "50", "--sessions", "2", "--auto-start=false")
	assert.Contains(t, out, "Settings saved.")
	assert.Contains(t, out, "50 minutes")

	doc, err := openStore(t, dir).LoadTimer()
	require.NoError(t, err)
	require.NotNil(t, doc.Settings)
	assert.Equal(t, 50, doc.Settings.FocusMinutes)
	assert.Equal(t, 2, doc.Settings.SessionsBeforeLongBreak)
	assert.False(t, doc.Settings.AutoStartEnabled)

	_, err = run(t, dir, "settings", "set", "--focus", "90")
	assert.Error(t, err)
	doc, err = openStore(t, dir).LoadTimer()
	require.NoError(t, err)
	assert.Equal(t, 50, doc.Settings.FocusMinutes)

	mustRun(t, dir, "settings", "toggle-auto-start")
	doc, err = openStore(t, dir).LoadTimer()
	require.NoError(t, err)
	assert.True(t, doc.Settings.AutoStartEnabled)
}

func TestTimerSkipModeAndStats(t *testing.T) {
	dir := setupCLI(t)

	out := mustRun(t, dir, "timer", "skip")
	assert.Contains(t, out, "Short Break  05:00")

	out = mustRun(t, dir, "timer", "status")
	assert.Contains(t, out, "(1 focus sessions completed)")

	out = mustRun(t, dir, "timer", "mode", "long_break")
	assert.Contains(t, out, "Long Break  15:00")

	_, err := run(t, dir, "timer", "mode", "nap")
	assert.Error(t, err)

	out = mustRun(t, dir, "stats")
	assert.Regexp(t, `completed focus sessions\s+1`, out)

	mustRun(t, dir, "stats", "reset")
	out = mustRun(t, dir, "stats", "show")
	assert.Regexp(t, `completed focus sessions\s+0`, out)
}

func TestTimerRunsOnePhase(t *testing.T) {
	dir := setupCLI(t)
	mustRun(t, dir, "settings", "set", "--focus", "1")

	out := mustRun(t, dir, "timer", "--once", "--tick", "1ms")
	assert.Contains(t, out, "Focus session completed! Time for a break!")

	doc, err := openStore(t, dir).LoadTimer()
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, model.ModeShortBreak, doc.Mode)
	assert.Equal(t, 1, doc.Stats.CompletedFocusSessions)
	assert.Equal(t, 60, doc.Stats.TotalFocusSeconds)
}

func TestEnvironmentCommands(t *testing.T) {
	dir := setupCLI(t)

	out := mustRun(t, dir, "env", "list")
	assert.Contains(t, out, "forest")
	assert.Contains(t, out, "ocean")

	mustRun(t, dir, "env", "use", "rain")
	mustRun(t, dir, "env", "volume", "50")
	out = mustRun(t, dir, "env", "track", "rain-window", "80")
	assert.Contains(t, out, "Rainy Day")
	assert.Contains(t, out, "master 50%")
	assert.Regexp(t, `rain-window\s+nature\s+80%\s+40%`, out)

	out = mustRun(t, dir, "env", "mute")
	assert.Contains(t, out, "muted")
	mustRun(t, dir, "env", "favorite", "ocean")

	_, err := run(t, dir, "env", "use", "moon")
	assert.Error(t, err)
	_, err = run(t, dir, "env", "volume", "101")
	assert.Error(t, err)
	_, err = run(t, dir, "env", "track", "nope", "10")
	assert.Error(t, err)

	prefs, err := openStore(t, dir).LoadEnvironment()
	require.NoError(t, err)
	require.NotNil(t, prefs)
	assert.Equal(t, "rain", prefs.CurrentEnvironmentID)
	assert.Equal(t, 50, prefs.MasterVolume)
	assert.Equal(t, 80, prefs.TrackVolumes["rain-window"])
	assert.True(t, prefs.AudioMuted)
	assert.Equal(t, []string{"ocean"}, prefs.FavoriteEnvironments)
}

func TestThemeCommand(t *testing.T) {
	dir := setupCLI(t)

	out := mustRun(t, dir, "theme")
	assert.Contains(t, out, "theme: system")

	mustRun(t, dir, "theme", "dark")
	out = mustRun(t, dir, "theme")
	assert.Contains(t, out, "theme: dark")

	_, err := run(t, dir, "theme", "sepia")
	assert.Error(t, err)
}

func TestAccountMigrationFlow(t *testing.T) {
	server := startServer(t)
	t.Setenv("ATARAXIA_SERVER_URL", server.URL)

	// The first device has local settings and registers.
	deviceA := setupCLI(t)
	mustRun(t, deviceA, "settings", "set", "--focus", "45")
	out := mustRun(t, deviceA, "register", "--email", "calm@example.com", "--password", "secret1", "--name", "Calm")
	assert.Contains(t, out, "Signed in as calm@example.com")
	assert.Contains(t, out, "Data Migration Complete")
	assert.Contains(t, out, migration.MessageUploaded)

	migratedAt, err := openStore(t, deviceA).MigratedAt()
	require.NoError(t, err)
	assert.NotNil(t, migratedAt)

	out = mustRun(t, deviceA, "whoami")
	assert.Contains(t, out, "Calm")

	// A second device signs in and receives the account's settings.
	deviceB := setupCLI(t)
	out = mustRun(t, deviceB, "login", "--email", "calm@example.com", "--password", "secret1")
	assert.Contains(t, out, migration.MessageRestored)

	doc, err := openStore(t, deviceB).LoadTimer()
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, 45, doc.Settings.FocusMinutes)

	out = mustRun(t, deviceB, "sync")
	assert.Contains(t, out, migration.MessageRestored)

	mustRun(t, deviceB, "logout")
	_, err = run(t, deviceB, "sync")
	assert.ErrorIs(t, err, errNotSignedIn)

	_, err = run(t, deviceB, "login", "--email", "calm@example.com", "--password", "wrong")
	assert.Error(t, err)
}

func TestFailedMigrationKeepsLocalData(t *testing.T) {
	dir := setupCLI(t)
	store := openStore(t, dir)
	theme := model.ThemePreference{Theme: model.ThemeDark}
	require.NoError(t, store.SaveTheme(theme))
	require.NoError(t, store.SaveSession(devicestore.Session{
		Token:     "expired",
		Identity:  model.Identity{UserID: "ghost"},
		ServerURL: "http://127.0.0.1:1",
		CreatedAt: time.Now(),
	}))

	out := mustRun(t, dir, "sync")
	assert.Contains(t, out, "Migration Notice")
	assert.Contains(t, out, migration.MessageFailed)

	got, err := store.LoadTheme()
	require.NoError(t, err)
	assert.Equal(t, &theme, got)
}

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	database := dbtest.Open(t)

	userRepo := repository.NewUserRepository(database)
	authService := service.NewAuthService(userRepo, "cli-secret", time.Hour)
	engine := router.New(
		authService,
		handler.NewAuthHandler(authService),
		handler.NewPreferenceHandler(service.NewPreferenceService(repository.NewPreferenceRepository(database), userRepo)),
		nil,
		router.AuthLimit{PerSecond: 100, Burst: 100},
	)
	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)
	return server
}

func TestTimerModeFlagIsPersistedBeforeStart(t *testing.T) {
	dir := setupCLI(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cmd := New()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--data-dir", dir, "timer", "--mode", "long_break"})
	require.NoError(t, cmd.ExecuteContext(ctx))

	frames := strings.Split(strings.TrimLeft(out.String(), "\r"), "\r")
	require.NotEmpty(t, frames)
	assert.Contains(t, frames[0], "Long Break  15:00")
	assert.Contains(t, frames[0], "paused")

	doc, err := openStore(t, dir).LoadTimer()
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, model.ModeLongBreak, doc.Mode)
}

func TestLogoutDuringLoginDiscardsMigration(t *testing.T) {
	api := startServer(t)

	// The account already holds settings from another device.
	t.Setenv("ATARAXIA_SERVER_URL", api.URL)
	other := setupCLI(t)
	mustRun(t, other, "settings", "set", "--focus", "45")
	mustRun(t, other, "register", "--email", "shared@example.com", "--password", "secret1")

	// This server answers every request except the existence check, which it
	// holds until the client gives up.
	checking := make(chan struct{}, 1)
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead && r.URL.Path == "/api/preferences" {
			checking <- struct{}{}
			<-r.Context().Done()
			return
		}
		api.Config.Handler.ServeHTTP(w, r)
	}))
	t.Cleanup(slow.Close)
	t.Setenv("ATARAXIA_SERVER_URL", slow.URL)

	dir := setupCLI(t)
	mustRun(t, dir, "settings", "set", "--focus", "30")

	type outcome struct {
		out string
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		out, err := run(t, dir, "login", "--email", "shared@example.com", "--password", "secret1")
		done <- outcome{out, err}
	}()

	select {
	case <-checking:
	case <-time.After(5 * time.Second):
		t.Fatal("login never reached the existence check")
	}
	mustRun(t, dir, "logout")

	var res outcome
	select {
	case res = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("login kept running after logout")
	}
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "Signed out before the migration finished")
	assert.NotContains(t, res.out, migration.MessageRestored)

	doc, err := openStore(t, dir).LoadTimer()
	require.NoError(t, err)
	assert.Equal(t, 30, doc.Settings.FocusMinutes)
}
