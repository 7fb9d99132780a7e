package remote_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ataraxia/internal/db/dbtest"
	"ataraxia/internal/devicestore"
	apperrors "ataraxia/internal/errors"
	"ataraxia/internal/handler"
	"ataraxia/internal/migration"
	"ataraxia/internal/model"
	"ataraxia/internal/remote"
	"ataraxia/internal/repository"
	"ataraxia/internal/router"
	"ataraxia/internal/service"
)

var _ migration.RemoteStore = (*remote.Client)(nil)

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	database := dbtest.Open(t)

	userRepo := repository.NewUserRepository(database)
	authService := service.NewAuthService(userRepo, "remote-secret", time.Hour)
	preferenceService := service.NewPreferenceService(repository.NewPreferenceRepository(database), userRepo)
	engine := router.New(
		authService,
		handler.NewAuthHandler(authService),
		handler.NewPreferenceHandler(preferenceService),
		nil,
		router.AuthLimit{PerSecond: 100, Burst: 100},
	)

	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)
	return server
}

func TestClientAuthAndProfile(t *testing.T) {
	server := startServer(t)
	ctx := context.Background()
	client := remote.New(server.URL, 5*time.Second)

	registered, err := client.Register(ctx, "dev@example.com", "secret1", "Dev")
	require.NoError(t, err)
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, "Dev", registered.User.DisplayName)

	_, err = client.Register(ctx, "dev@example.com", "secret1", "")
	apiErr, ok := apperrors.AsAPIError(err)
	require.True(t, ok, "expected api error, got %v", err)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "email_exists", apiErr.Code)

	_, err = client.Login(ctx, "dev@example.com", "wrong")
	apiErr, ok = apperrors.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	loggedIn, err := client.Login(ctx, "dev@example.com", "secret1")
	require.NoError(t, err)

	me, err := client.WithToken(loggedIn.Token).Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, me.ID)
}

func TestClientPreferenceStore(t *testing.T) {
	server := startServer(t)
	ctx := context.Background()
	anon := remote.New(server.URL, 5*time.Second)

	auth, err := anon.Register(ctx, "store@example.com", "secret1", "")
	require.NoError(t, err)
	client := anon.WithToken(auth.Token)
	userID := auth.User.ID

	_, err = anon.Exists(ctx, userID)
	assert.Error(t, err, "requests without a session must fail")

	exists, err := client.Exists(ctx, userID)
	require.NoError(t, err)
	assert.False(t, exists)
	rec, err := client.Read(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, rec)

	stats := model.TimerStats{CompletedFocusSessions: 2, TotalFocusSeconds: 3000}
	require.NoError(t, client.Write(ctx, userID, model.PreferenceRecord{
		LocalSnapshot: model.LocalSnapshot{TimerStats: &stats},
	}, true))

	exists, err = client.Exists(ctx, userID)
	require.NoError(t, err)
	assert.True(t, exists)
	rec, err = client.Read(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, &stats, rec.TimerStats)
	assert.Equal(t, "store@example.com", rec.Email)
	assert.Equal(t, 1, rec.Version)

	bad := model.DefaultTimerSettings()
	bad.ShortBreakMinutes = 99
	err = client.Write(ctx, userID, model.PreferenceRecord{LocalSnapshot: model.LocalSnapshot{TimerSettings: &bad}}, true)
	apiErr, ok := apperrors.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "invalid_preferences", apiErr.Code)
}

func TestMigrationOverHTTP(t *testing.T) {
	server := startServer(t)
	ctx := context.Background()
	anon := remote.New(server.URL, 5*time.Second)
	auth, err := anon.Register(ctx, "move@example.com", "secret1", "Mover")
	require.NoError(t, err)
	client := anon.WithToken(auth.Token)
	identity := auth.User.Identity()

	// First device uploads its local data.
	deviceA, err := devicestore.Open(t.TempDir())
	require.NoError(t, err)
	theme := model.ThemePreference{Theme: model.ThemeDark}
	require.NoError(t, deviceA.SaveTheme(theme))

	res := migration.NewService(client, deviceA, nil).Perform(ctx, identity)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, migration.MessageUploaded, res.Message)

	// Second device restores it.
	deviceB, err := devicestore.Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, deviceB.SaveTheme(model.ThemePreference{Theme: model.ThemeLight}))

	res = migration.NewService(client, deviceB, nil).Perform(ctx, identity)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, migration.MessageRestored, res.Message)

	got, err := deviceB.LoadTheme()
	require.NoError(t, err)
	assert.Equal(t, &theme, got)
}
