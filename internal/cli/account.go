package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ataraxia/internal/devicestore"
	"ataraxia/internal/migration"
	"ataraxia/internal/model"
	"ataraxia/internal/remote"
)

var errNotSignedIn = errors.New("not signed in; run `ataraxia login` first")

type credentials struct {
	email       string
	password    string
	displayName string
}

func addAccount(topLevel *cobra.Command, app *App) {
	creds := &credentials{}
	bind := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&creds.email, "email", "", "account email")
		cmd.Flags().StringVar(&creds.password, "password", "", "account password (or ATARAXIA_PASSWORD, or stdin)")
		_ = cmd.MarkFlagRequired("email")
	}

	register := &cobra.Command{
		Use:   "register",
		Short: "Create an account and move this device's preferences into it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd.InOrStdin(), creds.password)
			if err != nil {
				return err
			}
			auth, err := app.client().Register(cmd.Context(), creds.email, password, creds.displayName)
			if err != nil {
				return err
			}
			return app.signIn(cmd.Context(), auth)
		},
	}
	bind(register)
	register.Flags().StringVar(&creds.displayName, "name", "", "display name")

	login := &cobra.Command{
		Use:   "login",
		Short: "Sign in and reconcile this device with the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd.InOrStdin(), creds.password)
			if err != nil {
				return err
			}
			auth, err := app.client().Login(cmd.Context(), creds.email, password)
			if err != nil {
				return err
			}
			return app.signIn(cmd.Context(), auth)
		},
	}
	bind(login)

	logout := &cobra.Command{
		Use:   "logout",
		Short: "Forget the account session; local preferences stay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.store.ClearSession(); err != nil {
				return fmt.Errorf("clear session: %w", err)
			}
			_, _ = fmt.Fprintln(app.out, "Signed out. Local preferences stay on this device.")
			return nil
		},
	}

	sync := &cobra.Command{
		Use:   "sync",
		Short: "Run the preference migration again for the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := app.session()
			if err != nil {
				return err
			}
			return app.migrate(cmd.Context(), *session)
		},
	}

	whoami := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := app.session()
			if err != nil {
				return err
			}
			user, err := remote.New(session.ServerURL, app.cfg.RequestTimeout()).WithToken(session.Token).Me(cmd.Context())
			if err != nil {
				return err
			}
			tbl := newTable()
			tbl.AddRow(bold("Email"), user.Email)
			tbl.AddRow(bold("Name"), user.DisplayName)
			tbl.AddRow(bold("Server"), session.ServerURL)
			tbl.AddRow(bold("Since"), session.CreatedAt.Local().Format(time.RFC1123))
			_, _ = fmt.Fprintln(app.out, tbl)
			return nil
		},
	}

	topLevel.AddCommand(register, login, logout, sync, whoami)
}

func (a *App) session() (*devicestore.Session, error) {
	session, err := a.store.LoadSession()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil || session.Token == "" {
		return nil, errNotSignedIn
	}
	return session, nil
}

func (a *App) signIn(ctx context.Context, auth *remote.AuthResult) error {
	session := devicestore.Session{
		Token:     auth.Token,
		Identity:  auth.User.Identity(),
		ServerURL: a.cfg.ServerURL,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.SaveSession(session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	_, _ = fmt.Fprintf(a.out, "%s Signed in as %s\n", checked, bold(auth.User.Email))
	return a.migrate(ctx, session)
}

// migrate runs the once-per-session migration and prints its notice. A
// logout from another process while it runs discards the migration.
func (a *App) migrate(ctx context.Context, session devicestore.Session) error {
	client := remote.New(session.ServerURL, a.cfg.RequestTimeout()).WithToken(session.Token)
	coordinator := migration.NewCoordinator(migration.NewService(client, a.store, a.logger), a.logger)
	coordinator.OnResult(func(_ model.Identity, res migration.Result) {
		printMigrationNotice(a.out, res)
	})

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if changes, err := a.store.Watch(watchCtx); err != nil {
		a.logger.Warn("sign-out during migration will not be noticed", slog.Any("error", err))
	} else {
		go a.followSession(changes, session.Identity.UserID, coordinator)
	}

	coordinator.SignedIn(ctx, session.Identity)
	coordinator.Wait()
	if _, ok := coordinator.Last(); !ok {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(a.out, yellow("Signed out before the migration finished; nothing was applied."))
	}
	return nil
}

// followSession ends the coordinator's session once the stored session is
// removed or belongs to someone else.
func (a *App) followSession(changes <-chan devicestore.Change, userID string, coordinator *migration.Coordinator) {
	for change := range changes {
		if change.Key != devicestore.KeySession {
			continue
		}
		current, err := a.store.LoadSession()
		if err == nil && current != nil && current.Identity.UserID == userID {
			continue
		}
		coordinator.SignedOut()
	}
}

func printMigrationNotice(out io.Writer, res migration.Result) {
	if res.Success {
		_, _ = fmt.Fprintf(out, "%s\n%s\n", green(bold("Data Migration Complete")), res.Message)
		return
	}
	_, _ = fmt.Fprintf(out, "%s\n%s\n", yellow(bold("Migration Notice")), res.Message)
}

func readPassword(in io.Reader, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv("ATARAXIA_PASSWORD"); env != "" {
		return env, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("a password is required")
	}
	return password, nil
}
