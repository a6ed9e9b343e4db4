package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yeogida/yeogida-backend/internal/auth"
	"github.com/yeogida/yeogida-backend/internal/config"
	sqliteRepo "github.com/yeogida/yeogida-backend/internal/repository/sqlite"
	"github.com/yeogida/yeogida-backend/internal/service"
)

// cli carries what every subcommand shares.
type cli struct {
	in     io.Reader
	out    io.Writer
	dbPath string
	logger *slog.Logger
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	c := &cli{in: in, out: out}

	root := &cobra.Command{
		Use:          "manage",
		Short:        "Administrative tasks for the yeogida backend",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			if c.dbPath == "" {
				c.dbPath = config.DBPath(os.Getenv)
			}
			c.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			return nil
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&c.dbPath, "db", "", "SQLite database path (default $DB_PATH or data/yeogida.db)")

	root.AddCommand(c.migrateCmd(), c.createSuperuserCmd(), c.changePasswordCmd())
	return root
}

// open creates the database directory if needed and opens (and migrates)
// the database.
func (c *cli) open() (*sqliteRepo.DB, error) {
	if c.dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(c.dbPath), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	return sqliteRepo.New(c.dbPath)
}

func (c *cli) authService(db *sqliteRepo.DB) *service.AuthService {
	// Only the password operations are used here; they need neither the
	// Kakao client nor the token service.
	return service.NewAuthService(db, nil, nil, auth.NewPasswordService(), c.logger)
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := c.open()
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintf(c.out, "database %s is up to date\n", c.dbPath)
			return nil
		},
	}
}

func (c *cli) createSuperuserCmd() *cobra.Command {
	var id, nickname, email, password string

	cmd := &cobra.Command{
		Use:   "createsuperuser",
		Short: "Create a staff account that can log in with a password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			if id == "" {
				id = email
			}
			if password == "" {
				var err error
				if password, err = c.readPassword(); err != nil {
					return err
				}
			}

			db, err := c.open()
			if err != nil {
				return err
			}
			defer db.Close()

			account, err := c.authService(db).CreateSuperuser(cmd.Context(), id, nickname, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "superuser %s (%s) created\n", account.ID, account.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "account id (default: the email)")
	cmd.Flags().StringVar(&nickname, "nickname", "admin", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	return cmd
}

func (c *cli) changePasswordCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "changepassword ACCOUNT_ID",
		Short: "Set the password of an existing account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = c.readPassword(); err != nil {
					return err
				}
			}

			db, err := c.open()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := c.authService(db).SetPassword(cmd.Context(), args[0], password); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "password changed for %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "new password (prompted when omitted)")
	return cmd
}

// readPassword prompts twice on a terminal; otherwise it reads one line, so
// the password can be piped in.
func (c *cli) readPassword() (string, error) {
	if f, ok := c.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(c.out, "Password: ")
		first, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.out)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		fmt.Fprint(c.out, "Password (again): ")
		second, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.out)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		if string(first) != string(second) {
			return "", errors.New("passwords do not match")
		}
		return string(first), nil
	}

	line, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("no password given")
	}
	return line, nil
}
