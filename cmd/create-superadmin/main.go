// Утилита create-superadmin создает первую учётную запись суперадминистратора.
//
//	create-superadmin --email root@example.com
//	create-superadmin --email root@example.com --password-file /run/secrets/root
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/magabrotheeeer/accelerator-platform/internal/config"
	"github.com/magabrotheeeer/accelerator-platform/internal/lib/password"
	"github.com/magabrotheeeer/accelerator-platform/internal/lib/sl"
	"github.com/magabrotheeeer/accelerator-platform/internal/models"
	"github.com/magabrotheeeer/accelerator-platform/internal/services/admin"
	"github.com/magabrotheeeer/accelerator-platform/internal/storage/repository"
)

var (
	errNoEmail          = errors.New("--email is required")
	errEmptyPassword    = errors.New("password is empty")
	errPasswordMismatch = errors.New("passwords do not match")
	errNoTerminal       = errors.New("no terminal available for interactive password prompt (use --password-file)")
)

type options struct {
	email        string
	passwordFile string
}

// Creator создает суперадминистратора.
type Creator interface {
	CreateSuperAdmin(ctx context.Context, email, rawPassword string) (*models.User, error)
}

// prompter запрашивает строку у пользователя, не показывая ввод.
type prompter func(prompt string) (string, error)

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	flagSet := pflag.NewFlagSet("create-superadmin", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.email, "email", "", "email of the new superadmin")
	flagSet.StringVar(&opts.passwordFile, "password-file", "", "path to file containing the password (default: prompt)")
	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}
	opts.email = strings.TrimSpace(opts.email)
	if opts.email == "" {
		return options{}, errNoEmail
	}
	return opts, nil
}

// readPassword читает пароль из файла или дважды спрашивает его интерактивно.
func readPassword(passwordFile string, prompt prompter) (string, error) {
	if passwordFile != "" {
		data, err := os.ReadFile(passwordFile)
		if err != nil {
			return "", fmt.Errorf("read password file: %w", err)
		}
		pw := strings.TrimRight(string(data), "\r\n")
		if pw == "" {
			return "", errEmptyPassword
		}
		return pw, nil
	}

	pw, err := prompt("Password: ")
	if err != nil {
		return "", err
	}
	if pw == "" {
		return "", errEmptyPassword
	}
	confirm, err := prompt("Confirm password: ")
	if err != nil {
		return "", err
	}
	if pw != confirm {
		return "", errPasswordMismatch
	}
	return pw, nil
}

func terminalPrompt(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errNoTerminal
	}
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}

func run(ctx context.Context, creator Creator, opts options, prompt prompter, stdout io.Writer) error {
	const op = "create-superadmin.run"

	pw, err := readPassword(opts.passwordFile, prompt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	user, err := creator.CreateSuperAdmin(ctx, opts.email, pw)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	fmt.Fprintf(stdout, "superadmin %s created (id %s)\n", user.Email, user.ID)
	return nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg := config.MustLoad()
	logger := sl.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.New(cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", sl.Err(err))
		os.Exit(1)
	}
	defer db.Close()

	if err := repository.CheckDatabaseReady(ctx, db); err != nil {
		logger.Error("database is not migrated, start accelerator-api first", sl.Err(err))
		os.Exit(1)
	}

	svc := admin.NewService(db, password.NewHasher(cfg.Password.BcryptCost), logger)
	if err := run(ctx, svc, opts, terminalPrompt, os.Stdout); err != nil {
		switch {
		case errors.Is(err, models.ErrDuplicateUser):
			logger.Error("user with this email already exists", slog.String("email", opts.email))
		case errors.Is(err, models.ErrValidation):
			logger.Error("password does not satisfy the policy", sl.Err(err))
		default:
			logger.Error("failed to create superadmin", sl.Err(err))
		}
		os.Exit(1)
	}
}
