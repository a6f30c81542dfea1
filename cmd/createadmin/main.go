// Command createadmin provisions the first superadmin account.
//
//	createadmin --username root --email root@example.com --password '...'
//
// Store settings come from .env and the environment, like the server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"campushub/internal/app"
	"campushub/internal/auth"
	"campushub/internal/config"
	"campushub/internal/logger"
	"campushub/internal/models"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("createadmin", pflag.ContinueOnError)
	username := fs.StringP("username", "u", "", "Admin username")
	email := fs.StringP("email", "e", "", "Admin email")
	password := fs.StringP("password", "p", "", "Admin password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *email == "" || *password == "" {
		return errors.New("--username, --email and --password are required")
	}

	cfg, err := config.Load(nil)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.StoreBackend != config.StoreMongo {
		return fmt.Errorf("store backend %q does not persist accounts", cfg.StoreBackend)
	}

	log, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	account, err := a.Admin.Sessions.CreateAccount(ctx, auth.NewAccount{
		Username: *username,
		Email:    *email,
		Password: *password,
		Role:     models.RoleSuperAdmin,
	})
	if err != nil {
		return err
	}

	fmt.Printf("superadmin %s created (%s)\n", account.Username, account.ID.Hex())
	return nil
}
