package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/commercegate/admin-security/internal/config"
	"github.com/commercegate/admin-security/internal/domain"
	"github.com/commercegate/admin-security/internal/repository"
	"github.com/commercegate/admin-security/internal/security"
	"github.com/commercegate/admin-security/internal/tools/common"
	"github.com/commercegate/admin-security/internal/tools/smoke"
)

func main() {
	root := &cobra.Command{
		Use:   "adminctl",
		Short: "Operator tooling for the admin security service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return common.LoadEnvFile(".env")
		},
	}
	root.AddCommand(newCreateAdminCommand())
	root.AddCommand(smoke.NewCommand())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCreateAdminCommand() *cobra.Command {
	var email, name, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email = strings.ToLower(strings.TrimSpace(email))
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			if password == "" {
				password = os.Getenv("ADMINCTL_PASSWORD")
			}
			if len(password) < 12 {
				return fmt.Errorf("password must be at least 12 characters")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := repository.Open(cfg)
			if err != nil {
				return err
			}
			defer func() {
				if sqlDB, err := db.DB(); err == nil {
					_ = sqlDB.Close()
				}
			}()

			hash, err := security.HashPassword(password, cfg.BcryptCost)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			users := repository.NewUserRepository(db)
			user := &domain.User{
				Email:        email,
				Name:         name,
				PasswordHash: hash,
				Status:       domain.UserStatusActive,
			}
			if err := users.Create(ctx, user); err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			fmt.Printf("created admin %s (id=%d)\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email address")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&password, "password", "", "password (or set ADMINCTL_PASSWORD)")
	return cmd
}
