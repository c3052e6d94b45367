package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go-inventory-pos/internal/app"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/service"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// operator is recorded as the actor of changes made from the CLI.
var operator = &model.User{Username: "cli"}

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create a user account",
	Long:  "Create a user account. The password is read from --password or, when omitted, from the first line of stdin.",
	RunE:  runCreateUser,
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password <username>",
	Short: "Set a new password and close the user's sessions",
	Args:  cobra.ExactArgs(1),
	RunE:  runResetPassword,
}

func init() {
	createUserCmd.Flags().String("username", "", "login name")
	createUserCmd.Flags().String("email", "", "email address")
	createUserCmd.Flags().String("password", "", "password (read from stdin when empty)")
	createUserCmd.Flags().String("role", model.RoleUser, "role code: admin or user")
	createUserCmd.Flags().StringSlice("permission", nil, "extra permission code, repeatable")
	_ = createUserCmd.MarkFlagRequired("username")
	_ = createUserCmd.MarkFlagRequired("email")

	resetPasswordCmd.Flags().String("password", "", "new password (read from stdin when empty)")

	rootCmd.AddCommand(createUserCmd, resetPasswordCmd)
}

func runCreateUser(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	username, _ := flags.GetString("username")
	email, _ := flags.GetString("email")
	role, _ := flags.GetString("role")
	perms, _ := flags.GetStringSlice("permission")
	password, err := passwordFrom(cmd)
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		user, err := a.Users.CreateUser(ctx, operator, service.CreateUserRequest{
			Username:    username,
			Email:       email,
			Password:    password,
			Role:        role,
			Permissions: perms,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s user %s (%s)\n", role, user.Username, user.ID)
		return nil
	})
}

func runResetPassword(cmd *cobra.Command, args []string) error {
	password, err := passwordFrom(cmd)
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		user, err := a.UserRepo.FindByUsername(ctx, args[0])
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user %q not found", args[0])
		}
		if err != nil {
			return err
		}
		if _, err := a.Users.UpdateUser(ctx, operator, user.ID, service.UpdateUserRequest{Password: &password}); err != nil {
			return err
		}
		if err := a.Sessions.CloseAllForUser(a.DB.WithContext(ctx), user.ID); err != nil {
			return fmt.Errorf("closing sessions: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Password for %s has been reset\n", user.Username)
		return nil
	})
}

func passwordFrom(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("password"); p != "" {
		return p, nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("a password is required")
	}
	return line, nil
}
