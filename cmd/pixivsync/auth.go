package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pixivsync/pkg/auth"
	"pixivsync/pkg/logger"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored Pixiv credentials",
	Long: `Store, list and remove Pixiv credentials.

Credentials are saved to the system keychain when one is available, with
an encrypted file under the user config directory as fallback. The
refresh token is the long-lived secret; obtain it once from a logged-in
Pixiv session.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store a refresh token and verify it against the API",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		db := openStore(cfg)

		username := ""
		if len(args) > 0 {
			username = args[0]
		}

		refreshToken, err := promptRefreshToken()
		if err != nil {
			return err
		}
		if refreshToken == "" {
			return fmt.Errorf("refresh token is required")
		}

		client := newClientUnauthenticated(cfg)
		token, err := client.Authenticate(refreshToken)
		if err != nil {
			return fmt.Errorf("token verification failed: %w", err)
		}
		if username == "" {
			username = token.UserName
		}

		db.SetToken(*token)
		saveStore(cfg, db)

		manager, err := auth.NewManager()
		if err != nil {
			return err
		}
		if err := manager.Store(&auth.Account{
			Username:     username,
			RefreshToken: token.RefreshToken,
			UserAgent:    cfg.Pixiv.UserAgent,
		}); err != nil {
			return fmt.Errorf("failed to store credentials: %w", err)
		}

		logger.WithField("account", username).Info("Credentials stored")
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout <username>",
	Short: "Remove stored credentials for an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loadConfig()

		manager, err := auth.NewManager()
		if err != nil {
			return err
		}
		if err := manager.Delete(args[0]); err != nil {
			return fmt.Errorf("failed to remove credentials: %w", err)
		}

		logger.WithField("account", args[0]).Info("Credentials removed")
		return nil
	},
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		loadConfig()

		manager, err := auth.NewManager()
		if err != nil {
			return err
		}
		accounts, err := manager.List()
		if err != nil {
			return err
		}

		if len(accounts) == 0 {
			fmt.Println("no accounts stored")
			return nil
		}
		for _, account := range accounts {
			fmt.Println(account.Username)
		}
		return nil
	},
}

// promptRefreshToken reads the refresh token without echoing when stdin is a
// terminal, and falls back to a plain line read otherwise (pipes, CI).
func promptRefreshToken() (string, error) {
	fmt.Fprint(os.Stderr, "Refresh token: ")

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		data, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}

	var line string
	if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func init() {
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authListCmd)

	rootCmd.AddCommand(authCmd)
}
