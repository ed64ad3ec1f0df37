package main

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pdiddy/wizbak/internal/secrets"
	"github.com/pdiddy/wizbak/internal/wizapi"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Verify credentials and save them to .secrets/",
	Long: `Login prompts for the account user id and password, verifies them
against the account server, and saves them under .secrets/ for later
backup runs. The password is read without echo.`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().String("user", "", "account user id (prompted when omitted)")
	loginCmd.Flags().String("server", "", "account server base URL (default https://as.wiz.cn)")
	loginCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")

	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg := backupConfig(cmd)
	if server, _ := cmd.Flags().GetString("server"); server != "" {
		cfg.API.Server = server
	}

	user, _ := cmd.Flags().GetString("user")
	if user == "" {
		fmt.Fprint(os.Stderr, "User id: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading user id: %w", err)
		}
		user = strings.TrimSpace(line)
	}
	if user == "" {
		return fmt.Errorf("user id is required")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	pwBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	password := strings.TrimSpace(string(pwBytes))
	if password == "" {
		return fmt.Errorf("password is required")
	}

	creds := wizapi.Credentials{UserID: user, Password: password}
	httpClient := &http.Client{Timeout: cfg.API.Timeout}
	session := wizapi.NewSession(httpClient, cfg.API, creds)
	if _, err := session.Token(cmd.Context()); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := secrets.Save(secretsDir, "wiz-user-id", user); err != nil {
		return err
	}
	if err := secrets.Save(secretsDir, "wiz-password", password); err != nil {
		return err
	}
	if cfg.API.Server != defaultServer {
		if err := secrets.Save(secretsDir, "wiz-server", cfg.API.Server); err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stdout, "Logged in as %s; credentials saved to %s\n", user, secretsDir)
	return nil
}
