package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/wizbak/internal/wizapi"
)

var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "List the account's folder paths",
	Long: `Folders logs in and prints every folder path in the account, one per
line. Useful for building --folders and --exclude arguments for backup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := backupConfig(cmd)

		creds, err := credentials(cmd)
		if err != nil {
			return err
		}

		httpClient := &http.Client{Timeout: cfg.API.Timeout}
		session := wizapi.NewSession(httpClient, cfg.API, creds)
		if _, err := session.Token(ctx); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		kbServer, kbGUID := session.KB()
		if kbServer == "" {
			kbServer = cfg.API.Server
		}
		client := wizapi.New(cfg.API, kbServer, kbGUID, session)

		folders, err := client.AllFolders(ctx)
		if err != nil {
			return fmt.Errorf("listing folders: %w", err)
		}
		for _, f := range folders {
			fmt.Fprintln(os.Stdout, f)
		}
		return nil
	},
}

func init() {
	foldersCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	foldersCmd.Flags().Float64("rate", 0, "API requests per second (default 10)")
	foldersCmd.Flags().String("user", "", "account user id (default from .secrets/wiz-user-id)")

	rootCmd.AddCommand(foldersCmd)
}
