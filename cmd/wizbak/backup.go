package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/wizbak/internal/backup"
	"github.com/pdiddy/wizbak/internal/index"
	"github.com/pdiddy/wizbak/internal/wizapi"
	"github.com/pdiddy/wizbak/pkg/types"
)

const (
	defaultTimeout     = 60 * time.Second
	defaultUserAgent   = "wizbak/0.1"
	defaultServer      = "https://as.wiz.cn"
	defaultConcurrency = 4
	defaultRate        = 10.0
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up the account to a local Markdown tree",
	Long: `Backup logs in, lists the account's folders and notes, and downloads
every document that is new or changed since the last run. Documents are
converted to Markdown and written under the output directory, mirroring
the account's folder hierarchy; attachments go to assets/ next to their
document. A sync index next to the output tree makes later runs
incremental.`,
	RunE: runBackup,
}

func init() {
	backupCmd.Flags().String("out", "backup", "output directory for the Markdown tree")
	backupCmd.Flags().Bool("full", false, "resync every document, ignoring the index")
	backupCmd.Flags().Bool("flat", false, "write all files into one directory with positional names")
	backupCmd.Flags().StringSlice("folders", nil, "restrict the run to these folder paths")
	backupCmd.Flags().StringSlice("exclude", nil, "skip documents under these folder prefixes")
	backupCmd.Flags().Int("concurrency", 0, "fetch worker pool size (default 4)")
	backupCmd.Flags().Float64("rate", 0, "API requests per second across all workers (default 10)")
	backupCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	backupCmd.Flags().String("user", "", "account user id (default from .secrets/wiz-user-id)")

	rootCmd.AddCommand(backupCmd)
}

// backupConfig assembles the run configuration from flags, the config file,
// and built-in defaults, in that order of precedence.
func backupConfig(cmd *cobra.Command) types.BackupConfig {
	var cfg types.BackupConfig

	cfg.API.Server = viper.GetString("api.server")
	if cfg.API.Server == "" {
		cfg.API.Server = secretDefault("wiz-server", "")
	}
	if cfg.API.Server == "" {
		cfg.API.Server = defaultServer
	}

	cfg.API.Timeout, _ = cmd.Flags().GetDuration("timeout")
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = viper.GetDuration("api.timeout")
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = defaultTimeout
	}
	cfg.API.UserAgent = defaultUserAgent

	cfg.API.RatePerSecond, _ = cmd.Flags().GetFloat64("rate")
	if cfg.API.RatePerSecond == 0 {
		cfg.API.RatePerSecond = viper.GetFloat64("api.rate_per_second")
	}
	if cfg.API.RatePerSecond == 0 {
		cfg.API.RatePerSecond = defaultRate
	}
	cfg.API.MaxRetries = viper.GetInt("api.max_retries")

	cfg.Sync.Full, _ = cmd.Flags().GetBool("full")
	cfg.Sync.Folders, _ = cmd.Flags().GetStringSlice("folders")
	if len(cfg.Sync.Folders) == 0 {
		cfg.Sync.Folders = viper.GetStringSlice("sync.folders")
	}
	cfg.Sync.Exclude, _ = cmd.Flags().GetStringSlice("exclude")
	if len(cfg.Sync.Exclude) == 0 {
		cfg.Sync.Exclude = viper.GetStringSlice("sync.exclude")
	}
	cfg.Sync.Concurrency, _ = cmd.Flags().GetInt("concurrency")
	if cfg.Sync.Concurrency == 0 {
		cfg.Sync.Concurrency = viper.GetInt("sync.concurrency")
	}
	if cfg.Sync.Concurrency == 0 {
		cfg.Sync.Concurrency = defaultConcurrency
	}

	cfg.Output.Dir, _ = cmd.Flags().GetString("out")
	if !cmd.Flags().Changed("out") && viper.GetString("output.dir") != "" {
		cfg.Output.Dir = viper.GetString("output.dir")
	}
	cfg.Output.Flat, _ = cmd.Flags().GetBool("flat")
	cfg.Output.IndexPath = viper.GetString("output.index_path")

	return cfg
}

func credentials(cmd *cobra.Command) (wizapi.Credentials, error) {
	user, _ := cmd.Flags().GetString("user")
	creds := wizapi.Credentials{
		UserID:   secretDefault("wiz-user-id", user),
		Password: secretDefault("wiz-password", ""),
	}
	if creds.UserID == "" || creds.Password == "" {
		return creds, fmt.Errorf("missing credentials: run 'wizbak login' or create .secrets/wiz-user-id and .secrets/wiz-password")
	}
	return creds, nil
}

func runBackup(cmd *cobra.Command, args []string) error {
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

	folders := cfg.Sync.Folders
	if len(folders) == 0 {
		folders, err = client.AllFolders(ctx)
		if err != nil {
			return fmt.Errorf("listing folders: %w", err)
		}
	}

	var remote []types.Note
	for _, folder := range folders {
		notes, err := client.AllNotes(ctx, folder)
		if err != nil {
			return fmt.Errorf("listing notes in %s: %w", folder, err)
		}
		remote = append(remote, notes...)
	}
	fmt.Fprintf(os.Stdout, "Found %d document(s) in %d folder(s)\n", len(remote), len(folders))

	indexPath := cfg.Output.IndexPath
	if indexPath == "" {
		indexPath = index.DefaultPath(cfg.Output.Dir)
	}
	idx, err := index.Open(indexPath)
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	defer idx.Close()

	plan, err := backup.BuildPlan(remote, idx, cfg.Sync)
	if err != nil {
		return fmt.Errorf("planning: %w", err)
	}

	co := backup.NewCoordinator(client, idx, backup.NewWriter(cfg.Output, idx), cfg.Sync.Concurrency)
	stats, runErr := co.Run(ctx, plan, os.Stdout)
	stats.Summary(os.Stdout)

	if runErr != nil {
		return fmt.Errorf("backup aborted: %w", runErr)
	}
	if stats.HasFailures() {
		return fmt.Errorf("%d document(s) failed backup", len(stats.Failures()))
	}
	return nil
}
