package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/acsql/acsql/internal/config"
	"github.com/acsql/acsql/internal/database"
	"github.com/acsql/acsql/internal/logging"
)

type globalOptions struct {
	envFile      string
	databaseURL  string
	filesystem   string
	logDir       string
	jpegDir      string
	thumbnailDir string
	workers      int
	logLevel     string
}

var globals globalOptions

var rootCmd = &cobra.Command{
	Use:          "acsql",
	Short:        "acsql - catalog ACS FITS files into a queryable database",
	Long:         "acsql walks a FITS archive, extracts header metadata into SQLite or PostgreSQL, renders JPEG previews and answers queries by proposal.",
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = version

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&globals.envFile, "env-file", "", "Environment file to load (default .env)")
	flags.StringVar(&globals.databaseURL, "database", "", "SQLite path or postgres:// connection string")
	flags.StringVar(&globals.filesystem, "filesystem", "", "Root of the FITS archive")
	flags.StringVar(&globals.logDir, "log-dir", "", "Directory for run logs")
	flags.StringVar(&globals.jpegDir, "jpeg-dir", "", "Directory for JPEG previews")
	flags.StringVar(&globals.thumbnailDir, "thumbnail-dir", "", "Directory for thumbnails")
	flags.IntVar(&globals.workers, "workers", 0, "Number of ingest workers (default: number of CPUs)")
	flags.StringVar(&globals.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(newIngestCmd())
	rootCmd.AddCommand(newProposalsCmd())
	rootCmd.AddCommand(newProposalCmd())
	rootCmd.AddCommand(newInfoCmd())
	rootCmd.AddCommand(newResetCmd())
	rootCmd.AddCommand(newMCPCmd())
}

// loadConfig reads the environment and applies the flags the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(globals.envFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("database") {
		cfg.DatabaseURL = globals.databaseURL
	}
	if flags.Changed("filesystem") {
		cfg.FilesystemRoot = globals.filesystem
	}
	if flags.Changed("log-dir") {
		cfg.LogDir = globals.logDir
	}
	if flags.Changed("jpeg-dir") {
		cfg.JPEGDir = globals.jpegDir
	}
	if flags.Changed("thumbnail-dir") {
		cfg.ThumbnailDir = globals.thumbnailDir
	}
	if flags.Changed("workers") {
		cfg.Workers = globals.workers
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = globals.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore loads the configuration and connects to the catalog.
func openStore(ctx context.Context, cmd *cobra.Command) (database.Store, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	store, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

// newLogger writes to stderr and, for commands that change the catalog, to
// a timestamped file in the log directory.
func newLogger(cmd *cobra.Command, cfg *config.Config, module string, toFile bool) (*logrus.Logger, func() error, error) {
	opts := logging.Options{
		Module:  module,
		Level:   cfg.LogLevel,
		Console: cmd.ErrOrStderr(),
	}
	if toFile {
		opts.LogDir = cfg.LogDir
	}
	return logging.Setup(opts)
}

func outputJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func getTerminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 80
}
