package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	notewire "github.com/sachindrat2/notewire"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	serverURL  string
	configPath string
	dataDir    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "notewire",
	Short: "A notes client with a persisted session and offline fallback",
	Long: `Notewire talks to a remote notes API with bearer-token auth.
Note lists are mirrored locally, so listing keeps working when the
network or the session is gone.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "API base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory for the session and cache")
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}

// newClient builds the wired client from the config file and flags. Flags
// win over the file.
func newClient() (*notewire.Client, error) {
	path := configPath
	if path == "" {
		if base, err := os.UserConfigDir(); err == nil {
			path = filepath.Join(base, "notewire", "config.yaml")
		}
	}

	cfg, err := notewire.LoadFileConfig(path)
	if err != nil {
		return nil, err
	}
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}

	if serverURL != "" {
		opts = append(opts, notewire.WithBaseURL(serverURL))
	}
	if dataDir != "" {
		opts = append(opts, notewire.WithDataDir(dataDir))
	}
	opts = append(opts, notewire.WithLogger(slog.Default()))

	return notewire.New(opts...)
}
