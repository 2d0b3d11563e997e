package main

import (
	"fmt"
	"os"
	"path/filepath"

	"postdeck/internal/config"
	"postdeck/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	// Global flags
	verbose    bool
	configPath string
	postsDir   string

	cfg    *config.Config
	logger *zap.Logger
)

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "deck",
		Short: "postdeck - present Markdown posts as slide decks in the terminal",
		Long: `postdeck renders blog posts written in Markdown with embedded slide
markup. Posts with a <SlideShow> are presented one segment at a time;
everything else is plain reading.

Posts live in the posts directory (posts_dir in .postdeck/config.yaml,
or POSTDECK_POSTS).`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
			logging.CloseAll()
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./.postdeck/config.yaml)")
	root.PersistentFlags().StringVarP(&postsDir, "posts", "p", "", "Posts directory (overrides config)")

	root.AddCommand(
		newListCmd(),
		newShowCmd(),
		newPresentCmd(),
		newValidateCmd(),
		newSessionsCmd(),
		newVersionCmd(),
	)
	return root
}

// setup loads configuration and initializes both loggers.
func setup(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	var err error
	cfg, err = config.Load(path)
	if err != nil {
		return err
	}
	if postsDir != "" {
		cfg.PostsDir = postsDir
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err = buildLogger(cfg.Logging, verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := logging.Initialize(filepath.Dir(path), cfg.Logging.ToSettings()); err != nil {
		logger.Warn("category logging disabled", zap.Error(err))
	}
	logger.Debug("config loaded", zap.String("path", path), zap.String("posts", cfg.PostsDir))
	return nil
}

// buildLogger returns the CLI logger. It writes to stderr so command output
// stays pipeable.
func buildLogger(lc config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if lc.Format != "json" {
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(logging.ParseLevel(lc.Level))
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "deck %s\n", version)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
