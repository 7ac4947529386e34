// Package cli wires the curation pipeline into its command-line surface: a
// root command carrying global configuration plus the build, assemble, and
// migrate subcommands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xtalforge/ccmodel/internal/config"
	"github.com/xtalforge/ccmodel/internal/infrastructure/monitoring/logging"
	"github.com/xtalforge/ccmodel/internal/infrastructure/monitoring/metrics"
	"github.com/xtalforge/ccmodel/internal/modelstore"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// rootOptions holds the global flags shared by every subcommand.
type rootOptions struct {
	configPath string
}

// runtime carries the dependencies every subcommand initialises the same
// way: validated configuration, the process logger, the metrics instance,
// and the artifact store.
type runtime struct {
	cfg     *config.Config
	logger  logging.Logger
	metrics *metrics.Metrics
	store   *modelstore.Store
}

// initRuntime loads configuration (file when --config is given, environment
// otherwise), builds the logger and store, and starts the metrics listener
// when enabled.
func (o *rootOptions) initRuntime(ctx context.Context) (*runtime, error) {
	var cfg *config.Config
	var err error
	if o.configPath != "" {
		cfg, err = config.Load(o.configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	logging.SetDefault(logger)

	store, err := modelstore.New(modelstore.Layout{
		CacheDir: cfg.Paths.CacheDir,
		Prefix:   cfg.Paths.Prefix,
	})
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	if cfg.Metrics.Enabled {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.ListenAddr); err != nil {
				logger.Warn("metrics listener stopped", logging.Err(err))
			}
		}()
	}

	return &runtime{cfg: cfg, logger: logger, metrics: m, store: store}, nil
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "ccmodel",
		Short:         "Chemical component model curation pipeline",
		Long:          "ccmodel builds experimental-coordinate models for chemical component definitions and assembles them into versioned public releases.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"path to the YAML configuration file (environment-only when omitted)")

	cmd.AddCommand(
		newBuildCommand(opts),
		newAssembleCommand(opts),
		newMigrateCommand(opts),
		newVersionCommand(),
	)
	return cmd
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// printJSON renders a command result on stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ccmodel %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		},
	}
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
