package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lucasew/diskcache"
	"github.com/lucasew/diskcache/internal/app"
	"github.com/lucasew/diskcache/internal/config"
	"github.com/lucasew/diskcache/internal/errutil"
	"github.com/lucasew/diskcache/internal/logging"
)

var (
	cfgFile   string
	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "diskcache",
	Short: "A disk-backed blob cache",
	Long: `diskcache stores blobs under arbitrary keys in a directory, keeps the
directory under a capacity and evicts entries with a pluggable strategy.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(viper.GetViper(), cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
		logCloser = logging.Setup(cfg.Log, cfg.LogLevel())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			errutil.Close(nil, logCloser, "Failed to close log file")
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if _, printErr := fmt.Fprintln(os.Stderr, err); printErr != nil {
			errutil.ReportError(nil, printErr, "Failed to print error to stderr")
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (yaml, toml or json)")
	flags.String("dir", "./cache", "Directory to store cached files")
	flags.String("capacity", "1GiB", "Cache capacity, e.g. 512MiB or 2GB")
	flags.StringSlice("strategy", []string{"over-capacity"}, "Eviction strategies, applied in order")
	flags.Duration("max-age", 0, "Maximum entry age for the max-age strategy")
	flags.String("min-free", "0", "Minimum free disk space for the min-free strategy")
	flags.String("semantic", "modification", "Timestamp compared by age strategies (creation or modification)")
	flags.String("key-hash", "md5", "Digest used for keys too long to be file names")
	flags.Int("queue-size", 1024, "Pending operations before callers block")
	flags.Duration("enforce-interval", 0, "Run the eviction strategy periodically")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "text", "Log format (text or json)")
	flags.String("log-file", "", "Write logs to a rotating file instead of stderr")

	for _, name := range []string{
		"dir", "capacity", "strategy", "max-age", "min-free", "semantic", "key-hash",
		"queue-size", "enforce-interval", "log-level", "log-format", "log-file",
	} {
		mustBindPFlag(name, flags.Lookup(name))
	}
}

func initConfig() {
	config.SetDefaults(viper.GetViper())
	config.BindEnv(viper.GetViper())
}

func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

// openCache opens the configured cache for a one-shot command.
func openCache() (*diskcache.Cache, error) {
	return app.OpenCache(cfg, slog.Default(), nil)
}

// closeCache waits for the queued operations and stops the worker.
func closeCache(ctx context.Context, c *diskcache.Cache) {
	errutil.ReportError(nil, c.Wait(ctx), "Failed to wait for pending operations")
	errutil.ReportError(nil, c.Close(), "Failed to close cache")
}
