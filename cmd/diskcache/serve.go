package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lucasew/diskcache/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the cache over HTTP",
	Long: `serve exposes the cache at /blob/{key} (GET, HEAD, PUT, DELETE) and
Prometheus metrics at /metrics. Misses are filled from the upstream servers
and, when allowed, from ?url= sources.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv, cleanup, err := app.NewServer(cfg, nil)
		if err != nil {
			return err
		}
		defer cleanup()

		return srv.ListenAndServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.String("listen", ":8080", "Address to listen on")
	flags.StringSlice("upstream", nil, "Upstream diskcache servers asked on a miss")
	flags.Duration("upstream-timeout", 30*time.Second, "Timeout of upstream requests")
	flags.String("upstream-ca", "", "PEM bundle of extra CAs trusted for upstream requests")
	flags.Bool("allow-url", false, "Fill misses from ?url= query parameters")
	flags.Bool("metrics", true, "Expose Prometheus metrics at /metrics")
	flags.Duration("shutdown-timeout", 10*time.Second, "Grace period for open connections on shutdown")

	for _, name := range []string{"listen", "upstream", "upstream-timeout", "upstream-ca", "allow-url", "metrics", "shutdown-timeout"} {
		mustBindPFlag(name, flags.Lookup(name))
	}
}
