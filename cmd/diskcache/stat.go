package main

import (
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/tunabay/go-infounit"

	"github.com/lucasew/diskcache"
	"github.com/lucasew/diskcache/internal/eviction"
)

var statCmd = &cobra.Command{
	Use:   "stat",
	Short: "Show the size of the cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache()
		if err != nil {
			return err
		}
		defer closeCache(cmd.Context(), c)

		if err := c.Wait(cmd.Context()); err != nil {
			return err
		}
		entries, err := eviction.Entries(afero.NewOsFs(), c.Dir(), slog.Default())
		if err != nil {
			return err
		}

		capacity := "unbounded"
		if c.Capacity() != diskcache.Unbounded {
			capacity = fmt.Sprintf("%.1S", infounit.ByteCount(c.Capacity()))
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "dir\t%s\n", c.Dir())
		fmt.Fprintf(w, "entries\t%d\n", len(entries))
		fmt.Fprintf(w, "size\t%.1S\n", infounit.ByteCount(c.Size()))
		fmt.Fprintf(w, "capacity\t%s\n", capacity)
		fmt.Fprintf(w, "strategy\t%s\n", strings.Join(cfg.Strategies, ","))
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(statCmd)
}
