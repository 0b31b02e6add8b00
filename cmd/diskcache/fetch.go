package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/lucasew/diskcache/internal/errutil"
	"github.com/lucasew/diskcache/internal/httpclient"
	"github.com/lucasew/diskcache/internal/upstream"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <key> <url>...",
	Short: "Download a URL into the cache under a key",
	Long: `fetch asks the configured upstream servers for the key first and falls
back to the given URLs in order.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, urls := args[0], args[1:]

		servers, err := cmd.Flags().GetStringSlice("upstream")
		if err != nil {
			return err
		}
		timeout, err := cmd.Flags().GetDuration("timeout")
		if err != nil {
			return err
		}

		caFile, err := cmd.Flags().GetString("ca")
		if err != nil {
			return err
		}
		client, err := httpclient.New(timeout, caFile)
		if err != nil {
			return err
		}
		f := upstream.NewFetcher(client, servers)

		bar := progressbar.NewOptions64(
			-1,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("downloading"),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(10),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionOnCompletion(func() {
				if _, err := fmt.Fprint(os.Stderr, "\n"); err != nil {
					errutil.LogMsg(nil, err, "Failed to print newline to stderr")
				}
			}),
		)

		var buf bytes.Buffer
		if err := f.Fetch(cmd.Context(), key, urls, io.MultiWriter(&buf, bar)); err != nil {
			return fmt.Errorf("fetch failed: %w", err)
		}
		errutil.LogMsg(nil, bar.Finish(), "Failed to finish progress bar")

		c, err := openCache()
		if err != nil {
			return err
		}
		defer closeCache(cmd.Context(), c)

		return <-c.Put(key, buf.Bytes())
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringSlice("upstream", nil, "Upstream diskcache servers to ask first")
	fetchCmd.Flags().Duration("timeout", 5*time.Minute, "Download timeout")
	fetchCmd.Flags().String("ca", "", "PEM bundle of extra CAs to trust")
}
