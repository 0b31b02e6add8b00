package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lucasew/diskcache/internal/errutil"
)

var putCmd = &cobra.Command{
	Use:   "put <key> [file]",
	Short: "Store a file (or stdin) under a key",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = cmd.InOrStdin()
		if len(args) == 2 && args[1] != "-" {
			file, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer errutil.Close(nil, file, "Failed to close input file")
			in = file
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return err
		}

		c, err := openCache()
		if err != nil {
			return err
		}
		defer closeCache(cmd.Context(), c)

		return <-c.Put(args[0], data)
	},
}

func init() {
	rootCmd.AddCommand(putCmd)
}
