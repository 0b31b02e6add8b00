package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lucasew/diskcache"
	"github.com/lucasew/diskcache/internal/errutil"
)

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Write the entry for a key to stdout or a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, err := cmd.Flags().GetString("output")
		if err != nil {
			return err
		}

		c, err := openCache()
		if err != nil {
			return err
		}
		defer closeCache(cmd.Context(), c)

		res := <-c.Get(args[0])
		if errors.Is(res.Err, diskcache.ErrNotFound) {
			return fmt.Errorf("%s: not found", args[0])
		}
		if res.Err != nil {
			return res.Err
		}

		var out io.Writer = cmd.OutOrStdout()
		if output != "" {
			file, err := os.Create(output)
			if err != nil {
				return err
			}
			defer func() {
				errutil.LogMsg(nil, file.Close(), "Failed to close output file")
			}()
			out = file
		}
		_, err = out.Write(res.Data)
		return err
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().StringP("output", "o", "", "Output file")
}
