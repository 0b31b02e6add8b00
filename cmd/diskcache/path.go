package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasew/diskcache/internal/keymap"
)

var pathCmd = &cobra.Command{
	Use:   "path <key>...",
	Short: "Print the file that holds each key",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keys, err := keymap.New(cfg.Dir, cfg.KeyHash)
		if err != nil {
			return err
		}
		for _, key := range args {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), keys.Path(key)); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pathCmd)
}
