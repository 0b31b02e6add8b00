package main

import (
	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm <key>...",
	Short: "Remove entries",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache()
		if err != nil {
			return err
		}
		defer closeCache(cmd.Context(), c)

		for _, key := range args {
			c.Remove(key)
		}
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every entry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache()
		if err != nil {
			return err
		}
		defer closeCache(cmd.Context(), c)

		<-c.ClearAll()
		return nil
	},
}

var evictCmd = &cobra.Command{
	Use:   "evict",
	Short: "Run the eviction strategy once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache()
		if err != nil {
			return err
		}
		defer closeCache(cmd.Context(), c)

		<-c.Enforce()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rmCmd, clearCmd, evictCmd)
}
