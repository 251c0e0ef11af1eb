// Package cmd wires the hubchat command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hubchat",
	Short: "hubchat is a terminal client for hub conversations",
	Long: `hubchat streams hub conversations into your terminal.

Run "hubchat onboard" once to point it at a hub, then "hubchat chat" for an
interactive session or "hubchat send" for one-shot messages.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddGroup(&cobra.Group{ID: "chat", Title: "Chat Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "setup", Title: "Setup Commands:"})
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
