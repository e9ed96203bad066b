package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "botwalk",
	Short: "Botwalk runs conversation flow graphs",
	Long:  `Botwalk validates and executes messaging conversation flows defined as node/edge graphs in YAML or JSON files.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
}
