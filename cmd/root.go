/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tlserve",
	Short: "Serve a directory of static files over HTTPS",
	Long: `tlserve serves the files below a root directory over HTTPS, using a
certificate and private key read from PEM files.

Only GET and HEAD are answered. Paths that escape the root directory,
directly or through symlinks, are answered with 404.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Int8P("verbose", "v", 0, "Log verbosity, 0 logs requests and lifecycle events, 1 adds debug output")
}
