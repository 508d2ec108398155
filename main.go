// Package main provides the companyresolver command line: single and batch
// resolution plus the HTTP server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath   string
	headless     bool
	verbose      bool
	manualVerify bool
)

var rootCmd = &cobra.Command{
	Use:   "companyresolver",
	Short: "Resolve businesses to their company pages",
	Long: `companyresolver finds the company page for a business name, optionally
narrowed by city, state and website, and extracts the company details shown there.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", true, "Run the browser without a window")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug details")
	rootCmd.PersistentFlags().BoolVar(&manualVerify, "manual-verify", false, "Pause for a person to finish sign-in checks in the browser window")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
