// Package main provides the entry point for the Profile Archiver.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "archiver_agent",
	Short: "Profile Archiver",
	Long:  "Profile Archiver captures a public profile page, extracts its listings, and publishes canonical records to a content-addressed storage network.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
