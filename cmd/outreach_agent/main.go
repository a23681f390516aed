// Package main provides the entry point for the Outreach Agent HTTP API
// server and its background commands.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "outreach_agent",
	Short: "Outreach Agent job application email service",
	Long:  "Outreach Agent runs personalized job application email campaigns: it extracts candidate facts from an uploaded resume, researches the target company, generates and sends the application email, and follows up automatically in the same thread.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to JSON config file (optional)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
