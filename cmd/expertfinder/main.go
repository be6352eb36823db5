package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kalambet/expertfinder/internal/config"
)

var version = "dev"

var (
	noColor bool
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "expertfinder",
	Short: "Chat bot that finds experts in the company directory",
	Long: `expertfinder answers "who knows about X?" questions in workspace spaces.

It listens for platform webhooks, searches the profile directory and walks
the asker through picking, sharing and inviting an expert.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "dotenv file loaded before environment overrides")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(spacesCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig is a variable so tests can substitute a fixed configuration.
var loadConfig = func() (config.Config, error) {
	return config.Load(envFile)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
