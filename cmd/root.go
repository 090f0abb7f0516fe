/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "medimg",
	Short: "Access-controlled repository for medical-image datasets",
	Long: `medimg is the backend API server for an access-controlled repository
of medical-image datasets. It organizes image samples into datasets, lets
researchers attach annotations, and gates downloads behind a human-reviewed
approval workflow, recording every authorization decision in an append-only
audit trail.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
