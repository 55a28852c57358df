package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nlmcp/nlmcp/internal/browser"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Export and import the persistent browser profile",
}

var profileExportCmd = &cobra.Command{
	Use:   "export <dest-dir>",
	Short: "Copy the profile directory to another machine-portable location",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := browser.ExportProfile(cfg.Auth.ProfileDir, args[0]); err != nil {
			return err
		}
		fmt.Printf("exported %s -> %s\n", cfg.Auth.ProfileDir, args[0])
		return nil
	},
}

var profileImportCmd = &cobra.Command{
	Use:   "import <src-dir>",
	Short: "Replace the profile directory with a previously exported one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := browser.ImportProfile(args[0], cfg.Auth.ProfileDir); err != nil {
			return err
		}
		fmt.Printf("imported %s -> %s\n", args[0], cfg.Auth.ProfileDir)
		return nil
	},
}

func init() {
	profileCmd.AddCommand(profileExportCmd, profileImportCmd)
	rootCmd.AddCommand(profileCmd)
}
