package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nlmcp/nlmcp/internal/client"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Check browser launch and NotebookLM authentication",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cli := client.New(cfg)
		if err := cli.Start(ctx); err != nil {
			return fmt.Errorf("browser launch failed: %w", err)
		}
		defer cli.Close()
		fmt.Println("browser: ok")

		authenticated, err := cli.EnsureAuthenticated(ctx)
		if err != nil {
			return fmt.Errorf("authentication check failed: %w", err)
		}
		if authenticated {
			fmt.Println("authentication: ok")
		} else {
			fmt.Println("authentication: login required")
		}

		if cfg.DefaultNotebookID != "" {
			url, err := cli.NavigateToNotebook(ctx, cfg.DefaultNotebookID)
			if err != nil {
				return fmt.Errorf("notebook navigation failed: %w", err)
			}
			fmt.Printf("notebook: ok (%s)\n", url)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(testCmd)
}
