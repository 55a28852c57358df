package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcpserver "github.com/nlmcp/nlmcp/internal/mcp"
)

var (
	flagTransport string
	flagHost      string
	flagPort      int
	flagNotebook  string
	flagHeadless  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("notebook") {
			cfg.DefaultNotebookID = flagNotebook
		}
		if cmd.Flags().Changed("headless") {
			cfg.Headless = flagHeadless
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := mcpserver.NewServer(cfg)
		defer func() {
			if err := srv.Close(); err != nil {
				fmt.Printf("[Server] shutdown error: %v\n", err)
			}
		}()

		return srv.Run(ctx, flagTransport, flagHost, flagPort)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&flagTransport, "transport", "t", "stdio", "transport: stdio or http")
	serveCmd.Flags().StringVar(&flagHost, "host", "127.0.0.1", "bind host for http transport")
	serveCmd.Flags().IntVarP(&flagPort, "port", "p", 8001, "bind port for http transport")
	serveCmd.Flags().StringVarP(&flagNotebook, "notebook", "n", "", "default notebook id")
	serveCmd.Flags().BoolVar(&flagHeadless, "headless", false, "run the browser headless")
	rootCmd.AddCommand(serveCmd)
}
