package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nlmcp/nlmcp/internal/client"
)

var (
	flagChatNotebook string
	flagChatWait     int
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Chat with a notebook from the terminal",
	Long:  "With a message argument, sends it and prints the reply.\nWithout arguments, starts an interactive session (exit with 'quit').",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagChatNotebook != "" {
			cfg.DefaultNotebookID = flagChatNotebook
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cli := client.New(cfg)
		if err := cli.Start(ctx); err != nil {
			return err
		}
		defer cli.Close()

		authenticated, err := cli.EnsureAuthenticated(ctx)
		if err != nil {
			return err
		}
		if !authenticated {
			return fmt.Errorf("not authenticated: sign in to Google in the opened browser and retry")
		}

		if cfg.DefaultNotebookID != "" {
			if _, err := cli.NavigateToNotebook(ctx, cfg.DefaultNotebookID); err != nil {
				return err
			}
		}

		maxWait := time.Duration(flagChatWait) * time.Second

		if len(args) == 1 {
			reply, err := cli.ChatAndWait(ctx, args[0], maxWait)
			if err != nil {
				return err
			}
			fmt.Println(reply)
			return nil
		}

		fmt.Println("Interactive chat. Type 'quit' to exit.")
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "quit" || line == "exit" {
				return nil
			}

			reply, err := cli.ChatAndWait(ctx, line, maxWait)
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			fmt.Println(reply)
		}
	},
}

func init() {
	chatCmd.Flags().StringVarP(&flagChatNotebook, "notebook", "n", "", "notebook id to open")
	chatCmd.Flags().IntVarP(&flagChatWait, "wait", "w", 0, "max seconds to wait for a reply (0 = config default)")
	rootCmd.AddCommand(chatCmd)
}
