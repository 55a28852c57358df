package main

import (
	"github.com/spf13/cobra"

	"github.com/nlmcp/nlmcp/internal/config"
	"github.com/nlmcp/nlmcp/internal/devlog"
)

var (
	flagConfig string
	flagDebug  bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "nlmcp",
	Short:         "NotebookLM automation served over MCP",
	Long:          "nlmcp drives the NotebookLM web UI through a real browser session\nand exposes it as MCP tools over stdio or HTTP.",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
		if flagDebug {
			cfg.Debug = true
		}
		if cfg.Debug {
			devlog.Enable()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "enable debug logging")
}
