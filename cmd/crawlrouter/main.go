// Command crawlrouter runs the search/scrape gateway and offers a few
// one-shot helpers for working with backend definitions.
//
//	crawlrouter serve --config config.yaml
//	crawlrouter backends list
//	crawlrouter render search brave --context ctx.json
//	crawlrouter search "golang generics" --backend searxng
//	crawlrouter scrape https://example.com
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("crawlrouter failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "crawlrouter",
		Short: "Configuration-driven search and scrape gateway",
		Long: `crawlrouter exposes a Firecrawl-compatible API and forwards every
operation to a search or scrape provider described by YAML backend
definitions.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the configuration file")

	root.AddCommand(
		newServeCmd(&configPath),
		newBackendsCmd(&configPath),
		newRenderCmd(&configPath),
		newSearchCmd(&configPath),
		newScrapeCmd(&configPath),
	)
	return root
}
