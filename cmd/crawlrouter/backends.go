package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rhuss/crawlrouter/pkg/api"
	"github.com/rhuss/crawlrouter/pkg/backend"
)

func newBackendsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backends",
		Short: "Inspect backend definitions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the backends defined for each operation kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			store, err := loadBackends(cfg)
			if err != nil {
				return err
			}
			return printBackends(cmd.OutOrStdout(), store, map[api.Kind][]string{
				api.KindSearch:       cfg.Backends.Search,
				api.KindScrape:       cfg.Backends.Scrape,
				api.KindBatchScrape:  cfg.Backends.Scrape,
				api.KindExtract:      cfg.Backends.Extract,
				api.KindDeepResearch: cfg.Backends.DeepResearch,
			})
		},
	})
	return cmd
}

// printBackends writes one row per kind. Configured defaults are marked
// with an asterisk.
func printBackends(w io.Writer, store *backend.Store, defaults map[api.Kind][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tBACKENDS")
	for _, kind := range api.Kinds {
		names := store.Names(kind)
		marked := make([]string, len(names))
		for i, n := range names {
			marked[i] = n
			for _, d := range defaults[kind] {
				if d == n {
					marked[i] = n + "*"
					break
				}
			}
		}
		fmt.Fprintf(tw, "%s\t%s\n", kind, strings.Join(marked, ", "))
	}
	return tw.Flush()
}
