package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rhuss/crawlrouter/pkg/api"
	"github.com/rhuss/crawlrouter/pkg/selector"
	"github.com/rhuss/crawlrouter/pkg/transport"
)

func newSearchCmd(configPath *string) *cobra.Command {
	var (
		req     api.SearchRequest
		backend string
		scrape  bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run one search through the configured backends",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Query = strings.Join(args, " ")
			if scrape {
				req.ScrapeOptions = &api.ScrapeOptions{Formats: []string{api.FormatMarkdown}}
			}
			if apiErr := api.ValidateSearchRequest(&req); apiErr != nil {
				return apiErr
			}
			return runOnce(cmd, *configPath, api.KindSearch, backend, &req)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&backend, "backend", "b", "", "Comma-separated backend candidates")
	f.IntVarP(&req.Limit, "limit", "n", 0, "Maximum number of results (default 5)")
	f.StringVar(&req.Lang, "lang", "", "Result language (default en)")
	f.StringVar(&req.Country, "country", "", "Result country (default us)")
	f.BoolVar(&scrape, "scrape", false, "Scrape every result as markdown")
	return cmd
}

func newScrapeCmd(configPath *string) *cobra.Command {
	var (
		req     api.ScrapeRequest
		backend string
	)

	cmd := &cobra.Command{
		Use:   "scrape <url>",
		Short: "Scrape one page through the configured backends",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.URL = args[0]
			if apiErr := api.ValidateScrapeRequest(&req); apiErr != nil {
				return apiErr
			}
			return runOnce(cmd, *configPath, api.KindScrape, backend, &req)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&backend, "backend", "b", "", "Comma-separated backend candidates")
	f.StringSliceVarP(&req.Formats, "format", "f", nil, "Formats to return (default markdown)")
	return cmd
}

// runOnce executes a single operation in-process and prints the result.
// The request log is not used.
func runOnce(cmd *cobra.Command, configPath string, kind api.Kind, backends string, req any) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	store, err := loadBackends(cfg)
	if err != nil {
		return err
	}
	gw, err := newGateway(cfg, store, nil)
	if err != nil {
		return err
	}

	fields, err := api.Context(req)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	exec := transport.Chain(transport.Recovery(), transport.RequestID())(gw)
	result, err := exec.Execute(ctx, &transport.Operation{
		Kind:     kind,
		Backends: selector.SplitCSV(backends),
		Request:  fields,
	})
	if err != nil {
		return fmt.Errorf("%s failed: %w", kind, err)
	}
	return writeJSON(cmd.OutOrStdout(), result)
}
