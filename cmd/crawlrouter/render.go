package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rhuss/crawlrouter/pkg/api"
	"github.com/rhuss/crawlrouter/pkg/engine"
	"github.com/rhuss/crawlrouter/pkg/provider"
	"github.com/rhuss/crawlrouter/pkg/render"
)

func newRenderCmd(configPath *string) *cobra.Command {
	var contextFile string

	cmd := &cobra.Command{
		Use:   "render <kind> <backend>",
		Short: "Render the outbound request of a backend without sending it",
		Long: `render evaluates the request template of a backend definition against
the process environment overlaid with the request context and prints the
resulting call configuration (url, method, headers, params, json).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := api.ParseKind(args[0])
			if err != nil {
				return err
			}
			req, err := readContext(contextFile, cmd.InOrStdin())
			if err != nil {
				return err
			}

			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			store, err := loadBackends(cfg)
			if err != nil {
				return err
			}
			eng, err := engine.New(store, provider.NewClient(), engine.Config{})
			if err != nil {
				return err
			}

			out, err := eng.RenderRequest(kind, args[1], req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&contextFile, "context", "", `JSON file with the request context ("-" reads stdin)`)
	return cmd
}

// readContext decodes the request context. An empty path yields an empty
// context.
func readContext(path string, stdin io.Reader) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading context: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parsing context %s: %w", path, err)
	}
	if m == nil {
		m = map[string]any{}
	}
	normalized, _ := render.Normalize(m).(map[string]any)
	return normalized, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
