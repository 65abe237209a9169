/*
Command ask runs one query through the full pipeline against the configured
backends and prints the reply. It is meant for operators checking routing
and backend health by hand.

Usage:

	ask [--config path] [--user id] [--json] "price for part X7-2291"
*/
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"product-query-router/internal/app"
	"product-query-router/internal/common/config"
	"product-query-router/internal/common/logger"
	"product-query-router/internal/models"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		userID     string
		jsonOutput bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "ask <query text>",
		Short: "Run one product query through the router",
		Example: `  ask "price for part X7-2291"
  ask --user 42 "store hours"
  ask --config configs/config.yaml --json "do you have pool filter cleaner?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			level := "warn"
			if verbose {
				level = "debug"
			}
			zapLog, err := logger.NewWithOutput(level, "console", "stderr")
			if err != nil {
				return err
			}
			defer zapLog.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pipeline, err := app.Build(ctx, cfg, app.ConnectPolicy{Attempts: 1}, nil, logger.NewZapAdapter(zapLog))
			if err != nil {
				return err
			}
			defer pipeline.Close()

			query := models.NewQuery(strings.Join(args, " "), userID, time.Time{})
			resp := pipeline.Manager.Handle(ctx, query)
			return printResponse(cmd.OutOrStdout(), resp, jsonOutput)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file (default: configs/config.yaml lookup)")
	cmd.Flags().StringVarP(&userID, "user", "u", "cli", "User id attached to the query")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Print the response as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline activity to stderr")

	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func printResponse(w io.Writer, resp models.Response, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Fprintf(w, "[%s]\n%s\n", resp.Intent, resp.Text)
	if len(resp.Media) > 0 {
		fmt.Fprintln(w)
		for _, m := range resp.Media {
			if m.Title != "" {
				fmt.Fprintf(w, "  %s: %s (%s)\n", m.Kind, m.URL, m.Title)
			} else {
				fmt.Fprintf(w, "  %s: %s\n", m.Kind, m.URL)
			}
		}
	}
	return nil
}
