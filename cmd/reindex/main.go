// Command reindex repairs the search index out of band: a full sweep over
// the catalog, or a single vehicle synced or removed.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yourorg/vehicle-search/internal/app"
	"github.com/yourorg/vehicle-search/internal/config"
	"github.com/yourorg/vehicle-search/internal/indexer"
	"github.com/yourorg/vehicle-search/internal/logging"
	"github.com/yourorg/vehicle-search/internal/vehicle"
)

var build = app.Build

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type cli struct {
	out        io.Writer
	cfgPath    string
	jsonOutput bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}
	rootCmd := &cobra.Command{
		Use:          "reindex",
		Short:        "Repair the vehicle search index",
		SilenceUsage: true,
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringVar(&c.cfgPath, "config", config.Get("CONFIG_PATH", ""), "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&c.jsonOutput, "json", "j", false, "Output as JSON")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "all",
		Short: "Re-sync every vehicle the catalog lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withComponents(cmd.Context(), func(ctx context.Context, comps *app.Components) error {
				comps.ConfigureIndex(ctx)
				report, err := comps.Sweeper().RunOnce(ctx)
				c.print(report, fmt.Sprintf("seen %d, indexed %d, not found %d, failed %d in %s",
					report.Seen, report.Indexed, report.NotFound, report.Failed, report.Took))
				return err
			})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "vehicle <id>",
		Short: "Sync one vehicle from the catalog into the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.single(cmd.Context(), args[0], (*indexer.Syncer).Sync)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Remove one vehicle from the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.single(cmd.Context(), args[0], (*indexer.Syncer).Remove)
		},
	})

	return rootCmd
}

func (c *cli) withComponents(ctx context.Context, fn func(context.Context, *app.Components) error) error {
	cfg, err := config.Load(c.cfgPath)
	if err != nil {
		return err
	}
	logger, closer := logging.New(cfg.Log)
	defer closer.Close()

	comps, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()
	return fn(ctx, comps)
}

func (c *cli) single(ctx context.Context, raw string, op func(*indexer.Syncer, context.Context, vehicle.ID) (indexer.Outcome, error)) error {
	id, err := vehicle.ParseID(raw)
	if err != nil {
		return err
	}
	return c.withComponents(ctx, func(ctx context.Context, comps *app.Components) error {
		outcome, err := op(comps.Syncer, ctx, id)
		c.print(map[string]any{"id": id.String(), "outcome": outcome}, fmt.Sprintf("%s: %s", id, outcome))
		if err != nil {
			return err
		}
		if outcome == indexer.OutcomeNotFound {
			return fmt.Errorf("vehicle %s: %w", id, vehicle.ErrNotFound)
		}
		return nil
	})
}

func (c *cli) print(v any, text string) {
	if c.jsonOutput {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		_ = enc.Encode(v)
		return
	}
	fmt.Fprintln(c.out, text)
}
