package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/panelwell/panelwell/internal/config"
	"github.com/panelwell/panelwell/internal/logging"
	"github.com/panelwell/panelwell/internal/plot"
	"github.com/panelwell/panelwell/internal/store"
)

func newPlotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot <dataset-id>",
		Short: "Render a dataset as an SVG chart",
		Long: `Render a stored dataset as a standalone SVG file. Three chart kinds
are available: "histogram" (score distributions per group at one wave),
"trajectories" (per-subject lines colored by group), and "means" (group
means with 95% confidence intervals across waves).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			kind, _ := cmd.Flags().GetString("kind")
			at, _ := cmd.Flags().GetFloat64("time")
			out, _ := cmd.Flags().GetString("out")
			title, _ := cmd.Flags().GetString("title")
			id := args[0]

			if err := requireStudy(root); err != nil {
				return err
			}

			cfg, err := config.Load(root)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			st, err := store.Open(root)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			d, err := st.GetDataset(context.Background(), id)
			if err != nil {
				return err
			}

			opts := plot.Options{
				Width:  cfg.Plot.Width,
				Height: cfg.Plot.Height,
				Bins:   cfg.Plot.Bins,
				Title:  title,
			}

			var svg string
			switch kind {
			case "histogram":
				svg, err = plot.Histogram(d, at, opts)
			case "trajectories":
				svg, err = plot.Trajectories(d, opts)
			case "means":
				svg, err = plot.GroupMeans(d, opts)
			default:
				return fmt.Errorf("unknown plot kind %q (want histogram, trajectories, or means)", kind)
			}
			if err != nil {
				return fmt.Errorf("failed to render %s plot: %w", kind, err)
			}

			if out == "" {
				out = fmt.Sprintf("%s-%s.svg", id, kind)
			}
			if dir := filepath.Dir(out); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}
			if err := os.WriteFile(out, []byte(svg), 0o644); err != nil {
				return fmt.Errorf("failed to write plot: %w", err)
			}

			runLog := logging.NewRunLogger(store.StudyDir(root), cfg.Logging.Level)
			runLog.Log(map[string]any{
				"event":   "plot",
				"dataset": id,
				"kind":    kind,
				"path":    out,
			})
			runLog.Close()

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"dataset_id": id,
					"kind":       kind,
					"path":       out,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s plot to %s\n", kind, out)
			return nil
		},
	}

	cmd.Flags().String("kind", "means", "Chart kind: histogram, trajectories, or means")
	cmd.Flags().Float64("time", 0, "Wave to plot (histogram only)")
	cmd.Flags().String("out", "", "Output path (default <dataset-id>-<kind>.svg)")
	cmd.Flags().String("title", "", "Chart title override")

	return cmd
}
