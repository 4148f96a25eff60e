package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/panelwell/panelwell/internal/export"
	"github.com/panelwell/panelwell/internal/store"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <dataset-id>",
		Short: "Export a dataset or saved fit",
		Long: `Export a stored dataset as CSV (long or wide layout) or Arrow IPC,
or a saved fit's coefficient table as CSV. Output goes to --out, or to
stdout when --out is omitted (except Arrow, which requires a file).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			format, _ := cmd.Flags().GetString("format")
			fitID, _ := cmd.Flags().GetString("fit")
			out, _ := cmd.Flags().GetString("out")
			id := args[0]

			if err := requireStudy(root); err != nil {
				return err
			}

			st, err := store.Open(root)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			ctx := context.Background()

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				if dir := filepath.Dir(out); dir != "." {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						return fmt.Errorf("failed to create output directory: %w", err)
					}
				}
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				w = f
			}

			if fitID != "" {
				rec, err := st.GetFit(ctx, fitID)
				if err != nil {
					return err
				}
				if rec.DatasetID != id {
					return fmt.Errorf("fit %s belongs to dataset %s, not %s", fitID, rec.DatasetID, id)
				}
				if err := export.WriteFitCSV(w, &rec.Result); err != nil {
					return fmt.Errorf("failed to export fit: %w", err)
				}
				return reportExport(cmd, jsonOut, out, "fit-csv", id)
			}

			d, err := st.GetDataset(ctx, id)
			if err != nil {
				return err
			}

			switch format {
			case "long":
				err = export.WriteCSVLong(w, d)
			case "wide":
				err = export.WriteCSVWide(w, d)
			case "arrow":
				if out == "" {
					return fmt.Errorf("arrow export requires --out")
				}
				err = export.WriteArrowIPC(w, d)
			default:
				return fmt.Errorf("unknown format %q (want long, wide, or arrow)", format)
			}
			if err != nil {
				return fmt.Errorf("failed to export dataset: %w", err)
			}
			return reportExport(cmd, jsonOut, out, format, id)
		},
	}

	cmd.Flags().String("format", "long", "Dataset format: long, wide, or arrow")
	cmd.Flags().String("fit", "", "Export this saved fit's coefficient table instead")
	cmd.Flags().String("out", "", "Output path (default stdout)")

	return cmd
}

func reportExport(cmd *cobra.Command, jsonOut bool, path, format, id string) error {
	if path == "" {
		// Data already streamed to stdout.
		return nil
	}
	if jsonOut {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
			"dataset_id": id,
			"format":     format,
			"path":       path,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %s as %s to %s\n", id, format, path)
	return nil
}
