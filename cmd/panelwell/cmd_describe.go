package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/panelwell/panelwell/internal/stats"
	"github.com/panelwell/panelwell/internal/store"
)

func newDescribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe <dataset-id>",
		Short: "Descriptive statistics per group and timepoint",
		Long: `Summarize a stored dataset: mean, SD, quartiles, and a 95%
confidence interval for every group x timepoint cell, plus paired
change scores per group for two-wave panels.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			id := args[0]

			if err := requireStudy(root); err != nil {
				return err
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

			cells := stats.ByCell(d)
			changes, changesErr := stats.ChangeByGroup(d)

			if jsonOut {
				out := map[string]any{
					"dataset_id": id,
					"cells":      cells,
				}
				if changesErr == nil {
					out["changes"] = changes
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Dataset %s (%d subjects, %d observations)\n\n",
				id, d.NumSubjects(), len(d.Obs))

			fmt.Fprintln(cmd.OutOrStdout(), "Wellbeing by group and wave:")
			fmt.Fprintf(cmd.OutOrStdout(), "  %-10s %4s %4s %7s %7s %7s %7s %18s\n",
				"group", "t", "n", "mean", "sd", "median", "se", "95% CI")
			for _, c := range cells {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-10s %4g %4d %7.2f %7.2f %7.2f %7.3f  [%6.2f, %6.2f]\n",
					c.Group, c.Time, c.N, c.Mean, c.SD, c.Median, c.SE, c.CILow, c.CIHigh)
			}

			if changesErr == nil {
				fmt.Fprintln(cmd.OutOrStdout())
				fmt.Fprintln(cmd.OutOrStdout(), "Change scores (t1 - t0):")
				fmt.Fprintf(cmd.OutOrStdout(), "  %-10s %4s %7s %7s %18s\n",
					"group", "n", "mean", "sd", "95% CI")
				for _, c := range changes {
					fmt.Fprintf(cmd.OutOrStdout(), "  %-10s %4d %7.2f %7.2f  [%6.2f, %6.2f]\n",
						c.Group, c.N, c.Mean, c.SD, c.CILow, c.CIHigh)
				}
			}

			return nil
		},
	}

	return cmd
}
