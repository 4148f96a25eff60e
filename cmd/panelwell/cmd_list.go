package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/panelwell/panelwell/internal/store"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored datasets or fits",
		Long: `List the datasets recorded in the study database, newest first.
With --fits, list saved model fits instead, optionally filtered to one
dataset with --dataset.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			fits, _ := cmd.Flags().GetBool("fits")
			datasetID, _ := cmd.Flags().GetString("dataset")

			if err := requireStudy(root); err != nil {
				return err
			}

			st, err := store.Open(root)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			ctx := context.Background()

			if fits {
				recs, err := st.ListFits(ctx, datasetID)
				if err != nil {
					return err
				}
				if jsonOut {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(recs)
				}
				if len(recs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No saved fits.")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-22s %-16s %10s %8s %-20s\n",
					"fit", "dataset", "log REML", "ICC", "created")
				for _, r := range recs {
					fmt.Fprintf(cmd.OutOrStdout(), "%-22s %-16s %10.2f %8.3f %-20s\n",
						r.ID, r.DatasetID, r.Result.LogREML, r.Result.ICC,
						r.CreatedAt.Format("2006-01-02 15:04:05"))
				}
				return nil
			}

			infos, err := st.ListDatasets(ctx)
			if err != nil {
				return err
			}
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(infos)
			}
			if len(infos) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No datasets. Run 'panelwell simulate' first.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-24s %10s %9s %6s %-20s\n",
				"id", "name", "subjects", "obs", "seed", "created")
			for _, d := range infos {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-24s %10d %9d %6d %-20s\n",
					d.ID, d.Name, d.NumSubjects, d.NumObs, d.Seed,
					d.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().Bool("fits", false, "List saved fits instead of datasets")
	cmd.Flags().String("dataset", "", "Only fits for this dataset (with --fits)")

	return cmd
}
