package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/panelwell/panelwell/internal/store"
)

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a stored dataset or fit",
		Long: `Show details for one stored object. Dataset IDs start with "d-" and
print the dataset's provenance and the generating scenario if recorded;
fit IDs start with "f-" and print the full model summary.`,
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

			ctx := context.Background()

			switch {
			case strings.HasPrefix(id, "f-"):
				return showFit(ctx, cmd, st, id, jsonOut)
			case strings.HasPrefix(id, "d-"):
				return showDataset(ctx, cmd, st, id, jsonOut)
			default:
				return fmt.Errorf("unrecognized id %q (want d-... or f-...)", id)
			}
		},
	}

	return cmd
}

func showDataset(ctx context.Context, cmd *cobra.Command, st *store.Store, id string, jsonOut bool) error {
	d, err := st.GetDataset(ctx, id)
	if err != nil {
		return err
	}
	scenario, err := st.GetScenario(ctx, id)
	if err != nil {
		return err
	}

	if jsonOut {
		out := map[string]any{
			"id":           id,
			"name":         d.Name,
			"seed":         d.Seed,
			"num_subjects": d.NumSubjects(),
			"num_obs":      len(d.Obs),
			"times":        d.Times(),
		}
		if scenario != nil {
			out["scenario"] = json.RawMessage(scenario)
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Dataset:      %s\n", id)
	fmt.Fprintf(cmd.OutOrStdout(), "Name:         %s\n", d.Name)
	fmt.Fprintf(cmd.OutOrStdout(), "Seed:         %d\n", d.Seed)
	fmt.Fprintf(cmd.OutOrStdout(), "Subjects:     %d\n", d.NumSubjects())
	fmt.Fprintf(cmd.OutOrStdout(), "Observations: %d\n", len(d.Obs))
	fmt.Fprintf(cmd.OutOrStdout(), "Waves:        %v\n", d.Times())
	if scenario != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "\nScenario:\n%s\n", indentJSON(scenario))
	}
	return nil
}

func showFit(ctx context.Context, cmd *cobra.Command, st *store.Store, id string, jsonOut bool) error {
	rec, err := st.GetFit(ctx, id)
	if err != nil {
		return err
	}

	if jsonOut {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(rec)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Fit:     %s\n", rec.ID)
	fmt.Fprintf(cmd.OutOrStdout(), "Dataset: %s\n", rec.DatasetID)
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n\n", rec.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprint(cmd.OutOrStdout(), rec.Result.Summary())
	return nil
}

func indentJSON(raw []byte) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	b, err := json.MarshalIndent(v, "  ", "  ")
	if err != nil {
		return string(raw)
	}
	return "  " + string(b)
}
