package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/panelwell/panelwell/internal/config"
	"github.com/panelwell/panelwell/internal/logging"
	"github.com/panelwell/panelwell/internal/mixedmodel"
	"github.com/panelwell/panelwell/internal/store"
)

func newFitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fit <dataset-id>",
		Short: "Fit the random-intercept mixed model",
		Long: `Fit score ~ group + group:time + (1 | subject) by REML on a stored
dataset and print the fixed effects, variance components, and ICC.
With --save the fit is recorded so it can be listed and exported later.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			save, _ := cmd.Flags().GetBool("save")
			id := args[0]

			if err := requireStudy(root); err != nil {
				return err
			}

			cfg, err := config.Load(root)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			logger := logging.NewLogger(cfg.Logging.Level, os.Stderr)
			runLog := logging.NewRunLogger(store.StudyDir(root), cfg.Logging.Level)
			defer runLog.Close()

			st, err := store.Open(root)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			ctx := context.Background()
			d, err := st.GetDataset(ctx, id)
			if err != nil {
				return err
			}

			res, err := mixedmodel.Fit(d, mixedmodel.Options{})
			if err != nil {
				return fmt.Errorf("model fit failed: %w", err)
			}

			logger.Debug("model fitted",
				"dataset_id", id,
				"log_reml", res.LogREML,
				"converged", res.Converged)

			var fitID string
			if save {
				fitID, err = st.SaveFit(ctx, id, res)
				if err != nil {
					return fmt.Errorf("failed to save fit: %w", err)
				}
			}

			runLog.Log(map[string]any{
				"event":     "fit",
				"dataset":   id,
				"fit":       fitID,
				"log_reml":  res.LogREML,
				"icc":       res.ICC,
				"converged": res.Converged,
			})

			if jsonOut {
				out := map[string]any{
					"dataset_id": id,
					"result":     res,
				}
				if fitID != "" {
					out["fit_id"] = fitID
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
			}

			fmt.Fprint(cmd.OutOrStdout(), res.Summary())
			if fitID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "\nSaved as %s\n", fitID)
			}
			return nil
		},
	}

	cmd.Flags().Bool("save", false, "Record the fit in the study database")

	return cmd
}
