package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/panelwell/panelwell/internal/backup"
	"github.com/panelwell/panelwell/internal/store"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Archive the study database",
		Long: `Write all datasets, scenarios, and saved fits to a gzip JSON archive
under .panelwell/backups/. With --keep, older archives beyond the given
count are deleted; with --keep-for, archives older than the given age
(e.g. "30d", "2w") are deleted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			out, _ := cmd.Flags().GetString("out")
			keep, _ := cmd.Flags().GetInt("keep")
			keepFor, _ := cmd.Flags().GetString("keep-for")

			if err := requireStudy(root); err != nil {
				return err
			}

			st, err := store.Open(root)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			backupDir := filepath.Join(store.StudyDir(root), "backups")
			if out == "" {
				out = backup.GenerateBackupPath(backupDir)
			}

			arch, err := backup.Backup(context.Background(), st, out)
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}

			var deleted []string
			if keep > 0 {
				deleted, err = backup.ApplyRetention(backupDir, &backup.CountPolicy{MaxCount: keep})
				if err != nil {
					return fmt.Errorf("retention failed: %w", err)
				}
			} else if keepFor != "" {
				maxAge, err := backup.ParseDuration(keepFor)
				if err != nil {
					return err
				}
				deleted, err = backup.ApplyRetention(backupDir, &backup.AgePolicy{MaxAge: maxAge})
				if err != nil {
					return fmt.Errorf("retention failed: %w", err)
				}
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"path":         out,
					"num_datasets": len(arch.Datasets),
					"num_fits":     len(arch.Fits),
					"deleted":      deleted,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archived %d datasets and %d fits to %s\n",
				len(arch.Datasets), len(arch.Fits), out)
			for _, p := range deleted {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed old backup %s\n", filepath.Base(p))
			}
			return nil
		},
	}

	cmd.Flags().String("out", "", "Archive path (default timestamped file under .panelwell/backups/)")
	cmd.Flags().Int("keep", 0, "Keep only the N newest archives")
	cmd.Flags().String("keep-for", "", "Keep only archives newer than this age (e.g. 30d)")

	return cmd
}

func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <archive>",
		Short: "Restore the study database from an archive",
		Long: `Load datasets and fits from a backup archive into the study database.
The default "merge" mode skips anything already present; "replace"
clears the database first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			modeStr, _ := cmd.Flags().GetString("mode")

			mode := backup.RestoreMode(modeStr)
			if mode != backup.RestoreMerge && mode != backup.RestoreReplace {
				return fmt.Errorf("unknown restore mode %q (want merge or replace)", modeStr)
			}

			if err := requireStudy(root); err != nil {
				return err
			}

			st, err := store.Open(root)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			result, err := backup.Restore(context.Background(), st, args[0], mode)
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d datasets (%d skipped), %d fits (%d skipped)\n",
				result.DatasetsRestored, result.DatasetsSkipped,
				result.FitsRestored, result.FitsSkipped)
			return nil
		},
	}

	cmd.Flags().String("mode", "merge", "Restore mode: merge or replace")

	return cmd
}
