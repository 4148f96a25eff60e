package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/panelwell/panelwell/internal/config"
	"github.com/panelwell/panelwell/internal/store"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a panelwell study in the current directory",
		Long: `Create the .panelwell directory with a default study.yaml and an
empty study database. Existing files are left untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			name, _ := cmd.Flags().GetString("name")

			if err := store.EnsureStudyDir(root); err != nil {
				return err
			}

			// Write default config unless one already exists
			configPath := filepath.Join(store.StudyDir(root), config.FileName)
			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				cfg := config.Default()
				if name != "" {
					cfg.Study.Name = name
					cfg.Scenario.Name = name
				}
				if err := cfg.Save(configPath); err != nil {
					return fmt.Errorf("failed to write study config: %w", err)
				}
			}

			// Create the database so later commands find a valid store
			st, err := store.Open(root)
			if err != nil {
				return fmt.Errorf("failed to create study database: %w", err)
			}
			st.Close()

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{
					"status": "initialized",
					"path":   store.StudyDir(root),
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Initialized .panelwell/ in %s\n", root)
				fmt.Fprintln(cmd.OutOrStdout(), "Edit .panelwell/study.yaml to adjust the scenario, then run 'panelwell simulate'.")
			}

			return nil
		},
	}

	cmd.Flags().String("name", "", "Study name (default: parenting-wellbeing)")

	return cmd
}

// requireStudy returns an error unless the study directory exists.
func requireStudy(root string) error {
	if _, err := os.Stat(store.StudyDir(root)); os.IsNotExist(err) {
		return fmt.Errorf(".panelwell not initialized. Run 'panelwell init' first")
	}
	return nil
}
