// Package backup provides archive and restore functionality for the study
// database: datasets with their generating scenarios, plus saved fits.
package backup

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/panelwell/panelwell/internal/panel"
	"github.com/panelwell/panelwell/internal/store"
)

const formatVersion = 1

// Archive is the JSON structure of a backup file (gzip-compressed on disk).
type Archive struct {
	Version   int               `json:"version"`
	CreatedAt time.Time         `json:"created_at"`
	Datasets  []DatasetEntry    `json:"datasets"`
	Fits      []store.FitRecord `json:"fits"`
}

// DatasetEntry is one archived dataset with its scenario, if recorded.
type DatasetEntry struct {
	ID       string              `json:"id"`
	Name     string              `json:"name"`
	Seed     uint64              `json:"seed"`
	Scenario json.RawMessage     `json:"scenario,omitempty"`
	Obs      []panel.Observation `json:"obs"`
}

// Backup exports every dataset and fit from the store to a gzip JSON file.
func Backup(ctx context.Context, st *store.Store, outputPath string) (*Archive, error) {
	infos, err := st.ListDatasets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}

	arch := &Archive{
		Version:   formatVersion,
		CreatedAt: time.Now().UTC(),
	}

	for _, info := range infos {
		d, err := st.GetDataset(ctx, info.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load dataset %s: %w", info.ID, err)
		}
		scenario, err := st.GetScenario(ctx, info.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load scenario for %s: %w", info.ID, err)
		}
		arch.Datasets = append(arch.Datasets, DatasetEntry{
			ID:       d.ID,
			Name:     d.Name,
			Seed:     d.Seed,
			Scenario: scenario,
			Obs:      d.Obs,
		})
	}

	fits, err := st.ListFits(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list fits: %w", err)
	}
	arch.Fits = fits

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create backup file: %w", err)
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	if err := json.NewEncoder(zw).Encode(arch); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish backup: %w", err)
	}

	return arch, nil
}

// RestoreMode controls how restore handles existing data.
type RestoreMode string

const (
	// RestoreMerge skips datasets and fits that already exist (default).
	RestoreMerge RestoreMode = "merge"
	// RestoreReplace clears the store before restoring.
	RestoreReplace RestoreMode = "replace"
)

// RestoreResult contains statistics about the restore operation.
type RestoreResult struct {
	DatasetsRestored int `json:"datasets_restored"`
	DatasetsSkipped  int `json:"datasets_skipped"`
	FitsRestored     int `json:"fits_restored"`
	FitsSkipped      int `json:"fits_skipped"`
}

// Restore imports datasets and fits from a backup file into the store.
// Dataset IDs are content-addressed so they survive the round trip; fit
// IDs and timestamps are preserved as archived.
func Restore(ctx context.Context, st *store.Store, inputPath string, mode RestoreMode) (*RestoreResult, error) {
	f, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup file: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup file: %w", err)
	}
	defer zr.Close()

	var arch Archive
	if err := json.NewDecoder(zr).Decode(&arch); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if arch.Version != formatVersion {
		return nil, fmt.Errorf("unsupported backup version: %d", arch.Version)
	}

	if mode == RestoreReplace {
		existing, err := st.ListDatasets(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list existing datasets: %w", err)
		}
		for _, info := range existing {
			if err := st.DeleteDataset(ctx, info.ID); err != nil {
				return nil, fmt.Errorf("failed to clear dataset %s: %w", info.ID, err)
			}
		}
	}

	result := &RestoreResult{}

	for _, entry := range arch.Datasets {
		if mode == RestoreMerge {
			if _, err := st.GetDataset(ctx, entry.ID); err == nil {
				result.DatasetsSkipped++
				continue
			} else if !errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("failed to check dataset %s: %w", entry.ID, err)
			}
		}

		d := &panel.Dataset{ID: entry.ID, Name: entry.Name, Seed: entry.Seed, Obs: entry.Obs}
		if _, err := st.SaveDataset(ctx, d, entry.Scenario); err != nil {
			return nil, fmt.Errorf("failed to restore dataset %s: %w", entry.ID, err)
		}
		result.DatasetsRestored++
	}

	for _, rec := range arch.Fits {
		if mode == RestoreMerge {
			if _, err := st.GetFit(ctx, rec.ID); err == nil {
				result.FitsSkipped++
				continue
			} else if !errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("failed to check fit %s: %w", rec.ID, err)
			}
		}

		if err := st.RestoreFit(ctx, &rec); err != nil {
			return nil, fmt.Errorf("failed to restore fit %s: %w", rec.ID, err)
		}
		result.FitsRestored++
	}

	return result, nil
}

// GenerateBackupPath creates a timestamped backup filename in the given directory.
func GenerateBackupPath(dir string) string {
	ts := time.Now().Format("20060102-150405")
	return filepath.Join(dir, fmt.Sprintf("panelwell-backup-%s.json.gz", ts))
}
