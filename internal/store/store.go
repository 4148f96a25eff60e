// Package store persists panel datasets and model fits in a SQLite
// database under the study directory.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/panelwell/panelwell/internal/mixedmodel"
	"github.com/panelwell/panelwell/internal/panel"
)

// DatasetInfo summarizes a stored dataset without its observations.
type DatasetInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Seed        uint64    `json:"seed"`
	NumSubjects int       `json:"num_subjects"`
	NumObs      int       `json:"num_obs"`
	CreatedAt   time.Time `json:"created_at"`
}

// FitRecord is a stored model fit together with its provenance.
type FitRecord struct {
	ID        string    `json:"id"`
	DatasetID string    `json:"dataset_id"`
	CreatedAt time.Time `json:"created_at"`

	Result mixedmodel.Result `json:"result"`
}

// DatasetID derives a content-addressed identifier for a dataset.
// Two datasets with the same name, seed, and observations get the same ID.
func DatasetID(d *panel.Dataset) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n%d\n", d.Name, d.Seed)
	for _, o := range d.Obs {
		fmt.Fprintf(h, "%s|%s|%g|%g\n", o.Subject, o.Group, o.Time, o.Score)
	}
	return "d-" + hex.EncodeToString(h.Sum(nil))[:12]
}

// NewFitID returns a time-ordered identifier for a fit.
func NewFitID() string {
	return fmt.Sprintf("f-%d", time.Now().UnixNano())
}
