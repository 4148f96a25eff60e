// Package mixedmodel fits the random-intercept linear mixed model
//
//	score ~ group + group:time + (1 | subject)
//
// by restricted maximum likelihood. The fixed design uses the existing
// group as reference level; the random structure is a single intercept
// per subject. Variance components are profiled out with a derivative-free
// optimizer and fixed effects come from generalized least squares.
package mixedmodel

import (
	"fmt"

	"github.com/panelwell/panelwell/internal/panel"
)

// NumCoef is the number of fixed-effect columns.
const NumCoef = 6

// CoefNames are the fixed-effect column names, in design-matrix order.
// The existing-parents group is the reference level, so its baseline mean
// is the intercept and the other groups enter as offsets.
var CoefNames = [NumCoef]string{
	"(Intercept)",
	"group[never]",
	"group[new]",
	"time:group[existing]",
	"time:group[never]",
	"time:group[new]",
}

// design holds the model frame grouped by subject, the layout the REML
// objective works on: closed-form inversion of the per-subject covariance
// block never needs the full n x n matrix.
type design struct {
	subjects []string      // subject IDs in first-appearance order
	x        [][][]float64 // per-subject design rows
	y        [][]float64   // per-subject responses
	n        int           // total observations
}

// rowFor builds one fixed-effect design row.
func rowFor(g panel.Group, t float64) []float64 {
	row := make([]float64, NumCoef)
	row[0] = 1
	switch g {
	case panel.GroupNever:
		row[1] = 1
		row[4] = t
	case panel.GroupNew:
		row[2] = 1
		row[5] = t
	default: // existing (reference)
		row[3] = t
	}
	return row
}

// newDesign builds the grouped model frame from a validated dataset.
func newDesign(d *panel.Dataset) (*design, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dataset: %w", err)
	}
	if len(d.Obs) <= NumCoef {
		return nil, fmt.Errorf("need more than %d observations to fit %d fixed effects, got %d",
			NumCoef, NumCoef, len(d.Obs))
	}

	idx := make(map[string]int)
	ds := &design{}
	for _, o := range d.Obs {
		i, ok := idx[o.Subject]
		if !ok {
			i = len(ds.subjects)
			idx[o.Subject] = i
			ds.subjects = append(ds.subjects, o.Subject)
			ds.x = append(ds.x, nil)
			ds.y = append(ds.y, nil)
		}
		ds.x[i] = append(ds.x[i], rowFor(o.Group, o.Time))
		ds.y[i] = append(ds.y[i], o.Score)
		ds.n++
	}
	return ds, nil
}
