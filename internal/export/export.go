// Package export writes datasets and fit results to interchange formats:
// CSV (long and wide) and Arrow IPC for downstream analysis tools.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/panelwell/panelwell/internal/mixedmodel"
	"github.com/panelwell/panelwell/internal/panel"
)

// WriteCSVLong writes a dataset in long format, one row per
// subject-timepoint observation.
func WriteCSVLong(w io.Writer, d *panel.Dataset) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"subject", "group", "time", "score"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, o := range d.Obs {
		row := []string{
			o.Subject,
			string(o.Group),
			formatFloat(o.Time),
			formatFloat(o.Score),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row for %s: %w", o.Subject, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVWide writes a two-timepoint dataset in wide format, one row
// per subject with both scores and the change.
func WriteCSVWide(w io.Writer, d *panel.Dataset) error {
	wide, err := panel.ToWide(d)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"subject", "group", "score_t0", "score_t1", "change"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, r := range wide {
		row := []string{
			r.Subject,
			string(r.Group),
			formatFloat(r.ScoreT0),
			formatFloat(r.ScoreT1),
			formatFloat(r.Change),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row for %s: %w", r.Subject, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFitCSV writes the fixed-effect table of a fit, one row per term.
func WriteFitCSV(w io.Writer, res *mixedmodel.Result) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"term", "estimate", "std_err", "z", "p"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, c := range res.Coefficients {
		row := []string{
			c.Name,
			formatFloat(c.Estimate),
			formatFloat(c.StdErr),
			formatFloat(c.Z),
			formatFloat(c.P),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row for %s: %w", c.Name, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
