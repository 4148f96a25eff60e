// Package stats computes descriptive statistics for wellbeing panels:
// per-cell summaries (group x timepoint) and paired change scores.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/panelwell/panelwell/internal/panel"
)

// zCrit95 is the two-sided normal critical value for a 95% interval.
const zCrit95 = 1.959963984540054

// Summary holds descriptive statistics for one score column.
type Summary struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	SD     float64 `json:"sd"`
	SE     float64 `json:"se"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
	CILow  float64 `json:"ci_low"`
	CIHigh float64 `json:"ci_high"`
}

// Describe summarizes a score column. Quantiles use the empirical
// distribution; the confidence interval is normal-theory 95%.
func Describe(scores []float64) Summary {
	n := len(scores)
	if n == 0 {
		return Summary{}
	}

	sorted := make([]float64, n)
	copy(sorted, scores)
	sort.Float64s(sorted)

	s := Summary{
		N:    n,
		Mean: stat.Mean(sorted, nil),
		Min:  sorted[0],
		Max:  sorted[n-1],
	}
	s.Q1 = stat.Quantile(0.25, stat.Empirical, sorted, nil)
	s.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	s.Q3 = stat.Quantile(0.75, stat.Empirical, sorted, nil)

	if n > 1 {
		s.SD = stat.StdDev(sorted, nil)
		s.SE = s.SD / math.Sqrt(float64(n))
	}
	s.CILow = s.Mean - zCrit95*s.SE
	s.CIHigh = s.Mean + zCrit95*s.SE
	return s
}

// CellSummary is the descriptive summary of one group x timepoint cell.
type CellSummary struct {
	Group panel.Group `json:"group"`
	Time  float64     `json:"time"`
	Summary
}

// ByCell summarizes every group x timepoint cell present in the dataset,
// in canonical group order then ascending time.
func ByCell(d *panel.Dataset) []CellSummary {
	var out []CellSummary
	for _, g := range panel.AllGroups() {
		for _, t := range d.Times() {
			scores := d.Scores(g, t)
			if len(scores) == 0 {
				continue
			}
			out = append(out, CellSummary{Group: g, Time: t, Summary: Describe(scores)})
		}
	}
	return out
}

// GroupChange is the summary of paired change scores (t1 - t0) for one group.
type GroupChange struct {
	Group panel.Group `json:"group"`
	Summary
}

// ChangeByGroup summarizes paired change scores per group. Requires a
// complete two-timepoint panel.
func ChangeByGroup(d *panel.Dataset) ([]GroupChange, error) {
	wide, err := panel.ToWide(d)
	if err != nil {
		return nil, err
	}

	byGroup := make(map[panel.Group][]float64)
	for _, r := range wide {
		byGroup[r.Group] = append(byGroup[r.Group], r.Change)
	}

	var out []GroupChange
	for _, g := range panel.AllGroups() {
		changes, ok := byGroup[g]
		if !ok {
			continue
		}
		out = append(out, GroupChange{Group: g, Summary: Describe(changes)})
	}
	return out, nil
}
