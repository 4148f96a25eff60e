package panel

import "fmt"

// WideRecord is one subject pivoted to wide format: a column per
// timepoint plus the change score. Only defined for two-timepoint panels.
type WideRecord struct {
	Subject string  `json:"subject"`
	Group   Group   `json:"group"`
	ScoreT0 float64 `json:"score_t0"`
	ScoreT1 float64 `json:"score_t1"`
	Change  float64 `json:"change"`
}

// ToWide pivots a two-timepoint long dataset into one record per subject.
// Subjects missing either timepoint produce an error rather than being
// silently dropped.
func ToWide(d *Dataset) ([]WideRecord, error) {
	times := d.Times()
	if len(times) != 2 {
		return nil, fmt.Errorf("wide reshape requires exactly 2 timepoints, dataset has %d", len(times))
	}
	t0, t1 := times[0], times[1]

	type cell struct {
		score float64
		seen  bool
	}
	at0 := make(map[string]cell)
	at1 := make(map[string]cell)
	for _, o := range d.Obs {
		switch o.Time {
		case t0:
			at0[o.Subject] = cell{o.Score, true}
		case t1:
			at1[o.Subject] = cell{o.Score, true}
		}
	}

	subjects := d.Subjects()
	out := make([]WideRecord, 0, len(subjects))
	for _, s := range subjects {
		c0, ok0 := at0[s]
		c1, ok1 := at1[s]
		if !ok0 || !c0.seen {
			return nil, fmt.Errorf("subject %s has no observation at t=%g", s, t0)
		}
		if !ok1 || !c1.seen {
			return nil, fmt.Errorf("subject %s has no observation at t=%g", s, t1)
		}
		g, _ := d.SubjectGroup(s)
		out = append(out, WideRecord{
			Subject: s,
			Group:   g,
			ScoreT0: c0.score,
			ScoreT1: c1.score,
			Change:  c1.score - c0.score,
		})
	}
	return out, nil
}

// FromWide melts wide records back into a long dataset with timepoints
// 0 and 1. The inverse of ToWide for complete panels.
func FromWide(records []WideRecord) *Dataset {
	d := &Dataset{Obs: make([]Observation, 0, 2*len(records))}
	for _, r := range records {
		d.Obs = append(d.Obs,
			Observation{Subject: r.Subject, Group: r.Group, Time: 0, Score: r.ScoreT0},
			Observation{Subject: r.Subject, Group: r.Group, Time: 1, Score: r.ScoreT1},
		)
	}
	return d
}
