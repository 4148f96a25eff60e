package stats

import (
	"math"
	"testing"

	"github.com/panelwell/panelwell/internal/panel"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestDescribe(t *testing.T) {
	scores := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	s := Describe(scores)
	if s.N != 8 {
		t.Fatalf("N = %d, want 8", s.N)
	}
	if !almostEqual(s.Mean, 5.0, 1e-12) {
		t.Errorf("Mean = %g, want 5", s.Mean)
	}
	// Sample SD of this classic sequence is sqrt(32/7).
	if !almostEqual(s.SD, math.Sqrt(32.0/7.0), 1e-12) {
		t.Errorf("SD = %g, want %g", s.SD, math.Sqrt(32.0/7.0))
	}
	if s.Min != 2 || s.Max != 9 {
		t.Errorf("Min/Max = %g/%g, want 2/9", s.Min, s.Max)
	}
	if s.CILow >= s.Mean || s.CIHigh <= s.Mean {
		t.Errorf("CI [%g, %g] does not bracket mean %g", s.CILow, s.CIHigh, s.Mean)
	}
	if !almostEqual(s.CIHigh-s.Mean, s.Mean-s.CILow, 1e-12) {
		t.Errorf("CI not symmetric: [%g, %g]", s.CILow, s.CIHigh)
	}
}

func TestDescribeEdgeCases(t *testing.T) {
	if s := Describe(nil); s.N != 0 {
		t.Errorf("Describe(nil).N = %d, want 0", s.N)
	}

	s := Describe([]float64{3.5})
	if s.N != 1 || s.Mean != 3.5 {
		t.Errorf("single value summary = %+v", s)
	}
	if s.SD != 0 || s.SE != 0 {
		t.Errorf("single value SD/SE = %g/%g, want 0/0", s.SD, s.SE)
	}
	if s.CILow != 3.5 || s.CIHigh != 3.5 {
		t.Errorf("single value CI = [%g, %g], want degenerate at 3.5", s.CILow, s.CIHigh)
	}
}

func TestDescribeDoesNotMutateInput(t *testing.T) {
	scores := []float64{9, 1, 5}
	Describe(scores)
	if scores[0] != 9 || scores[1] != 1 || scores[2] != 5 {
		t.Errorf("input mutated: %v", scores)
	}
}

func cellDataset() *panel.Dataset {
	d := &panel.Dataset{ID: "d-cells"}
	add := func(subject string, g panel.Group, t0, t1 float64) {
		d.Obs = append(d.Obs,
			panel.Observation{Subject: subject, Group: g, Time: 0, Score: t0},
			panel.Observation{Subject: subject, Group: g, Time: 1, Score: t1},
		)
	}
	add("s1", panel.GroupExisting, 6, 7)
	add("s2", panel.GroupExisting, 7, 8)
	add("s3", panel.GroupNever, 7, 7)
	add("s4", panel.GroupNew, 5, 7)
	add("s5", panel.GroupNew, 6, 8)
	return d
}

func TestByCell(t *testing.T) {
	cells := ByCell(cellDataset())

	// 3 groups x 2 timepoints, all populated.
	if len(cells) != 6 {
		t.Fatalf("ByCell() returned %d cells, want 6", len(cells))
	}

	// Canonical order: existing, never, new; time ascending within group.
	if cells[0].Group != panel.GroupExisting || cells[0].Time != 0 {
		t.Errorf("first cell = (%s, %g), want (existing, 0)", cells[0].Group, cells[0].Time)
	}
	if cells[5].Group != panel.GroupNew || cells[5].Time != 1 {
		t.Errorf("last cell = (%s, %g), want (new, 1)", cells[5].Group, cells[5].Time)
	}

	if !almostEqual(cells[0].Mean, 6.5, 1e-12) {
		t.Errorf("existing t=0 mean = %g, want 6.5", cells[0].Mean)
	}
	if cells[2].N != 1 {
		t.Errorf("never t=0 N = %d, want 1", cells[2].N)
	}
}

func TestChangeByGroup(t *testing.T) {
	changes, err := ChangeByGroup(cellDataset())
	if err != nil {
		t.Fatalf("ChangeByGroup() error: %v", err)
	}
	if len(changes) != 3 {
		t.Fatalf("got %d groups, want 3", len(changes))
	}

	byGroup := make(map[panel.Group]GroupChange)
	for _, c := range changes {
		byGroup[c.Group] = c
	}
	if !almostEqual(byGroup[panel.GroupExisting].Mean, 1.0, 1e-12) {
		t.Errorf("existing mean change = %g, want 1", byGroup[panel.GroupExisting].Mean)
	}
	if !almostEqual(byGroup[panel.GroupNever].Mean, 0.0, 1e-12) {
		t.Errorf("never mean change = %g, want 0", byGroup[panel.GroupNever].Mean)
	}
	if !almostEqual(byGroup[panel.GroupNew].Mean, 2.0, 1e-12) {
		t.Errorf("new mean change = %g, want 2", byGroup[panel.GroupNew].Mean)
	}
}

func TestChangeByGroupIncomplete(t *testing.T) {
	d := cellDataset()
	d.Obs = d.Obs[:len(d.Obs)-1] // drop s5's second wave

	if _, err := ChangeByGroup(d); err == nil {
		t.Error("ChangeByGroup() should error on incomplete panel")
	}
}
