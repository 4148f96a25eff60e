package simulate

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"

	"github.com/panelwell/panelwell/internal/panel"
)

func TestGenerateShape(t *testing.T) {
	sc := Default()
	sc.SubjectsPerGroup = 20

	d, err := Generate(sc)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if got, want := len(d.Obs), 3*20*2; got != want {
		t.Errorf("generated %d observations, want %d", got, want)
	}
	if got := d.NumSubjects(); got != 60 {
		t.Errorf("generated %d subjects, want 60", got)
	}
	times := d.Times()
	if len(times) != 2 || times[0] != 0 || times[1] != 1 {
		t.Errorf("Times() = %v, want [0 1]", times)
	}
	for _, g := range panel.AllGroups() {
		if n := len(d.Scores(g, 0)); n != 20 {
			t.Errorf("group %s has %d baseline scores, want 20", g, n)
		}
	}
	if err := d.Validate(); err != nil {
		t.Errorf("generated dataset invalid: %v", err)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	sc := Default()
	sc.SubjectsPerGroup = 10

	d1, err := Generate(sc)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	d2, err := Generate(sc)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if len(d1.Obs) != len(d2.Obs) {
		t.Fatalf("runs differ in length: %d vs %d", len(d1.Obs), len(d2.Obs))
	}
	for i := range d1.Obs {
		if d1.Obs[i] != d2.Obs[i] {
			t.Fatalf("observation %d differs between identical seeds: %+v vs %+v", i, d1.Obs[i], d2.Obs[i])
		}
	}

	sc.Seed = 99
	d3, err := Generate(sc)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	same := true
	for i := range d1.Obs {
		if d1.Obs[i].Score != d3.Obs[i].Score {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical scores")
	}
}

func TestGenerateGroupMeans(t *testing.T) {
	// With many subjects and noise switched off at the subject level,
	// cell means should land near the data-generating parameters.
	sc := Default()
	sc.SubjectsPerGroup = 400
	sc.Seed = 7

	d, err := Generate(sc)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	for g, p := range sc.Groups {
		m0 := stat.Mean(d.Scores(g, 0), nil)
		if math.Abs(m0-p.Intercept) > 0.2 {
			t.Errorf("group %s baseline mean = %.3f, want near %.3f", g, m0, p.Intercept)
		}
		m1 := stat.Mean(d.Scores(g, 1), nil)
		if math.Abs(m1-(p.Intercept+p.Slope)) > 0.2 {
			t.Errorf("group %s t=1 mean = %.3f, want near %.3f", g, m1, p.Intercept+p.Slope)
		}
	}
}

func TestGenerateNoNoise(t *testing.T) {
	sc := Default()
	sc.SubjectsPerGroup = 3
	sc.SubjectSD = 0
	sc.ResidSD = 0

	d, err := Generate(sc)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	for _, o := range d.Obs {
		want := sc.Groups[o.Group].Intercept + sc.Groups[o.Group].Slope*o.Time
		if math.Abs(o.Score-want) > 1e-12 {
			t.Errorf("noise-free score for (%s, t=%g) = %g, want %g", o.Group, o.Time, o.Score, want)
		}
	}
}

func TestScenarioValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Scenario)
		wantErr bool
	}{
		{"default ok", func(sc *Scenario) {}, false},
		{"zero subjects", func(sc *Scenario) { sc.SubjectsPerGroup = 0 }, true},
		{"single timepoint", func(sc *Scenario) { sc.Times = []float64{0} }, true},
		{"negative subject sd", func(sc *Scenario) { sc.SubjectSD = -1 }, true},
		{"negative resid sd", func(sc *Scenario) { sc.ResidSD = -0.1 }, true},
		{"no groups", func(sc *Scenario) { sc.Groups = nil }, true},
		{"bad group name", func(sc *Scenario) {
			sc.Groups = map[panel.Group]GroupParams{"toddler": {}}
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := Default()
			tt.mutate(&sc)
			err := sc.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
