// Package panel defines the longitudinal wellbeing dataset model: groups,
// observations in long format, and reshaping between long and wide layouts.
package panel

import (
	"fmt"
	"math"
	"sort"
)

// Group identifies a parenting-history group.
type Group string

const (
	GroupExisting Group = "existing" // had children before the study window
	GroupNever    Group = "never"    // no children
	GroupNew      Group = "new"      // first child during the study window
)

// AllGroups returns the three groups in their canonical order.
// GroupExisting is the reference level in model design matrices.
func AllGroups() []Group {
	return []Group{GroupExisting, GroupNever, GroupNew}
}

// Valid reports whether g is one of the known groups.
func (g Group) Valid() bool {
	switch g {
	case GroupExisting, GroupNever, GroupNew:
		return true
	}
	return false
}

// ParseGroup converts a string to a Group, or errors for unknown values.
func ParseGroup(s string) (Group, error) {
	g := Group(s)
	if !g.Valid() {
		return "", fmt.Errorf("unknown group %q (valid: existing, never, new)", s)
	}
	return g, nil
}

// Observation is one wellbeing measurement: a single subject at a single
// timepoint. Datasets hold observations in long format.
type Observation struct {
	Subject string  `json:"subject" yaml:"subject"`
	Group   Group   `json:"group" yaml:"group"`
	Time    float64 `json:"time" yaml:"time"`
	Score   float64 `json:"score" yaml:"score"`
}

// Dataset is a longitudinal panel in long format.
type Dataset struct {
	ID   string        `json:"id" yaml:"id"`
	Name string        `json:"name" yaml:"name"`
	Seed uint64        `json:"seed" yaml:"seed"`
	Obs  []Observation `json:"obs" yaml:"obs"`
}

// Subjects returns the unique subject IDs in first-appearance order.
func (d *Dataset) Subjects() []string {
	seen := make(map[string]bool, len(d.Obs)/2)
	var out []string
	for _, o := range d.Obs {
		if !seen[o.Subject] {
			seen[o.Subject] = true
			out = append(out, o.Subject)
		}
	}
	return out
}

// NumSubjects returns the number of distinct subjects.
func (d *Dataset) NumSubjects() int {
	return len(d.Subjects())
}

// Times returns the distinct timepoints in ascending order.
func (d *Dataset) Times() []float64 {
	seen := make(map[float64]bool)
	var out []float64
	for _, o := range d.Obs {
		if !seen[o.Time] {
			seen[o.Time] = true
			out = append(out, o.Time)
		}
	}
	sort.Float64s(out)
	return out
}

// Filter returns the observations matching group g at timepoint t.
func (d *Dataset) Filter(g Group, t float64) []Observation {
	var out []Observation
	for _, o := range d.Obs {
		if o.Group == g && o.Time == t {
			out = append(out, o)
		}
	}
	return out
}

// Scores returns the score column for group g at timepoint t.
func (d *Dataset) Scores(g Group, t float64) []float64 {
	obs := d.Filter(g, t)
	out := make([]float64, len(obs))
	for i, o := range obs {
		out[i] = o.Score
	}
	return out
}

// SubjectGroup returns the group of a subject, or false if the subject
// is not in the dataset.
func (d *Dataset) SubjectGroup(subject string) (Group, bool) {
	for _, o := range d.Obs {
		if o.Subject == subject {
			return o.Group, true
		}
	}
	return "", false
}

// Validate checks structural integrity of the dataset: at least one
// observation, known groups, finite scores, no duplicate (subject, time)
// cell, and a single group per subject.
func (d *Dataset) Validate() error {
	if len(d.Obs) == 0 {
		return fmt.Errorf("dataset %s has no observations", d.ID)
	}

	cells := make(map[string]bool, len(d.Obs))
	groups := make(map[string]Group)

	for i, o := range d.Obs {
		if o.Subject == "" {
			return fmt.Errorf("observation %d has empty subject", i)
		}
		if !o.Group.Valid() {
			return fmt.Errorf("observation %d: unknown group %q", i, o.Group)
		}
		if math.IsNaN(o.Score) || math.IsInf(o.Score, 0) {
			return fmt.Errorf("observation %d (%s, t=%g): score is not finite", i, o.Subject, o.Time)
		}

		key := fmt.Sprintf("%s@%g", o.Subject, o.Time)
		if cells[key] {
			return fmt.Errorf("duplicate observation for subject %s at t=%g", o.Subject, o.Time)
		}
		cells[key] = true

		if prev, ok := groups[o.Subject]; ok {
			if prev != o.Group {
				return fmt.Errorf("subject %s appears in groups %s and %s", o.Subject, prev, o.Group)
			}
		} else {
			groups[o.Subject] = o.Group
		}
	}

	return nil
}
