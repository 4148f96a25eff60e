package plot

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/panelwell/panelwell/internal/panel"
)

// Trajectories renders a spaghetti plot: one polyline per subject in its
// group color, with the group mean trajectory overlaid as a heavy line.
// At most MaxSubjects subject lines are drawn, sampled evenly.
func Trajectories(d *panel.Dataset, opts Options) (string, error) {
	opts = opts.withDefaults()
	if err := d.Validate(); err != nil {
		return "", err
	}

	times := d.Times()
	yLo, yHi := scoreRange(d)
	f := newFrame(opts, times[0], times[len(times)-1], yLo, yHi)

	subjects := d.Subjects()
	step := 1
	if len(subjects) > opts.MaxSubjects {
		step = (len(subjects) + opts.MaxSubjects - 1) / opts.MaxSubjects
	}

	// scores[subject][time]
	bySubject := make(map[string]map[float64]float64, len(subjects))
	for _, o := range d.Obs {
		m, ok := bySubject[o.Subject]
		if !ok {
			m = make(map[float64]float64, len(times))
			bySubject[o.Subject] = m
		}
		m[o.Time] = o.Score
	}

	var b strings.Builder
	openSVG(&b, opts)
	drawTitle(&b, opts, "Subject wellbeing trajectories")
	drawAxes(&b, f, "time", "wellbeing score", "%.1f")
	drawLegend(&b, f, groupsPresent(d))

	for i := 0; i < len(subjects); i += step {
		s := subjects[i]
		g, _ := d.SubjectGroup(s)
		points := bySubject[s]

		var pts []string
		for _, t := range times {
			score, ok := points[t]
			if !ok {
				continue
			}
			pts = append(pts, fmt.Sprintf("%.1f,%.1f", f.x(t), f.y(score)))
		}
		if len(pts) < 2 {
			continue
		}
		fmt.Fprintf(&b, `<polyline points="%s" fill="none" stroke="%s" stroke-width="1" stroke-opacity="0.3"/>`+"\n",
			strings.Join(pts, " "), groupColors[g])
	}

	// Group mean overlay
	for _, g := range groupsPresent(d) {
		var pts []string
		for _, t := range times {
			scores := d.Scores(g, t)
			if len(scores) == 0 {
				continue
			}
			sorted := append([]float64(nil), scores...)
			sort.Float64s(sorted)
			pts = append(pts, fmt.Sprintf("%.1f,%.1f", f.x(t), f.y(stat.Mean(sorted, nil))))
		}
		if len(pts) < 2 {
			continue
		}
		fmt.Fprintf(&b, `<polyline points="%s" fill="none" stroke="%s" stroke-width="3"/>`+"\n",
			strings.Join(pts, " "), groupColors[g])
	}

	closeSVG(&b)
	return b.String(), nil
}

func groupsPresent(d *panel.Dataset) []panel.Group {
	var out []panel.Group
	for _, g := range panel.AllGroups() {
		present := false
		for _, o := range d.Obs {
			if o.Group == g {
				present = true
				break
			}
		}
		if present {
			out = append(out, g)
		}
	}
	return out
}
