package plot

import (
	"fmt"
	"strings"

	"github.com/panelwell/panelwell/internal/panel"
)

// Histogram renders grouped score distributions at one timepoint: each
// bin shows a narrow bar per group, side by side.
func Histogram(d *panel.Dataset, time float64, opts Options) (string, error) {
	opts = opts.withDefaults()
	if err := d.Validate(); err != nil {
		return "", err
	}

	var groups []panel.Group
	for _, g := range panel.AllGroups() {
		if len(d.Scores(g, time)) > 0 {
			groups = append(groups, g)
		}
	}
	if len(groups) == 0 {
		return "", fmt.Errorf("no observations at t=%g", time)
	}

	lo, hi := histRange(d, time, groups)
	binWidth := (hi - lo) / float64(opts.Bins)

	// counts[g][bin]
	counts := make(map[panel.Group][]int, len(groups))
	maxCount := 0
	for _, g := range groups {
		c := make([]int, opts.Bins)
		for _, s := range d.Scores(g, time) {
			bin := int((s - lo) / binWidth)
			if bin >= opts.Bins { // max value lands in the last bin
				bin = opts.Bins - 1
			}
			if bin < 0 {
				bin = 0
			}
			c[bin]++
			if c[bin] > maxCount {
				maxCount = c[bin]
			}
		}
		counts[g] = c
	}

	f := newFrame(opts, lo, hi, 0, float64(maxCount)*1.05)

	var b strings.Builder
	openSVG(&b, opts)
	drawTitle(&b, opts, fmt.Sprintf("Wellbeing distribution at t=%g", time))
	drawAxes(&b, f, "wellbeing score", "count", "%.1f")
	drawLegend(&b, f, groups)

	sub := (f.x(lo+binWidth) - f.x(lo)) / float64(len(groups))
	barW := sub * 0.9
	for bi := 0; bi < opts.Bins; bi++ {
		x0 := f.x(lo + float64(bi)*binWidth)
		for gi, g := range groups {
			n := counts[g][bi]
			if n == 0 {
				continue
			}
			top := f.y(float64(n))
			fmt.Fprintf(&b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s" fill-opacity="0.8"/>`+"\n",
				x0+float64(gi)*sub, top, barW, float64(f.bottom)-top, groupColors[g])
		}
	}

	closeSVG(&b)
	return b.String(), nil
}

// histRange spans the scores present at the timepoint across groups.
func histRange(d *panel.Dataset, time float64, groups []panel.Group) (float64, float64) {
	lo, hi := 0.0, 0.0
	first := true
	for _, g := range groups {
		for _, s := range d.Scores(g, time) {
			if first || s < lo {
				lo = s
			}
			if first || s > hi {
				hi = s
			}
			first = false
		}
	}
	if hi == lo {
		hi = lo + 1
	}
	return lo, hi
}
