package plot

import (
	"fmt"
	"strings"

	"github.com/panelwell/panelwell/internal/panel"
	"github.com/panelwell/panelwell/internal/stats"
)

// GroupMeans renders group mean wellbeing at each timepoint with 95%
// confidence interval whiskers, connected per group. Groups are nudged
// slightly apart on the time axis so whiskers stay readable.
func GroupMeans(d *panel.Dataset, opts Options) (string, error) {
	opts = opts.withDefaults()
	if err := d.Validate(); err != nil {
		return "", err
	}

	cells := stats.ByCell(d)
	if len(cells) == 0 {
		return "", fmt.Errorf("dataset has no populated cells")
	}

	times := d.Times()
	yLo, yHi := ciRange(cells)
	f := newFrame(opts, times[0], times[len(times)-1], yLo, yHi)

	groups := groupsPresent(d)
	// Horizontal nudge per group, in time units.
	span := times[len(times)-1] - times[0]
	nudge := span * 0.015

	var b strings.Builder
	openSVG(&b, opts)
	drawTitle(&b, opts, "Group mean wellbeing with 95% CI")
	drawAxes(&b, f, "time", "wellbeing score", "%.1f")
	drawLegend(&b, f, groups)

	for gi, g := range groups {
		dx := nudge * float64(gi-len(groups)/2)
		color := groupColors[g]

		var pts []string
		for _, c := range cells {
			if c.Group != g {
				continue
			}
			px := f.x(c.Time + dx)
			py := f.y(c.Mean)
			pts = append(pts, fmt.Sprintf("%.1f,%.1f", px, py))

			// CI whisker with serifs
			fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="2"/>`+"\n",
				px, f.y(c.CILow), px, f.y(c.CIHigh), color)
			fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="2"/>`+"\n",
				px-4, f.y(c.CILow), px+4, f.y(c.CILow), color)
			fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="2"/>`+"\n",
				px-4, f.y(c.CIHigh), px+4, f.y(c.CIHigh), color)
			fmt.Fprintf(&b, `<circle cx="%.1f" cy="%.1f" r="4" fill="%s"/>`+"\n", px, py, color)
		}
		if len(pts) >= 2 {
			fmt.Fprintf(&b, `<polyline points="%s" fill="none" stroke="%s" stroke-width="2"/>`+"\n",
				strings.Join(pts, " "), color)
		}
	}

	closeSVG(&b)
	return b.String(), nil
}

// ciRange pads the span of the confidence intervals.
func ciRange(cells []stats.CellSummary) (float64, float64) {
	lo, hi := cells[0].CILow, cells[0].CIHigh
	for _, c := range cells {
		if c.CILow < lo {
			lo = c.CILow
		}
		if c.CIHigh > hi {
			hi = c.CIHigh
		}
	}
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = 0.5
	}
	return lo - pad, hi + pad
}
