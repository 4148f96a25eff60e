// Package plot renders wellbeing panel charts as self-contained SVG:
// per-group histograms, subject trajectories, and group means with
// confidence intervals. Output is deterministic for a given dataset.
package plot

import (
	"fmt"
	"math"
	"strings"

	"github.com/panelwell/panelwell/internal/panel"
)

// Options controls chart geometry and labeling.
type Options struct {
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
	Bins   int    `json:"bins" yaml:"bins"`
	Title  string `json:"title" yaml:"title"`

	// MaxSubjects caps how many subject lines a trajectory plot draws,
	// sampled evenly across the dataset for legibility.
	MaxSubjects int `json:"max_subjects" yaml:"max_subjects"`
}

// DefaultOptions returns the standard chart geometry.
func DefaultOptions() Options {
	return Options{
		Width:       900,
		Height:      560,
		Bins:        20,
		MaxSubjects: 60,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Width <= 0 {
		o.Width = def.Width
	}
	if o.Height <= 0 {
		o.Height = def.Height
	}
	if o.Bins <= 0 {
		o.Bins = def.Bins
	}
	if o.MaxSubjects <= 0 {
		o.MaxSubjects = def.MaxSubjects
	}
	return o
}

// groupColors assigns each group its chart color.
var groupColors = map[panel.Group]string{
	panel.GroupExisting: "#4285f4",
	panel.GroupNever:    "#34a853",
	panel.GroupNew:      "#e8710a",
}

// frame is the plotting area inside the margins, with data-to-pixel scales.
type frame struct {
	left, right, top, bottom int
	xMin, xMax, yMin, yMax   float64
}

const (
	marginLeft   = 70
	marginRight  = 30
	marginTop    = 50
	marginBottom = 55
)

func newFrame(o Options, xMin, xMax, yMin, yMax float64) frame {
	if xMax == xMin {
		xMax = xMin + 1
	}
	if yMax == yMin {
		yMax = yMin + 1
	}
	return frame{
		left:   marginLeft,
		right:  o.Width - marginRight,
		top:    marginTop,
		bottom: o.Height - marginBottom,
		xMin:   xMin, xMax: xMax, yMin: yMin, yMax: yMax,
	}
}

func (f frame) x(v float64) float64 {
	return float64(f.left) + (v-f.xMin)/(f.xMax-f.xMin)*float64(f.right-f.left)
}

func (f frame) y(v float64) float64 {
	return float64(f.bottom) - (v-f.yMin)/(f.yMax-f.yMin)*float64(f.bottom-f.top)
}

// ticks returns n+1 evenly spaced values spanning [min, max].
func ticks(min, max float64, n int) []float64 {
	out := make([]float64, n+1)
	for i := 0; i <= n; i++ {
		out[i] = min + (max-min)*float64(i)/float64(n)
	}
	return out
}

func openSVG(b *strings.Builder, o Options) {
	fmt.Fprintf(b, `<?xml version="1.0" encoding="UTF-8"?>
<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">
<rect width="100%%" height="100%%" fill="#ffffff"/>
<defs>
<style>
.title { font-family: Arial, sans-serif; font-size: 16px; font-weight: bold; fill: #333333; }
.axis-label { font-family: Arial, sans-serif; font-size: 12px; fill: #333333; }
.tick-label { font-family: Arial, sans-serif; font-size: 11px; fill: #666666; }
.legend { font-family: Arial, sans-serif; font-size: 12px; fill: #333333; }
</style>
</defs>
`, o.Width, o.Height)
}

func closeSVG(b *strings.Builder) {
	b.WriteString("</svg>\n")
}

func drawTitle(b *strings.Builder, o Options, fallback string) {
	title := o.Title
	if title == "" {
		title = fallback
	}
	fmt.Fprintf(b, `<text x="%d" y="28" text-anchor="middle" class="title">%s</text>`+"\n",
		o.Width/2, escape(title))
}

// drawAxes renders the frame box, ticks, and axis titles.
func drawAxes(b *strings.Builder, f frame, xLabel, yLabel string, xTickFmt string) {
	fmt.Fprintf(b, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#333333" stroke-width="1"/>`+"\n",
		f.left, f.bottom, f.right, f.bottom)
	fmt.Fprintf(b, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#333333" stroke-width="1"/>`+"\n",
		f.left, f.top, f.left, f.bottom)

	for _, v := range ticks(f.xMin, f.xMax, 5) {
		px := f.x(v)
		fmt.Fprintf(b, `<line x1="%.1f" y1="%d" x2="%.1f" y2="%d" stroke="#333333" stroke-width="1"/>`+"\n",
			px, f.bottom, px, f.bottom+5)
		fmt.Fprintf(b, `<text x="%.1f" y="%d" text-anchor="middle" class="tick-label">`+xTickFmt+`</text>`+"\n",
			px, f.bottom+18, v)
	}
	for _, v := range ticks(f.yMin, f.yMax, 5) {
		py := f.y(v)
		fmt.Fprintf(b, `<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="#333333" stroke-width="1"/>`+"\n",
			f.left-5, py, f.left, py)
		fmt.Fprintf(b, `<text x="%d" y="%.1f" text-anchor="end" class="tick-label">%.1f</text>`+"\n",
			f.left-8, py+4, v)
	}

	fmt.Fprintf(b, `<text x="%d" y="%d" text-anchor="middle" class="axis-label">%s</text>`+"\n",
		(f.left+f.right)/2, f.bottom+38, escape(xLabel))
	fmt.Fprintf(b, `<text x="18" y="%d" text-anchor="middle" class="axis-label" transform="rotate(-90 18 %d)">%s</text>`+"\n",
		(f.top+f.bottom)/2, (f.top+f.bottom)/2, escape(yLabel))
}

// drawLegend renders group swatches across the top of the plot area.
func drawLegend(b *strings.Builder, f frame, groups []panel.Group) {
	x := f.left
	for _, g := range groups {
		fmt.Fprintf(b, `<rect x="%d" y="%d" width="12" height="12" fill="%s"/>`+"\n",
			x, f.top-14, groupColors[g])
		fmt.Fprintf(b, `<text x="%d" y="%d" class="legend">%s</text>`+"\n",
			x+16, f.top-4, string(g))
		x += 16 + 8*len(g) + 30
	}
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}

// scoreRange returns the min and max score in the dataset, padded slightly
// so points never sit on the frame.
func scoreRange(d *panel.Dataset) (float64, float64) {
	min, max := math.Inf(1), math.Inf(-1)
	for _, o := range d.Obs {
		if o.Score < min {
			min = o.Score
		}
		if o.Score > max {
			max = o.Score
		}
	}
	if math.IsInf(min, 1) {
		return 0, 1
	}
	pad := (max - min) * 0.05
	if pad == 0 {
		pad = 0.5
	}
	return min - pad, max + pad
}
