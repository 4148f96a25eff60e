package mixedmodel

import (
	"fmt"
	"strings"

	"github.com/panelwell/panelwell/internal/panel"
)

// GroupTrajectory returns the fitted mean wellbeing for group g at time t.
func (r *Result) GroupTrajectory(g panel.Group, t float64) float64 {
	c := r.Coefficients
	m := c[0].Estimate
	switch g {
	case panel.GroupNever:
		m += c[1].Estimate + c[4].Estimate*t
	case panel.GroupNew:
		m += c[2].Estimate + c[5].Estimate*t
	default:
		m += c[3].Estimate * t
	}
	return m
}

// Slope returns the fitted per-unit-time change for group g.
func (r *Result) Slope(g panel.Group) float64 {
	switch g {
	case panel.GroupNever:
		return r.Coefficients[4].Estimate
	case panel.GroupNew:
		return r.Coefficients[5].Estimate
	default:
		return r.Coefficients[3].Estimate
	}
}

// Summary renders the fit as an aligned text report.
func (r *Result) Summary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Random-intercept linear mixed model (REML)\n")
	fmt.Fprintf(&b, "  score ~ group + group:time + (1 | subject)\n\n")
	fmt.Fprintf(&b, "Observations: %d   Subjects: %d\n\n", r.NumObs, r.NumSubjects)

	fmt.Fprintf(&b, "Fixed effects:\n")
	fmt.Fprintf(&b, "  %-22s %10s %10s %9s %9s\n", "", "Estimate", "Std.Err", "z", "P>|z|")
	for _, c := range r.Coefficients {
		fmt.Fprintf(&b, "  %-22s %10.4f %10.4f %9.3f %9.4f\n", c.Name, c.Estimate, c.StdErr, c.Z, c.P)
	}

	fmt.Fprintf(&b, "\nRandom effects:\n")
	fmt.Fprintf(&b, "  subject intercept SD: %8.4f  (variance %.4f)\n", r.SubjectSD, r.SubjectVar)
	fmt.Fprintf(&b, "  residual SD:          %8.4f  (variance %.4f)\n", r.ResidSD, r.ResidVar)
	fmt.Fprintf(&b, "  ICC:                  %8.4f\n", r.ICC)

	fmt.Fprintf(&b, "\nFitted group trajectories (t=0 -> t=1):\n")
	for _, g := range panel.AllGroups() {
		fmt.Fprintf(&b, "  %-9s %6.3f -> %6.3f  (slope %+.3f)\n",
			g, r.GroupTrajectory(g, 0), r.GroupTrajectory(g, 1), r.Slope(g))
	}

	fmt.Fprintf(&b, "\nREML log-likelihood: %.3f   Converged: %t\n", r.LogREML, r.Converged)
	return b.String()
}
