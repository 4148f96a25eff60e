package mixedmodel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/panelwell/panelwell/internal/panel"
)

// logRatioBound caps |log(sb2/se2)| during optimization. exp(+-16)
// spans ICC from ~1e-7 to ~1-1e-7 while keeping the whitened normal
// equations well conditioned at the boundary.
const logRatioBound = 16.0

// Options controls the REML fit.
type Options struct {
	// InitSubjectVar and InitResidVar seed the optimizer. Zero means
	// "split the sample variance evenly", which is robust in practice.
	InitSubjectVar float64
	InitResidVar   float64
}

// Coefficient is one fixed-effect estimate with its Wald statistics.
type Coefficient struct {
	Name     string  `json:"name"`
	Estimate float64 `json:"estimate"`
	StdErr   float64 `json:"std_err"`
	Z        float64 `json:"z"`
	P        float64 `json:"p"`
}

// Result holds a fitted random-intercept model.
type Result struct {
	Coefficients []Coefficient `json:"coefficients"`

	SubjectVar float64 `json:"subject_var"`
	ResidVar   float64 `json:"resid_var"`
	SubjectSD  float64 `json:"subject_sd"`
	ResidSD    float64 `json:"resid_sd"`
	ICC        float64 `json:"icc"`

	LogREML     float64 `json:"log_reml"`
	Converged   bool    `json:"converged"`
	NumObs      int     `json:"num_obs"`
	NumSubjects int     `json:"num_subjects"`
}

// remlState caches the sufficient statistics the objective needs, so each
// evaluation is O(subjects * p^2) rather than touching raw data again.
type remlState struct {
	p    int
	n    int
	xtx  *mat.SymDense // sum of Xi' Xi
	xty  *mat.VecDense // sum of Xi' yi
	yty  float64
	colS [][]float64 // per-subject column sums of Xi
	sumY []float64   // per-subject sums of yi
	ni   []int

	// rFloor keeps the profiled residual away from rounding noise on
	// exact-fit data, where the quadratic form cancels to ~eps*yty.
	rFloor float64
}

func newREMLState(ds *design) *remlState {
	p := NumCoef
	st := &remlState{
		p:    p,
		n:    ds.n,
		xtx:  mat.NewSymDense(p, nil),
		xty:  mat.NewVecDense(p, nil),
		colS: make([][]float64, len(ds.subjects)),
		sumY: make([]float64, len(ds.subjects)),
		ni:   make([]int, len(ds.subjects)),
	}

	for i := range ds.subjects {
		s := make([]float64, p)
		for r, row := range ds.x[i] {
			y := ds.y[i][r]
			st.yty += y * y
			for a := 0; a < p; a++ {
				s[a] += row[a]
				st.xty.SetVec(a, st.xty.AtVec(a)+row[a]*y)
				for b := a; b < p; b++ {
					st.xtx.SetSym(a, b, st.xtx.At(a, b)+row[a]*row[b])
				}
			}
			st.sumY[i] += y
		}
		st.colS[i] = s
		st.ni[i] = len(ds.x[i])
	}
	st.rFloor = 1e-12 * (st.yty + 1)
	return st
}

// profile evaluates the whitened GLS pieces at the variance ratio
// lam = sb2/se2, using the Woodbury form of each per-subject block
//
//	(I + lam*11')^-1 = I - ci * 11'   with ci = lam / (1 + ni*lam).
//
// The residual scale se2 cancels out of the whitened system, so it is
// profiled out analytically rather than optimized. Returns X'WX, X'Wy,
// y'Wy, and sum log(1 + ni*lam).
func (st *remlState) profile(lam float64) (a *mat.SymDense, b *mat.VecDense, q, logDetW float64) {
	p := st.p
	a = mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			a.SetSym(i, j, st.xtx.At(i, j))
		}
	}
	b = mat.NewVecDense(p, nil)
	b.CopyVec(st.xty)
	q = st.yty

	for i := range st.ni {
		ni := float64(st.ni[i])
		ci := lam / (1 + ni*lam)
		s := st.colS[i]
		u := st.sumY[i]

		for r := 0; r < p; r++ {
			b.SetVec(r, b.AtVec(r)-ci*s[r]*u)
			for c := r; c < p; c++ {
				a.SetSym(r, c, a.At(r, c)-ci*s[r]*s[c])
			}
		}
		q -= ci * u * u

		logDetW += math.Log(1 + ni*lam)
	}
	return a, b, q, logDetW
}

// negTwoREML is the objective minimized over x[0] = log(sb2/se2), with
// the residual variance profiled out at its closed-form optimum
// se2 = r/(n-p).
func (st *remlState) negTwoREML(x []float64) float64 {
	if math.Abs(x[0]) > logRatioBound {
		return math.Inf(1)
	}
	lam := math.Exp(x[0])

	a, b, q, logDetW := st.profile(lam)

	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return math.Inf(1)
	}

	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, b); err != nil {
		return math.Inf(1)
	}
	r := q - mat.Dot(&beta, b)
	if r < st.rFloor {
		r = st.rFloor
	}

	np := float64(st.n - st.p)
	se2 := r / np
	return np*math.Log(2*math.Pi) + np*math.Log(se2) + np + logDetW + chol.LogDet()
}

// Fit estimates the random-intercept model on the dataset by REML.
func Fit(d *panel.Dataset, opts Options) (*Result, error) {
	ds, err := newDesign(d)
	if err != nil {
		return nil, err
	}
	st := newREMLState(ds)

	// Reject rank-deficient designs (e.g. an entirely absent group)
	// before handing a hopeless surface to the optimizer.
	if err := checkFullRank(st); err != nil {
		return nil, err
	}

	sb0, se0 := opts.InitSubjectVar, opts.InitResidVar
	if sb0 <= 0 || se0 <= 0 {
		v := sampleVariance(d)
		if v <= 0 {
			v = 1
		}
		sb0, se0 = v/2, v/2
	}

	problem := optimize.Problem{Func: st.negTwoREML}
	init := []float64{math.Log(sb0 / se0)}

	res, err := optimize.Minimize(problem, init, nil, &optimize.NelderMead{})
	if err != nil {
		return nil, fmt.Errorf("REML optimization failed: %w", err)
	}

	lam := math.Exp(res.X[0])

	a, b, q, _ := st.profile(lam)
	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, fmt.Errorf("fixed-effect design is singular at the optimum")
	}
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, b); err != nil {
		return nil, fmt.Errorf("solving GLS normal equations: %w", err)
	}

	r := q - mat.Dot(&beta, b)
	if r < st.rFloor {
		r = st.rFloor
	}
	se2 := r / float64(st.n-st.p)
	sb2 := lam * se2

	// Var(beta) = se2 * (X'WX)^-1
	var cov mat.SymDense
	if err := chol.InverseTo(&cov); err != nil {
		return nil, fmt.Errorf("inverting information matrix: %w", err)
	}
	cov.ScaleSym(se2, &cov)

	norm := distuv.Normal{Mu: 0, Sigma: 1}
	coefs := make([]Coefficient, NumCoef)
	for i := 0; i < NumCoef; i++ {
		est := beta.AtVec(i)
		se := math.Sqrt(cov.At(i, i))
		z := est / se
		coefs[i] = Coefficient{
			Name:     CoefNames[i],
			Estimate: est,
			StdErr:   se,
			Z:        z,
			P:        2 * norm.CDF(-math.Abs(z)),
		}
	}

	return &Result{
		Coefficients: coefs,
		SubjectVar:   sb2,
		ResidVar:     se2,
		SubjectSD:    math.Sqrt(sb2),
		ResidSD:      math.Sqrt(se2),
		ICC:          sb2 / (sb2 + se2),
		LogREML:      -0.5 * res.F,
		Converged:    res.Status == optimize.Success || res.Status == optimize.FunctionConvergence || res.Status == optimize.GradientThreshold,
		NumObs:       ds.n,
		NumSubjects:  len(ds.subjects),
	}, nil
}

// checkFullRank verifies X'X is positive definite; the per-subject sums
// cannot rescue a design that is already rank deficient.
func checkFullRank(st *remlState) error {
	var chol mat.Cholesky
	if ok := chol.Factorize(st.xtx); !ok {
		return fmt.Errorf("singular fixed-effect design: every group needs observations at more than one timepoint")
	}
	return nil
}

func sampleVariance(d *panel.Dataset) float64 {
	scores := make([]float64, len(d.Obs))
	for i, o := range d.Obs {
		scores[i] = o.Score
	}
	return stat.Variance(scores, nil)
}
