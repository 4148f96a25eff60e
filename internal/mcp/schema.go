// Package mcp provides an MCP (Model Context Protocol) server for panelwell.
package mcp

// PanelSimulateInput defines the input for the panel_simulate tool.
type PanelSimulateInput struct {
	Name             string  `json:"name,omitempty" jsonschema:"Dataset name (default: study scenario name)"`
	SubjectsPerGroup int     `json:"subjects_per_group,omitempty" jsonschema:"Subjects per parenting group (default: study scenario value)"`
	Seed             *uint64 `json:"seed,omitempty" jsonschema:"Random seed for reproducible generation (default: study scenario seed)"`
}

// PanelSimulateOutput defines the output for the panel_simulate tool.
type PanelSimulateOutput struct {
	DatasetID   string `json:"dataset_id" jsonschema:"ID of the stored dataset"`
	NumSubjects int    `json:"num_subjects" jsonschema:"Number of subjects generated"`
	NumObs      int    `json:"num_obs" jsonschema:"Number of observations generated"`
	Seed        uint64 `json:"seed" jsonschema:"Seed used for generation"`
	Message     string `json:"message" jsonschema:"Human-readable result message"`
}

// PanelDescribeInput defines the input for the panel_describe tool.
type PanelDescribeInput struct {
	DatasetID string `json:"dataset_id" jsonschema:"ID of the dataset to describe"`
}

// CellSummaryItem is the descriptive summary of one group x timepoint cell.
type CellSummaryItem struct {
	Group  string  `json:"group"`
	Time   float64 `json:"time"`
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	SD     float64 `json:"sd"`
	CILow  float64 `json:"ci_low"`
	CIHigh float64 `json:"ci_high"`
}

// GroupChangeItem summarizes paired change scores for one group.
type GroupChangeItem struct {
	Group  string  `json:"group"`
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	SD     float64 `json:"sd"`
	CILow  float64 `json:"ci_low"`
	CIHigh float64 `json:"ci_high"`
}

// PanelDescribeOutput defines the output for the panel_describe tool.
type PanelDescribeOutput struct {
	DatasetID string            `json:"dataset_id"`
	Cells     []CellSummaryItem `json:"cells" jsonschema:"Per-cell (group x timepoint) descriptive summaries"`
	Changes   []GroupChangeItem `json:"changes,omitempty" jsonschema:"Paired change-score summaries per group (two-timepoint panels only)"`
}

// PanelFitInput defines the input for the panel_fit tool.
type PanelFitInput struct {
	DatasetID string `json:"dataset_id" jsonschema:"ID of the dataset to fit"`
	Save      bool   `json:"save,omitempty" jsonschema:"Persist the fit in the study database (default: false)"`
}

// CoefficientItem is one fixed-effect estimate.
type CoefficientItem struct {
	Term     string  `json:"term"`
	Estimate float64 `json:"estimate"`
	StdErr   float64 `json:"std_err"`
	Z        float64 `json:"z"`
	P        float64 `json:"p"`
}

// PanelFitOutput defines the output for the panel_fit tool.
type PanelFitOutput struct {
	DatasetID    string            `json:"dataset_id"`
	FitID        string            `json:"fit_id,omitempty" jsonschema:"ID of the stored fit (when save is true)"`
	Coefficients []CoefficientItem `json:"coefficients" jsonschema:"Fixed-effect estimates with Wald tests"`
	SubjectSD    float64           `json:"subject_sd" jsonschema:"Random intercept standard deviation"`
	ResidSD      float64           `json:"resid_sd" jsonschema:"Residual standard deviation"`
	ICC          float64           `json:"icc" jsonschema:"Intraclass correlation"`
	LogREML      float64           `json:"log_reml" jsonschema:"REML log-likelihood at the optimum"`
	Converged    bool              `json:"converged"`
	Message      string            `json:"message" jsonschema:"Human-readable result message"`
}
