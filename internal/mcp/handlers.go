package mcp

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panelwell/panelwell/internal/mixedmodel"
	"github.com/panelwell/panelwell/internal/ratelimit"
	"github.com/panelwell/panelwell/internal/simulate"
	"github.com/panelwell/panelwell/internal/stats"
	"github.com/panelwell/panelwell/internal/store"
)

// registerTools registers all panelwell MCP tools with the server.
func (s *Server) registerTools() error {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "panel_simulate",
		Description: "Synthesize a longitudinal wellbeing panel from the study scenario and store it",
	}, s.handlePanelSimulate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "panel_describe",
		Description: "Compute descriptive statistics per group x timepoint cell for a stored dataset",
	}, s.handlePanelDescribe)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "panel_fit",
		Description: "Fit the random-intercept mixed model (score ~ group + group:time) to a stored dataset via REML",
	}, s.handlePanelFit)

	return nil
}

// registerResources registers MCP resources for auto-loading into context.
func (s *Server) registerResources() error {
	s.server.AddResource(&sdk.Resource{
		URI:         "panelwell://datasets",
		Name:        "panelwell-datasets",
		Description: "Summary of the datasets stored in this study, for picking a dataset_id.",
		MIMEType:    "text/markdown",
	}, s.handleDatasetsResource)

	return nil
}

// handleDatasetsResource returns the dataset inventory as markdown.
func (s *Server) handleDatasetsResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	infos, err := s.store.ListDatasets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Study datasets\n\n")
	if len(infos) == 0 {
		b.WriteString("No datasets stored yet. Use panel_simulate to create one.\n")
	} else {
		b.WriteString("| ID | Name | Seed | Subjects | Observations |\n")
		b.WriteString("|----|------|------|----------|--------------|\n")
		for _, info := range infos {
			fmt.Fprintf(&b, "| %s | %s | %d | %d | %d |\n",
				info.ID, info.Name, info.Seed, info.NumSubjects, info.NumObs)
		}
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      req.Params.URI,
				MIMEType: "text/markdown",
				Text:     b.String(),
			},
		},
	}, nil
}

func (s *Server) handlePanelSimulate(ctx context.Context, req *sdk.CallToolRequest, args PanelSimulateInput) (*sdk.CallToolResult, PanelSimulateOutput, error) {
	if err := ratelimit.CheckLimit(s.toolLimiters, "panel_simulate"); err != nil {
		return nil, PanelSimulateOutput{}, err
	}

	scenario := s.cfg.Scenario
	if args.Name != "" {
		scenario.Name = args.Name
	}
	if args.SubjectsPerGroup > 0 {
		scenario.SubjectsPerGroup = args.SubjectsPerGroup
	}
	if args.Seed != nil {
		scenario.Seed = *args.Seed
	}

	d, err := simulate.Generate(scenario)
	if err != nil {
		return nil, PanelSimulateOutput{}, fmt.Errorf("simulation failed: %w", err)
	}

	scenarioJSON, err := store.ScenarioJSON(scenario)
	if err != nil {
		return nil, PanelSimulateOutput{}, err
	}

	id, err := s.store.SaveDataset(ctx, d, scenarioJSON)
	if err != nil {
		return nil, PanelSimulateOutput{}, fmt.Errorf("failed to store dataset: %w", err)
	}

	return nil, PanelSimulateOutput{
		DatasetID:   id,
		NumSubjects: d.NumSubjects(),
		NumObs:      len(d.Obs),
		Seed:        scenario.Seed,
		Message: fmt.Sprintf("Simulated %d subjects (%d observations) into dataset %s",
			d.NumSubjects(), len(d.Obs), id),
	}, nil
}

func (s *Server) handlePanelDescribe(ctx context.Context, req *sdk.CallToolRequest, args PanelDescribeInput) (*sdk.CallToolResult, PanelDescribeOutput, error) {
	if err := ratelimit.CheckLimit(s.toolLimiters, "panel_describe"); err != nil {
		return nil, PanelDescribeOutput{}, err
	}

	if args.DatasetID == "" {
		return nil, PanelDescribeOutput{}, fmt.Errorf("dataset_id is required")
	}

	d, err := s.store.GetDataset(ctx, args.DatasetID)
	if err != nil {
		return nil, PanelDescribeOutput{}, err
	}

	out := PanelDescribeOutput{DatasetID: args.DatasetID}
	for _, c := range stats.ByCell(d) {
		out.Cells = append(out.Cells, CellSummaryItem{
			Group:  string(c.Group),
			Time:   c.Time,
			N:      c.N,
			Mean:   c.Mean,
			SD:     c.SD,
			CILow:  c.CILow,
			CIHigh: c.CIHigh,
		})
	}

	// Change scores need a complete two-wave panel; skip quietly otherwise
	if changes, err := stats.ChangeByGroup(d); err == nil {
		for _, c := range changes {
			out.Changes = append(out.Changes, GroupChangeItem{
				Group:  string(c.Group),
				N:      c.N,
				Mean:   c.Mean,
				SD:     c.SD,
				CILow:  c.CILow,
				CIHigh: c.CIHigh,
			})
		}
	}

	return nil, out, nil
}

func (s *Server) handlePanelFit(ctx context.Context, req *sdk.CallToolRequest, args PanelFitInput) (*sdk.CallToolResult, PanelFitOutput, error) {
	if err := ratelimit.CheckLimit(s.toolLimiters, "panel_fit"); err != nil {
		return nil, PanelFitOutput{}, err
	}

	if args.DatasetID == "" {
		return nil, PanelFitOutput{}, fmt.Errorf("dataset_id is required")
	}

	d, err := s.store.GetDataset(ctx, args.DatasetID)
	if err != nil {
		return nil, PanelFitOutput{}, err
	}

	res, err := mixedmodel.Fit(d, mixedmodel.Options{})
	if err != nil {
		return nil, PanelFitOutput{}, fmt.Errorf("model fit failed: %w", err)
	}

	out := PanelFitOutput{
		DatasetID: args.DatasetID,
		SubjectSD: res.SubjectSD,
		ResidSD:   res.ResidSD,
		ICC:       res.ICC,
		LogREML:   res.LogREML,
		Converged: res.Converged,
	}
	for _, c := range res.Coefficients {
		out.Coefficients = append(out.Coefficients, CoefficientItem{
			Term:     c.Name,
			Estimate: c.Estimate,
			StdErr:   c.StdErr,
			Z:        c.Z,
			P:        c.P,
		})
	}

	if args.Save {
		fitID, err := s.store.SaveFit(ctx, args.DatasetID, res)
		if err != nil {
			return nil, PanelFitOutput{}, fmt.Errorf("failed to store fit: %w", err)
		}
		out.FitID = fitID
		out.Message = fmt.Sprintf("Fitted dataset %s and stored fit %s", args.DatasetID, fitID)
	} else {
		out.Message = fmt.Sprintf("Fitted dataset %s (not stored)", args.DatasetID)
	}

	return nil, out, nil
}
