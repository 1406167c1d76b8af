// Package mcp exposes fairness analyses to MCP clients over stdio, so an
// AI assistant can run evaluations and read back stored runs through typed
// tool calls instead of shelling out to the CLI.
package mcp

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/paritylens/paritylens/internal/analysis"
	"github.com/paritylens/paritylens/internal/config"
	"github.com/paritylens/paritylens/internal/dataset"
	"github.com/paritylens/paritylens/internal/models"
	"github.com/paritylens/paritylens/internal/storage"
)

// Server wraps the MCP SDK server around a store and an analysis runner.
type Server struct {
	MCPServer *sdkmcp.Server

	cfg    *config.Config
	store  storage.Store
	runner *analysis.Runner
	log    *logrus.Logger
}

// NewServer creates a ParityLens MCP server with the analysis tools
// registered. version is the binary version reported to clients.
func NewServer(version string, cfg *config.Config, store storage.Store, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}
	s := &Server{
		MCPServer: sdkmcp.NewServer(
			&sdkmcp.Implementation{Name: "paritylens", Version: version},
			nil,
		),
		cfg:    cfg,
		store:  store,
		runner: analysis.NewRunner(store, logger),
		log:    logger,
	}
	s.registerTools()
	return s
}

// Run serves MCP over stdin/stdout until the client disconnects or ctx is
// canceled.
func (s *Server) Run(ctx context.Context) error {
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name: "analyze_fairness",
		Description: "Run a fairness analysis: classify screenings, build per-group confusion matrices " +
			"and return accuracy/PPV/FPR/FNR per demographic group. Rates are null when undefined " +
			"(empty conditioning set), which is different from a rate of zero.",
	}, s.handleAnalyze)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_runs",
		Description: "List stored analysis runs, newest first.",
	}, s.handleListRuns)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_run",
		Description: "Fetch one stored analysis run with its per-group metrics by run ID.",
	}, s.handleGetRun)
}

// --- Tool input/output types ---

type analyzeInput struct {
	Variant          string `json:"variant,omitempty" jsonschema:"dataset variant: general or violent (default from config)"`
	GroupField       string `json:"group_field,omitempty" jsonschema:"demographic field to group by: race, sex or age_category (default from config)"`
	Classifier       string `json:"classifier,omitempty" jsonschema:"classifier kind: decile or logit (default from config)"`
	ChargeWindowDays *int   `json:"charge_window_days,omitempty" jsonschema:"inclusive screening-to-arrest window in days (default 30; -1 disables the rule)"`
}

type analyzeOutput struct {
	Run    models.AnalysisRun    `json:"run"`
	Groups []models.GroupMetrics `json:"groups"`
	// Source is "store" when the run read ingested screenings and "csv"
	// when it fell back to the dataset directory.
	Source string `json:"source"`
}

type listRunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of runs to return (default 20)"`
}

type listRunsOutput struct {
	Runs []models.AnalysisRun `json:"runs"`
}

type getRunInput struct {
	RunID string `json:"run_id" jsonschema:"run ID from analyze_fairness or list_runs"`
}

// --- Tool handlers ---

func (s *Server) handleAnalyze(ctx context.Context, _ *sdkmcp.CallToolRequest, input analyzeInput) (*sdkmcp.CallToolResult, analyzeOutput, error) {
	opts, err := s.buildOptions(ctx, input)
	if err != nil {
		return nil, analyzeOutput{}, err
	}

	res, err := s.runner.Run(ctx, opts)
	if err != nil {
		return nil, analyzeOutput{}, err
	}

	source := "csv"
	if opts.FromStore {
		source = "store"
	}
	s.log.WithFields(logrus.Fields{
		"run_id": res.Run.ID,
		"groups": len(res.Groups),
		"source": source,
	}).Info("MCP analysis completed")

	return nil, analyzeOutput{Run: res.Run, Groups: res.Groups, Source: source}, nil
}

func (s *Server) handleListRuns(ctx context.Context, _ *sdkmcp.CallToolRequest, input listRunsInput) (*sdkmcp.CallToolResult, listRunsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	runs, err := s.store.ListRuns(ctx, limit)
	if err != nil {
		return nil, listRunsOutput{}, err
	}
	return nil, listRunsOutput{Runs: runs}, nil
}

func (s *Server) handleGetRun(ctx context.Context, _ *sdkmcp.CallToolRequest, input getRunInput) (*sdkmcp.CallToolResult, models.RunResult, error) {
	if input.RunID == "" {
		return nil, models.RunResult{}, fmt.Errorf("run_id is required")
	}
	res, err := s.store.GetRun(ctx, input.RunID)
	if err != nil {
		return nil, models.RunResult{}, err
	}
	return nil, *res, nil
}

// buildOptions resolves tool input against the configured defaults. The
// analysis reads from the store when screenings were ingested, and falls back
// to the CSV directory otherwise.
func (s *Server) buildOptions(ctx context.Context, input analyzeInput) (analysis.Options, error) {
	cfg := *s.cfg

	if input.Variant != "" {
		cfg.Dataset.Variant = input.Variant
	}
	if input.GroupField != "" {
		cfg.Dataset.GroupField = input.GroupField
	}
	if input.Classifier != "" {
		cfg.Classifier.Kind = input.Classifier
	}

	variant, err := dataset.ParseVariant(cfg.Dataset.Variant)
	if err != nil {
		return analysis.Options{}, err
	}

	policy := cfg.Dataset.Filters
	if input.ChargeWindowDays != nil {
		policy.ChargeWindowDays = *input.ChargeWindowDays
	}

	clf, err := cfg.BuildClassifier()
	if err != nil {
		return analysis.Options{}, err
	}

	fromStore := false
	n, err := s.store.CountScreenings(ctx, string(variant))
	switch {
	case err != nil:
		s.log.WithError(err).WithField("variant", variant).
			Warn("Screening count failed, reading from CSV")
	case n > 0:
		fromStore = true
	default:
		s.log.WithField("variant", variant).
			Debug("No screenings ingested, reading from CSV")
	}

	return analysis.Options{
		Variant:    variant,
		Policy:     policy,
		Classifier: clf,
		GroupField: cfg.Dataset.GroupField,
		DataDir:    cfg.Dataset.Dir,
		FromStore:  fromStore,
	}, nil
}
