package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banking/risk-analytics/internal/config"
	"github.com/banking/risk-analytics/internal/graph"
	"github.com/banking/risk-analytics/internal/microrel"
	"github.com/banking/risk-analytics/internal/pkg/logger"
)

// engine is the in-memory graph the subcommands analyze
type engine struct {
	graph     *graph.Analyzer
	portfolio *microrel.Analyzer
}

type rootOptions struct {
	fixture string
	debug   bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "riskctl",
		Short: "Run network risk analyses against a graph fixture",
		Long: `riskctl loads a YAML graph fixture (reference data, SMEs, credits and
raw edges) into an in-memory graph and runs one analysis over it.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.fixture, "fixture", "f", "", "path to the YAML graph fixture")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "log analysis progress to stderr")
	_ = root.MarkPersistentFlagRequired("fixture")

	root.AddCommand(
		simpleCmd(opts, "systemic", "Detect concentration and interconnection risks", func(ctx context.Context, e *engine, _ []string) (any, error) {
			return e.graph.AnalyzeSystemicRisks(ctx), nil
		}),
		simpleCmd(opts, "patterns", "Detect circular, rapid sequential and structuring patterns", func(ctx context.Context, e *engine, _ []string) (any, error) {
			return e.graph.DetectFraudPatterns(ctx), nil
		}),
		simpleCmd(opts, "communities", "Group entities into communities", func(ctx context.Context, e *engine, _ []string) (any, error) {
			return e.graph.DetectCommunities(ctx), nil
		}),
		simpleCmd(opts, "resilience", "Score how the network withstands node loss", func(ctx context.Context, e *engine, _ []string) (any, error) {
			return e.graph.AnalyzeResilience(ctx), nil
		}),
		newCentralityCmd(opts),
		newContagionCmd(opts),
		newStressCmd(opts),
		newPortfolioCmd(opts),
	)
	return root
}

type runFunc func(ctx context.Context, e *engine, args []string) (any, error)

func simpleCmd(opts *rootOptions, use, short string, run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE:  runE(opts, run),
	}
}

// runE loads the fixture, runs the analysis and writes the result as JSON
func runE(opts *rootOptions, run runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		e, err := loadEngine(ctx, opts)
		if err != nil {
			return err
		}
		result, err := run(ctx, e, args)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), result)
	}
}

func loadEngine(ctx context.Context, opts *rootOptions) (*engine, error) {
	cfg := config.Default()
	log := logger.NewNop()
	if opts.debug {
		l, err := logger.New("riskctl", "development", true)
		if err != nil {
			return nil, fmt.Errorf("create logger: %w", err)
		}
		log = l
	}

	fixture, err := graph.LoadFixtureFile(opts.fixture)
	if err != nil {
		return nil, err
	}

	store := graph.NewMemoryStore()
	analyzer := graph.NewAnalyzer(store, &cfg.Graph, log)
	if err := analyzer.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	if err := analyzer.LoadFixture(ctx, fixture); err != nil {
		return nil, fmt.Errorf("load fixture %s: %w", opts.fixture, err)
	}
	return &engine{
		graph:     analyzer,
		portfolio: microrel.NewAnalyzer(store, &cfg.MicroRel, log),
	}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newCentralityCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "centrality",
		Short: "Rank entities by network centrality",
		Args:  cobra.NoArgs,
		RunE: runE(opts, func(ctx context.Context, e *engine, _ []string) (any, error) {
			return e.graph.CalculateCentrality(ctx, limit), nil
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of entities to return")
	return cmd
}

func newContagionCmd(opts *rootOptions) *cobra.Command {
	var maxHops int
	cmd := &cobra.Command{
		Use:   "contagion <entity-id>",
		Short: "List contagion paths from a seed entity",
		Args:  cobra.ExactArgs(1),
		RunE: runE(opts, func(ctx context.Context, e *engine, args []string) (any, error) {
			return e.graph.FindContagionPaths(ctx, args[0], maxHops), nil
		}),
	}
	cmd.Flags().IntVar(&maxHops, "max-hops", 0, "maximum path length (0 uses the configured default)")
	return cmd
}

func newStressCmd(opts *rootOptions) *cobra.Command {
	var (
		shock     string
		magnitude float64
		targets   []string
	)
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Simulate a shock propagating from target entities",
		Args:  cobra.NoArgs,
		RunE: runE(opts, func(ctx context.Context, e *engine, _ []string) (any, error) {
			return e.graph.SimulateRiskPropagation(ctx, graph.StressScenario{
				ShockType:      graph.ShockType(strings.ToUpper(shock)),
				Magnitude:      magnitude,
				TargetEntities: targets,
			})
		}),
	}
	cmd.Flags().StringVar(&shock, "shock", string(graph.ShockCreditDefault), "shock type")
	cmd.Flags().Float64Var(&magnitude, "magnitude", 5, "shock magnitude between 1 and 10")
	cmd.Flags().StringSliceVar(&targets, "targets", nil, "comma separated target entity ids")
	return cmd
}

func newPortfolioCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "portfolio [institution-id]",
		Short: "Report portfolio concentration for one or all institutions",
		Args:  cobra.MaximumNArgs(1),
		RunE: runE(opts, func(ctx context.Context, e *engine, args []string) (any, error) {
			if len(args) == 0 {
				return e.portfolio.AllPortfolioConcentrations(ctx), nil
			}
			return e.portfolio.PortfolioConcentration(ctx, args[0])
		}),
	}
}
