package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"portfolioanalytics/internal/domain/portfolio"
	"portfolioanalytics/internal/exporter"
	"portfolioanalytics/internal/services"
)

func (h *Handler) initPortfolioCommands(root *cobra.Command) {
	optimiseCmd := &cobra.Command{
		Use:     "optimise",
		Aliases: []string{"optimize"},
		Short:   "Maximum Sharpe ratio weights",
		Example: `  portfolio-cli optimise --returns 0.08,0.12 --cov "0.04,0.006;0.006,0.09" --symbols AAPL,MSFT`,
		Args:    cobra.NoArgs,
		RunE:    h.OptimiseCmd,
	}
	optimiseCmd.Flags().String("returns", "", "expected annual returns, comma separated")
	optimiseCmd.Flags().String("cov", "", "covariance matrix: rows separated by ';'")
	optimiseCmd.Flags().String("symbols", "", "asset labels, comma separated")
	optimiseCmd.Flags().Float64("rf", 0, "risk free rate (default from config)")
	optimiseCmd.Flags().Float64("lower", 0, "minimum weight per asset")
	optimiseCmd.Flags().Float64("upper", 1, "maximum weight per asset")
	optimiseCmd.Flags().Int("samples", 0, "random portfolios to sample for the frontier")
	_ = optimiseCmd.MarkFlagRequired("returns")
	_ = optimiseCmd.MarkFlagRequired("cov")
	root.AddCommand(optimiseCmd)

	simulateCmd := &cobra.Command{
		Use:     "simulate",
		Short:   "Monte Carlo simulation of compounded portfolio returns",
		Example: `  portfolio-cli simulate --weights 0.5,0.5 --returns 0.0004,0.0006 --cov "0.0001,0;0,0.0002" --horizon 252`,
		Args:    cobra.NoArgs,
		RunE:    h.SimulateCmd,
	}
	simulateCmd.Flags().String("weights", "", "portfolio weights, comma separated")
	simulateCmd.Flags().String("returns", "", "expected per-period returns, comma separated")
	simulateCmd.Flags().String("cov", "", "per-period covariance matrix: rows separated by ';'")
	simulateCmd.Flags().Int("horizon", portfolio.DefaultHorizon, "periods per path")
	simulateCmd.Flags().Int("paths", portfolio.DefaultSimulations, "number of paths")
	simulateCmd.Flags().Uint64("seed", 0, "random seed (default from config)")
	_ = simulateCmd.MarkFlagRequired("weights")
	_ = simulateCmd.MarkFlagRequired("returns")
	_ = simulateCmd.MarkFlagRequired("cov")
	root.AddCommand(simulateCmd)

	rebalanceCmd := &cobra.Command{
		Use:     "rebalance",
		Short:   "Trades that move current weights toward the target",
		Example: "  portfolio-cli rebalance --current 0.6,0.4 --target 0.5,0.5 --threshold 0.02",
		Args:    cobra.NoArgs,
		RunE:    h.RebalanceCmd,
	}
	rebalanceCmd.Flags().String("current", "", "current weights, comma separated")
	rebalanceCmd.Flags().String("target", "", "target weights, comma separated")
	rebalanceCmd.Flags().Float64("threshold", 0, "ignore drifts smaller than this")
	_ = rebalanceCmd.MarkFlagRequired("current")
	_ = rebalanceCmd.MarkFlagRequired("target")
	root.AddCommand(rebalanceCmd)
}

// OptimiseCmd solves the tangency portfolio
func (h *Handler) OptimiseCmd(cmd *cobra.Command, _ []string) error {
	mu, err := floatFlag(cmd, "returns")
	if err != nil {
		return err
	}
	cov, err := matrixFlag(cmd, "cov")
	if err != nil {
		return err
	}
	symbolsRaw, _ := cmd.Flags().GetString("symbols")
	lower, _ := cmd.Flags().GetFloat64("lower")
	upper, _ := cmd.Flags().GetFloat64("upper")
	samples, _ := cmd.Flags().GetInt("samples")

	req := services.OptimisationRequest{
		ExpectedReturns: mu,
		Covariance:      cov,
		LowerBound:      lower,
		UpperBound:      upper,
		Samples:         samples,
	}
	if symbolsRaw != "" {
		for _, s := range strings.Split(symbolsRaw, ",") {
			req.Symbols = append(req.Symbols, strings.ToUpper(strings.TrimSpace(s)))
		}
	}
	if cmd.Flags().Changed("rf") {
		rf, _ := cmd.Flags().GetFloat64("rf")
		req.RiskFreeRate = &rf
	}

	result, err := h.portfolioService().Optimise(cmd.Context(), req)
	if err != nil {
		return err
	}
	return h.emit(result, optimiseMarkdown(result))
}

func optimiseMarkdown(r *services.OptimisationResult) string {
	rows := make([][]string, len(r.Weights))
	for i, w := range r.Weights {
		label := fmt.Sprintf("asset_%d", i)
		if i < len(r.Symbols) {
			label = r.Symbols[i]
		}
		rows[i] = []string{label, pct(w), pct(r.CappedReturns[i])}
	}
	summary := [][]string{
		{"Expected return", pct(r.ExpectedReturn)},
		{"Volatility", pct(r.Volatility)},
		{"Sharpe ratio", exporter.Ratio(r.Sharpe)},
		{"Risk free rate", pct(r.RiskFreeRate)},
	}
	sections := []exporter.Section{
		section("Weights", []string{"Asset", "Weight", "Capped return"}, rows),
		section("Portfolio", []string{"Measure", "Value"}, summary),
	}
	if len(r.Frontier) > 0 {
		best := r.Frontier[0]
		for _, p := range r.Frontier[1:] {
			if p.Sharpe > best.Sharpe {
				best = p
			}
		}
		sections = append(sections, section(fmt.Sprintf("Best of %d random portfolios", len(r.Frontier)),
			[]string{"Return", "Volatility", "Sharpe", "Weights"},
			[][]string{{pct(best.Return), pct(best.Volatility), fixed(best.Sharpe, 2), joinFloats(best.Weights, 4)}}))
	}
	return exporter.JoinSections(sections...)
}

// SimulateCmd summarises simulated terminal returns
func (h *Handler) SimulateCmd(cmd *cobra.Command, _ []string) error {
	weights, err := floatFlag(cmd, "weights")
	if err != nil {
		return err
	}
	mu, err := floatFlag(cmd, "returns")
	if err != nil {
		return err
	}
	cov, err := matrixFlag(cmd, "cov")
	if err != nil {
		return err
	}
	horizon, _ := cmd.Flags().GetInt("horizon")
	paths, _ := cmd.Flags().GetInt("paths")

	req := services.SimulationRequest{
		Weights:         weights,
		ExpectedReturns: mu,
		Covariance:      cov,
		Horizon:         horizon,
		Paths:           paths,
	}
	if cmd.Flags().Changed("seed") {
		seed, _ := cmd.Flags().GetUint64("seed")
		req.Seed = &seed
	}

	summary, err := h.portfolioService().Simulate(cmd.Context(), req)
	if err != nil {
		return err
	}
	rows := [][]string{
		{"Paths", fmt.Sprintf("%d", summary.Paths)},
		{"Horizon", fmt.Sprintf("%d", horizon)},
		{"Mean", pct(summary.Mean)},
		{"Standard deviation", pct(summary.StdDev)},
		{"5th percentile", pct(summary.Percentile5)},
		{"Median", pct(summary.Percentile50)},
		{"95th percentile", pct(summary.Percentile95)},
	}
	return h.emit(summary, exporter.JoinSections(
		section("Simulated cumulative return", []string{"Statistic", "Value"}, rows)))
}

// RebalanceCmd lists the trades and resulting weights
func (h *Handler) RebalanceCmd(cmd *cobra.Command, _ []string) error {
	current, err := floatFlag(cmd, "current")
	if err != nil {
		return err
	}
	target, err := floatFlag(cmd, "target")
	if err != nil {
		return err
	}
	threshold, _ := cmd.Flags().GetFloat64("threshold")

	result, err := h.portfolioService().Rebalance(cmd.Context(), services.RebalanceRequest{
		Current:   current,
		Target:    target,
		Threshold: threshold,
	})
	if err != nil {
		return err
	}

	rows := make([][]string, len(result.Trades))
	for i := range result.Trades {
		rows[i] = []string{
			fmt.Sprintf("asset_%d", i),
			pct(current[i]),
			pct(target[i]),
			pct(result.Trades[i]),
			pct(result.NewWeights[i]),
		}
	}
	return h.emit(result, exporter.JoinSections(
		section("Rebalance", []string{"Asset", "Current", "Target", "Trade", "New weight"}, rows),
		section("Summary", []string{"Measure", "Value"}, [][]string{{"Turnover", pct(result.Turnover)}}),
	))
}
