package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"portfolioanalytics/internal/exporter"
	"portfolioanalytics/internal/services"
)

func (h *Handler) initRiskCommands(root *cobra.Command) {
	riskCmd := &cobra.Command{
		Use:   "risk",
		Short: "Value at Risk, drawdown and correlation of return series",
		Example: `  portfolio-cli risk --series "0.01,-0.02,0.015;0.005,0.01,-0.03" --labels AAPL,MSFT
  portfolio-cli risk --series "0.01,-0.02,0.015" --confidence 0.99 --simulations 10000`,
		Args: cobra.NoArgs,
		RunE: h.RiskCmd,
	}
	riskCmd.Flags().String("series", "", "return series: values separated by ',' and series by ';'")
	riskCmd.Flags().String("labels", "", "comma separated series labels")
	riskCmd.Flags().Float64("confidence", 0, "VaR confidence level (default from config)")
	riskCmd.Flags().Int("simulations", 0, "Monte Carlo draws (default from config)")
	_ = riskCmd.MarkFlagRequired("series")
	root.AddCommand(riskCmd)
}

// RiskCmd prints the VaR, drawdown and correlation tables
func (h *Handler) RiskCmd(cmd *cobra.Command, _ []string) error {
	series, err := matrixFlag(cmd, "series")
	if err != nil {
		return err
	}
	labelsRaw, _ := cmd.Flags().GetString("labels")
	confidence, _ := cmd.Flags().GetFloat64("confidence")
	simulations, _ := cmd.Flags().GetInt("simulations")

	var labels []string
	if labelsRaw != "" {
		for _, l := range strings.Split(labelsRaw, ",") {
			labels = append(labels, strings.TrimSpace(l))
		}
	}

	result, err := h.riskService().Analyse(cmd.Context(), services.RiskRequest{
		Series:      series,
		Labels:      labels,
		Confidence:  confidence,
		Simulations: simulations,
	})
	if err != nil {
		return err
	}
	return h.emit(result, riskMarkdown(result))
}

func riskMarkdown(r *services.RiskAnalysis) string {
	varRows := make([][]string, 0, len(r.Series))
	ddRows := make([][]string, 0, len(r.Series))
	for _, s := range r.Series {
		varRows = append(varRows, []string{
			s.Label,
			pct(s.Historical.ValueAtRisk),
			pct(s.Parametric.ValueAtRisk),
			pct(s.MonteCarlo.ValueAtRisk),
		})
		if s.Drawdown != nil {
			ddRows = append(ddRows, []string{
				s.Label,
				pct(s.Drawdown.MaxDrawdown),
				orNA(s.Drawdown.StartDate),
				orNA(s.Drawdown.EndDate),
				orNA(s.Drawdown.RecoveryDate),
			})
		}
	}

	sections := []exporter.Section{
		section(fmt.Sprintf("Value at Risk (%s confidence, %d simulations)", pct(r.Confidence), r.Simulations),
			[]string{"Series", "Historical", "Parametric", "Monte Carlo"}, varRows),
		section("Maximum drawdown",
			[]string{"Series", "Drawdown", "Peak", "Trough", "Recovery"}, ddRows),
	}

	if r.Correlation != nil {
		headers := append([]string{""}, r.Correlation.Instruments...)
		rows := make([][]string, len(r.Correlation.Matrix))
		for i, row := range r.Correlation.Matrix {
			cells := []string{r.Correlation.Instruments[i]}
			for _, v := range row {
				cells = append(cells, fixed(v, 4))
			}
			rows[i] = cells
		}
		sections = append(sections, section("Correlation", headers, rows))
	}
	return exporter.JoinSections(sections...)
}

func pct(f float64) string {
	return exporter.Percent(&f)
}
