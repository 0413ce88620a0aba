package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"portfolioanalytics/internal/exporter"
	"portfolioanalytics/internal/services"
	"portfolioanalytics/internal/validation"
)

func (h *Handler) initEquityCommands(root *cobra.Command) {
	equityCmd := &cobra.Command{
		Use:     "equity TICKER...",
		Short:   "Analyse equities and optionally export a report",
		Example: "  portfolio-cli equity AAPL MSFT --report xlsx --out ./reports",
		Args:    cobra.MinimumNArgs(1),
		RunE:    h.EquityCmd,
	}
	equityCmd.Flags().String("report", "", "export format: html, xlsx, pdf or csv")
	equityCmd.Flags().String("out", "", "report directory (default from config)")
	root.AddCommand(equityCmd)
}

// EquityCmd analyses every ticker, prints the summary table and writes the
// requested report for the successful analyses
func (h *Handler) EquityCmd(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("report")
	outDir, _ := cmd.Flags().GetString("out")
	if outDir == "" {
		outDir = h.cfg.Reports.Dir
	}

	svc, closer, err := h.equityService()
	if err != nil {
		return err
	}
	defer closer()

	results, err := svc.AnalyseMany(cmd.Context(), args)
	if err != nil {
		return err
	}
	if err := h.emit(results, equityMarkdown(results)); err != nil {
		return err
	}

	if format == "" {
		return nil
	}
	var analyses []*services.EquityAnalysis
	for _, r := range results {
		if r.EquityAnalysis != nil {
			analyses = append(analyses, r.EquityAnalysis)
		}
	}
	if len(analyses) == 0 {
		return fmt.Errorf("no successful analysis to report")
	}

	path, err := h.writeEquityReport(cmd, format, outDir, analyses)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "report written to %s\n", path)
	return nil
}

func (h *Handler) writeEquityReport(cmd *cobra.Command, format, outDir string, analyses []*services.EquityAnalysis) (string, error) {
	var pdf services.PDFPrinter
	if format == services.FormatPDF {
		pdf = exporter.NewPDFRenderer(h.cfg.Reports.ChromePath, exporter.DefaultPDFTimeout, h.logger)
	}
	reports := services.NewReportService(pdf, h.cfg.Reports.Currency, nil, h.logger)

	report, err := reports.RenderEquity(cmd.Context(), format, analyses...)
	if err != nil {
		return "", err
	}
	path := filepath.Join(outDir, report.Filename)
	if err := validation.NewFileValidator(h.logger).ValidateReportPath(path); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, report.Body, 0644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

func equityMarkdown(results []services.EquityResult) string {
	rows := make([][]string, 0, len(results))
	var failures [][]string
	for _, r := range results {
		if r.EquityAnalysis == nil {
			failures = append(failures, []string{r.Ticker, r.Error})
			continue
		}
		a := r.EquityAnalysis
		rows = append(rows, []string{
			r.Ticker,
			orEmpty(a.Fundamentals.Equity.Sector),
			exporter.Percent(a.Fundamentals.RevenueCAGR),
			exporter.Percent(a.Fundamentals.NetMargin),
			exporter.Ratio(a.Ratios.PE),
			exporter.Ratio(a.Valuation.ExpectedPE),
			exporter.Percent(a.Valuation.ValuationDifference),
			orEmpty(a.Valuation.Status),
		})
	}

	sections := []exporter.Section{
		section("Equity analysis",
			[]string{"Ticker", "Sector", "Revenue CAGR", "Net margin", "P/E", "Expected P/E", "Difference", "Status"},
			rows),
	}
	if len(failures) > 0 {
		sections = append(sections, section("Failed", []string{"Ticker", "Error"}, failures))
	}
	return exporter.JoinSections(sections...)
}

func orEmpty(s string) string {
	return orNA(&s)
}
