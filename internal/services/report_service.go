package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"portfolioanalytics/internal/exporter"
	apperrors "portfolioanalytics/internal/errors"
	"portfolioanalytics/internal/infrastructure"
)

// Report formats
const (
	FormatHTML = "html"
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
	FormatCSV  = "csv"
)

// Content types of rendered reports
const (
	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF  = "application/pdf"
	ContentTypeCSV  = "text/csv; charset=utf-8"
)

// PDFPrinter turns an HTML document into PDF bytes
type PDFPrinter interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

// Report is a rendered document
type Report struct {
	ID          string `json:"id"`
	Format      string `json:"format"`
	ContentType string `json:"content_type"`
	Filename    string `json:"filename"`
	Body        []byte `json:"-"`
}

// ReportService renders analyses as HTML, XLSX, CSV or PDF documents
type ReportService struct {
	pdf      PDFPrinter
	currency string
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger
}

// NewReportService creates the service. A nil printer disables PDF output.
func NewReportService(pdf PDFPrinter, currency string, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	if currency == "" {
		currency = "USD"
	}
	return &ReportService{
		pdf:      pdf,
		currency: currency,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "report_service")),
	}
}

// EquityReport renders the Summary, Fundamentals and Valuation sections of
// an analysis as an HTML page
func (s *ReportService) EquityReport(a *EquityAnalysis) (string, error) {
	if a == nil {
		return "", apperrors.NewDataValidationError("equity analysis is required")
	}
	eq := a.Fundamentals.Equity
	symbol := a.Ticker
	if symbol == "" {
		symbol = eq.Symbol
	}

	marketCap := exporter.NotAvailable
	if eq.MarketCap != nil {
		marketCap = exporter.Money(*eq.MarketCap, s.currency)
	}
	summary := exporter.MarkdownTable([]string{"Field", "Value"}, [][]string{
		{"Company", orNA(eq.Name)},
		{"Ticker", symbol},
		{"Sector", orNA(eq.Sector)},
		{"Industry", orNA(eq.Industry)},
		{"Market cap", marketCap},
		{"Size", orNA(eq.MarketCapBucket())},
		{"Analysed at", a.AnalysedAt.UTC().Format(time.RFC3339)},
	})

	f := a.Fundamentals
	fundamentals := exporter.MarkdownTable([]string{"Metric", "Value"}, [][]string{
		{"Revenue CAGR", exporter.Percent(f.RevenueCAGR)},
		{"Net Margin", exporter.Percent(f.NetMargin)},
		{"Operating Margin", exporter.Percent(f.OperatingMargin)},
		{"CFO/NI", exporter.Ratio(f.CFOToNI)},
		{"Leverage", exporter.Ratio(f.LeverageRatio)},
		{"Lifecycle", orNA(f.Lifecycle)},
	})

	r := a.Ratios
	ratios := exporter.MarkdownTable([]string{"Ratio", "Value"}, [][]string{
		{"P/E", exporter.Ratio(r.PE)},
		{"P/B", exporter.Ratio(r.PB)},
		{"P/S", exporter.Ratio(r.PS)},
		{"EV/EBITDA", exporter.Ratio(r.EVToEBITDA)},
		{"FCF Yield", exporter.Percent(r.FCFYield)},
		{"ROE", exporter.Percent(r.ROE)},
		{"ROA", exporter.Percent(r.ROA)},
		{"Quality (CFO/NI)", exporter.Ratio(r.Quality)},
	})

	v := a.Valuation
	valuation := exporter.MarkdownTable([]string{"Metric", "Value"}, [][]string{
		{"Actual P/E", exporter.Ratio(v.ActualPE)},
		{"Expected P/E", exporter.Ratio(v.ExpectedPE)},
		{"Difference", exporter.Ratio(v.ValuationDifference)},
		{"Status", orNA(v.Status)},
	})

	body := exporter.JoinSections(
		exporter.Section{Title: "Summary", Body: summary},
		exporter.Section{Title: "Fundamentals", Body: fundamentals},
		exporter.Section{Title: "Ratios", Body: ratios},
		exporter.Section{Title: "Valuation", Body: valuation},
	)
	return exporter.RenderHTML("Equity Analysis Report: "+symbol, body)
}

// PortfolioReport renders holdings, weights and risk metrics as HTML
func (s *ReportService) PortfolioReport(a *PortfolioAnalysis) (string, error) {
	if a == nil {
		return "", apperrors.NewDataValidationError("portfolio analysis is required")
	}

	holdings := make([][]string, len(a.Portfolio.Holdings))
	for i, h := range a.Portfolio.Holdings {
		w := 0.0
		if i < len(a.Weights) {
			w = a.Weights[i]
		}
		holdings[i] = []string{h.Instrument.Symbol, fmt.Sprintf("%g", h.Quantity), exporter.Percent(&w)}
	}

	riskRows := [][]string{
		{"Total value", fmt.Sprintf("%g", a.TotalValue)},
		{"VaR (95%, 1 day)", exporter.Percent(a.VaR95)},
		{"Max drawdown", exporter.Percent(a.MaxDrawdown)},
		{"Drawdown start", deref(a.DrawdownStart)},
		{"Drawdown end", deref(a.DrawdownEnd)},
		{"Recovery", deref(a.DrawdownRecovery)},
	}

	sections := []exporter.Section{
		{Title: "Holdings", Body: exporter.MarkdownTable([]string{"Instrument", "Quantity", "Weight"}, holdings)},
		{Title: "Risk", Body: exporter.MarkdownTable([]string{"Metric", "Value"}, riskRows)},
	}
	if a.Error != "" {
		sections = append(sections, exporter.Section{Title: "Warnings", Body: a.Error})
	}
	if len(a.CorrelationMatrix) > 0 {
		symbols := a.Portfolio.Symbols()
		rows := make([][]string, len(a.CorrelationMatrix))
		for i, row := range a.CorrelationMatrix {
			rows[i] = append([]string{symbols[i]}, formatRow(row)...)
		}
		sections = append(sections, exporter.Section{
			Title: "Correlation",
			Body:  exporter.MarkdownTable(append([]string{""}, symbols...), rows),
		})
	}
	return exporter.RenderHTML("Portfolio Analysis Report", exporter.JoinSections(sections...))
}

// EquitySheet lays analyses out as one row per ticker
func (s *ReportService) EquitySheet(analyses []*EquityAnalysis) exporter.Sheet {
	sheet := exporter.Sheet{
		Name: "Equities",
		Headers: []string{
			"Ticker", "Name", "Sector", "Market Cap", "Lifecycle",
			"Revenue CAGR", "Net Margin", "Operating Margin", "CFO/NI", "Leverage",
			"P/E", "P/B", "P/S", "EV/EBITDA", "FCF Yield", "ROE", "ROA",
			"Expected P/E", "Valuation Difference", "Status",
		},
	}
	for _, a := range analyses {
		if a == nil {
			continue
		}
		f, r, v := a.Fundamentals, a.Ratios, a.Valuation
		sheet.Rows = append(sheet.Rows, []any{
			a.Ticker, f.Equity.Name, f.Equity.Sector, exporter.Cell(f.Equity.MarketCap), f.Lifecycle,
			exporter.Cell(f.RevenueCAGR), exporter.Cell(f.NetMargin), exporter.Cell(f.OperatingMargin),
			exporter.Cell(f.CFOToNI), exporter.Cell(f.LeverageRatio),
			exporter.Cell(r.PE), exporter.Cell(r.PB), exporter.Cell(r.PS), exporter.Cell(r.EVToEBITDA),
			exporter.Cell(r.FCFYield), exporter.Cell(r.ROE), exporter.Cell(r.ROA),
			exporter.Cell(v.ExpectedPE), exporter.Cell(v.ValuationDifference), v.Status,
		})
	}
	return sheet
}

// EquityWorkbook exports analyses to an XLSX workbook
func (s *ReportService) EquityWorkbook(analyses []*EquityAnalysis) ([]byte, error) {
	return exporter.Workbook(s.EquitySheet(analyses))
}

// PDF prints an HTML document
func (s *ReportService) PDF(ctx context.Context, html string) ([]byte, error) {
	if s.pdf == nil {
		return nil, apperrors.NewAppError(apperrors.ErrTypeUnsupported, "pdf export is not available", ErrPDFUnavailable)
	}
	return s.pdf.Render(ctx, html)
}

// RenderEquity renders analyses in format. HTML and PDF cover the first
// analysis; XLSX and CSV cover all of them.
func (s *ReportService) RenderEquity(ctx context.Context, format string, analyses ...*EquityAnalysis) (report *Report, err error) {
	if len(analyses) == 0 || analyses[0] == nil {
		return nil, apperrors.NewDataValidationError("at least one equity analysis is required")
	}
	start := time.Now()
	defer func() {
		infrastructure.RecordAnalysisMetrics(ctx, s.metrics, KindReport, time.Since(start), err)
	}()

	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatHTML
	}
	name := "equity_" + strings.ToLower(analyses[0].Ticker)
	if len(analyses) > 1 {
		name = "equities"
	}
	report = &Report{ID: uuid.NewString(), Format: format, Filename: name + "." + format}

	switch format {
	case FormatHTML, FormatPDF:
		page, err := s.EquityReport(analyses[0])
		if err != nil {
			return nil, err
		}
		report.ContentType, report.Body = ContentTypeHTML, []byte(page)
		if format == FormatPDF {
			if report.Body, err = s.PDF(ctx, page); err != nil {
				return nil, err
			}
			report.ContentType = ContentTypePDF
		}
	case FormatXLSX:
		if report.Body, err = s.EquityWorkbook(analyses); err != nil {
			return nil, err
		}
		report.ContentType = ContentTypeXLSX
	case FormatCSV:
		sheet := s.EquitySheet(analyses)
		var b strings.Builder
		if err := exporter.EncodeCSV(&b, sheet.Headers, sheet.Records()); err != nil {
			return nil, err
		}
		report.ContentType, report.Body = ContentTypeCSV, []byte(b.String())
	default:
		return nil, apperrors.NewDataValidationError("unsupported report format %q", format)
	}

	s.logger.InfoContext(ctx, "Report rendered",
		slog.String("report_id", report.ID),
		slog.String("format", format),
		slog.Int("bytes", len(report.Body)))
	return report, nil
}

func orNA(s string) string {
	if s == "" {
		return exporter.NotAvailable
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return exporter.NotAvailable
	}
	return *s
}

func formatRow(row []float64) []string {
	out := make([]string, len(row))
	for i := range row {
		out[i] = exporter.Ratio(&row[i])
	}
	return out
}
