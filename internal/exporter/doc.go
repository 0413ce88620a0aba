// Package exporter turns analysis results into documents.
//
// Reports are written as Markdown and rendered to a standalone HTML page
// with goldmark. The same page can be printed to PDF through a headless
// Chrome driven by chromedp. Tabular results are exported as XLSX workbooks
// (excelize) or CSV files.
//
// Example usage:
//
//	page, err := exporter.RenderHTML("Equity Analysis Report: AAPL", markdown)
//	pdf, err := exporter.NewPDFRenderer(cfg.Reports.ChromePath, 0, logger).Render(ctx, page)
//	xlsx, err := exporter.Workbook(exporter.Sheet{Name: "Equities", Headers: headers, Rows: rows})
package exporter
