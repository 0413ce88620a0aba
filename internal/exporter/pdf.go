package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// DefaultPDFTimeout bounds one browser session
const DefaultPDFTimeout = 30 * time.Second

// ErrEmptyDocument is returned when there is nothing to print
var ErrEmptyDocument = errors.New("empty html document")

// PDFRenderer prints HTML pages with a headless Chrome
type PDFRenderer struct {
	chromePath string
	timeout    time.Duration
	logger     *slog.Logger
}

// NewPDFRenderer uses the Chrome binary at chromePath, or the one chromedp
// finds on the system when empty.
func NewPDFRenderer(chromePath string, timeout time.Duration, logger *slog.Logger) *PDFRenderer {
	if timeout <= 0 {
		timeout = DefaultPDFTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFRenderer{
		chromePath: chromePath,
		timeout:    timeout,
		logger:     logger.With(slog.String("component", "pdf_renderer")),
	}
}

// Render loads the document into a blank page and prints it
func (r *PDFRenderer) Render(ctx context.Context, html string) ([]byte, error) {
	if html == "" {
		return nil, ErrEmptyDocument
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", true))
	if r.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.chromePath))
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	start := time.Now()
	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			return err
		}),
	)
	if err != nil {
		r.logger.WarnContext(ctx, "PDF rendering failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}

	r.logger.InfoContext(ctx, "PDF rendered",
		slog.Int("bytes", len(pdf)),
		slog.Duration("duration", time.Since(start)))
	return pdf, nil
}
