package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"portfolioanalytics/internal/cache"
	"portfolioanalytics/internal/config"
	"portfolioanalytics/internal/datasources"
	"portfolioanalytics/internal/exporter"
	"portfolioanalytics/internal/infrastructure"
	"portfolioanalytics/internal/services"
	"portfolioanalytics/internal/shared/sanitize"
)

// Handler runs the analytics services for the CLI commands and prints
// their results as terminal tables or JSON.
type Handler struct {
	cfg    *config.Config
	out    io.Writer
	logger *slog.Logger

	asJSON bool
	plain  bool

	// equitySource overrides the configured market data provider
	equitySource services.EquitySource
}

// NewHandler creates a handler writing to out
func NewHandler(cfg *config.Config, out io.Writer) *Handler {
	if cfg == nil {
		cfg = config.Default()
	}
	if out == nil {
		out = os.Stdout
	}
	return &Handler{cfg: cfg, out: out, logger: infrastructure.DiscardLogger()}
}

// Register adds the persistent output flags and every command to root
func (h *Handler) Register(root *cobra.Command) {
	root.PersistentFlags().BoolVar(&h.asJSON, "json", false, "print results as JSON")
	root.PersistentFlags().BoolVar(&h.plain, "plain", false, "print tables as raw Markdown")
	verbose := root.PersistentFlags().Bool("verbose", false, "log to stderr")

	root.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		if *verbose {
			settings := h.cfg.Logging
			settings.Format = "plain"
			h.logger = infrastructure.NewLogger(settings, cmd.ErrOrStderr())
		}
	}

	h.initRiskCommands(root)
	h.initEquityCommands(root)
	h.initBondCommands(root)
	h.initPortfolioCommands(root)
	h.initParityCommands(root)
}

func (h *Handler) equityService() (*services.EquityService, func(), error) {
	source := h.equitySource
	closer := func() {}
	if source == nil {
		provider, err := datasources.NewEquityProvider(h.cfg.DataSources, h.logger)
		if err != nil {
			return nil, nil, err
		}
		c, err := cache.New(h.cfg.Cache, h.logger)
		if err != nil {
			return nil, nil, err
		}
		closer = func() { c.Close() }
		source = datasources.NewCached(provider, c, h.cfg.Cache.TTL(), nil, h.logger)
	}
	svc := services.NewEquityService(source, nil, nil, h.logger,
		services.WithEquityConcurrency(h.cfg.Server.AnalysisWorkers))
	return svc, closer, nil
}

func (h *Handler) portfolioService() *services.PortfolioService {
	return services.NewPortfolioService(h.cfg.Analytics, nil, nil, h.logger)
}

func (h *Handler) riskService() *services.RiskService {
	return services.NewRiskService(h.cfg.Analytics, nil, nil, h.logger)
}

// emit prints v as JSON when --json is set and the Markdown document
// otherwise
func (h *Handler) emit(v any, markdown string) error {
	if h.asJSON {
		return h.writeJSON(v)
	}
	return h.render(markdown)
}

func (h *Handler) writeJSON(v any) error {
	enc := json.NewEncoder(h.out)
	enc.SetIndent("", "  ")
	return enc.Encode(sanitize.ToSerializable(v))
}

func (h *Handler) render(markdown string) error {
	if h.plain {
		_, err := io.WriteString(h.out, markdown)
		return err
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return fmt.Errorf("terminal renderer: %w", err)
	}
	styled, err := r.Render(markdown)
	if err != nil {
		return fmt.Errorf("render output: %w", err)
	}
	_, err = io.WriteString(h.out, styled)
	return err
}

func section(title string, headers []string, rows [][]string) exporter.Section {
	return exporter.Section{Title: title, Body: exporter.MarkdownTable(headers, rows)}
}

// parseFloats reads a comma separated list; an empty string is nil
func parseFloats(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", strings.TrimSpace(p))
		}
		out = append(out, f)
	}
	return out, nil
}

// parseMatrix reads rows separated by ';' of comma separated values
func parseMatrix(s string) ([][]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out [][]float64
	for i, row := range strings.Split(s, ";") {
		values, err := parseFloats(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("row %d is empty", i)
		}
		out = append(out, values)
	}
	return out, nil
}

func floatFlag(cmd *cobra.Command, name string) ([]float64, error) {
	raw, err := cmd.Flags().GetString(name)
	if err != nil {
		return nil, err
	}
	values, err := parseFloats(raw)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return values, nil
}

func matrixFlag(cmd *cobra.Command, name string) ([][]float64, error) {
	raw, err := cmd.Flags().GetString(name)
	if err != nil {
		return nil, err
	}
	values, err := parseMatrix(raw)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return values, nil
}

func fixed(f float64, places int) string {
	return strconv.FormatFloat(f, 'f', places, 64)
}

func joinFloats(values []float64, places int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fixed(v, places)
	}
	return strings.Join(parts, ", ")
}

func orNA(s *string) string {
	if s == nil || *s == "" {
		return exporter.NotAvailable
	}
	return *s
}
