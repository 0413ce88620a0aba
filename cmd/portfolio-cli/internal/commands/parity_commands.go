package commands

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"portfolioanalytics/internal/exporter"
	"portfolioanalytics/internal/shared/sanitize"
	"portfolioanalytics/internal/validation"
)

// DefaultParityTickers are analysed when parity gets no arguments
var DefaultParityTickers = []string{"AAPL", "MSFT"}

// volatile fields differ between runs and are never compared
var volatileFields = map[string]bool{"analysed_at": true}

// Difference is one mismatch between a baseline and a fresh run
type Difference struct {
	Path     string `json:"path"`
	Baseline any    `json:"baseline"`
	Current  any    `json:"current"`
}

func (h *Handler) initParityCommands(root *cobra.Command) {
	parityCmd := &cobra.Command{
		Use:   "parity [TICKER...]",
		Short: "Run equity analyses and compare them with a baseline",
		Long: `parity analyses the tickers (AAPL and MSFT by default) and writes the
results as JSON. With --baseline the numeric fields are compared with a
previous run and the command fails when any differs by more than the
tolerance.`,
		Example: `  portfolio-cli parity --out baseline.json
  portfolio-cli parity AAPL MSFT --baseline baseline.json --tolerance 1e-6`,
		RunE: h.ParityCmd,
	}
	parityCmd.Flags().String("baseline", "", "baseline JSON from a previous run")
	parityCmd.Flags().String("out", "", "write the results to this file instead of stdout")
	parityCmd.Flags().Float64("tolerance", 1e-6, "relative tolerance for numeric fields")
	root.AddCommand(parityCmd)
}

// ParityCmd writes the analysis JSON and checks it against the baseline
func (h *Handler) ParityCmd(cmd *cobra.Command, args []string) error {
	baselinePath, _ := cmd.Flags().GetString("baseline")
	outPath, _ := cmd.Flags().GetString("out")
	tolerance, _ := cmd.Flags().GetFloat64("tolerance")

	tickers := args
	if len(tickers) == 0 {
		tickers = DefaultParityTickers
	}

	svc, closer, err := h.equityService()
	if err != nil {
		return err
	}
	defer closer()

	results, err := svc.AnalyseMany(cmd.Context(), tickers)
	if err != nil {
		return err
	}
	payload, err := json.MarshalIndent(sanitize.ToSerializable(results), "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	files := validation.NewFileValidator(h.logger)
	if baselinePath != "" {
		if err := files.ValidateFile(baselinePath); err != nil {
			return err
		}
	}

	if outPath != "" {
		if err := files.ValidateOutputDirectory(filepath.Dir(outPath)); err != nil {
			return err
		}
		if err := os.WriteFile(outPath, append(payload, '\n'), 0644); err != nil {
			return fmt.Errorf("write results: %w", err)
		}
	} else if _, err := fmt.Fprintln(h.out, string(payload)); err != nil {
		return err
	}

	if baselinePath == "" {
		return nil
	}
	raw, err := os.ReadFile(baselinePath)
	if err != nil {
		return fmt.Errorf("read baseline: %w", err)
	}
	var baseline, current any
	if err := json.Unmarshal(raw, &baseline); err != nil {
		return fmt.Errorf("parse baseline: %w", err)
	}
	if err := json.Unmarshal(payload, &current); err != nil {
		return fmt.Errorf("decode results: %w", err)
	}

	diffs := CompareResults(baseline, current, tolerance)
	if len(diffs) == 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "parity ok: %d tickers match %s\n", len(tickers), baselinePath)
		return nil
	}

	rows := make([][]string, len(diffs))
	for i, d := range diffs {
		rows[i] = []string{d.Path, fmt.Sprint(d.Baseline), fmt.Sprint(d.Current)}
	}
	fmt.Fprint(cmd.ErrOrStderr(), exporter.JoinSections(
		section("Parity differences", []string{"Field", "Baseline", "Current"}, rows)))
	return fmt.Errorf("parity check failed: %d differences", len(diffs))
}

// CompareResults walks two decoded JSON documents. Numbers match when
// they differ by at most tolerance relative to the larger magnitude (or
// absolutely below 1); other values must be equal.
func CompareResults(baseline, current any, tolerance float64) []Difference {
	var diffs []Difference
	compareValue("", baseline, current, tolerance, &diffs)
	return diffs
}

func compareValue(path string, a, b any, tol float64, diffs *[]Difference) {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok {
			*diffs = append(*diffs, Difference{Path: path, Baseline: a, Current: b})
			return
		}
		for _, k := range unionKeys(av, bv) {
			if volatileFields[k] {
				continue
			}
			compareValue(joinPath(path, k), av[k], bv[k], tol, diffs)
		}
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			*diffs = append(*diffs, Difference{Path: path, Baseline: lenOf(a), Current: lenOf(b)})
			return
		}
		for i := range av {
			compareValue(fmt.Sprintf("%s[%d]", path, i), av[i], bv[i], tol, diffs)
		}
	case float64:
		bv, ok := b.(float64)
		if !ok || !closeEnough(av, bv, tol) {
			*diffs = append(*diffs, Difference{Path: path, Baseline: a, Current: b})
		}
	default:
		if a != b {
			*diffs = append(*diffs, Difference{Path: path, Baseline: a, Current: b})
		}
	}
}

func closeEnough(a, b, tol float64) bool {
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= tol*scale
}

func unionKeys(a, b map[string]any) []string {
	seen := make(map[string]bool, len(a)+len(b))
	for k := range a {
		seen[k] = true
	}
	for k := range b {
		seen[k] = true
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func lenOf(v any) string {
	if s, ok := v.([]any); ok {
		return fmt.Sprintf("%d items", len(s))
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
