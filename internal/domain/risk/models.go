package risk

// VaR estimation methods
const (
	MethodHistorical  = "historical"
	MethodParametric  = "parametric"
	MethodMonteCarlo  = "monte_carlo"
	DefaultConfidence = 0.95
)

// VaRResult is a Value at Risk estimate expressed as a positive loss fraction
type VaRResult struct {
	ConfidenceLevel float64 `json:"confidence_level"`
	ValueAtRisk     float64 `json:"value_at_risk"`
	Method          string  `json:"method"`
	Horizon         int     `json:"horizon"`
}

// DrawdownStats describes the worst peak-to-trough decline of a return series.
// Dates are rendered as YYYY-MM-DD when the series is dated and as the
// observation index otherwise.
type DrawdownStats struct {
	MaxDrawdown  float64 `json:"max_drawdown"`
	StartDate    *string `json:"start_date"`
	EndDate      *string `json:"end_date"`
	RecoveryDate *string `json:"recovery_date"`
}

// CorrelationMatrix is a labelled Pearson correlation matrix
type CorrelationMatrix struct {
	Instruments []string    `json:"instruments"`
	Matrix      [][]float64 `json:"matrix"`
}
