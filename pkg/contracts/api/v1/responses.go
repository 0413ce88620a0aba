package api

// ResultsResponse wraps batch analysis results, one per requested instrument
type ResultsResponse struct {
	Results any `json:"results"`
}

// ResultResponse wraps a single analysis result
type ResultResponse struct {
	Result any `json:"result"`
}

// ErrorResponse is the plain error body of the portfolio endpoint
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the liveness body served at /health
type HealthResponse struct {
	Status string `json:"status"`
}
