// Package events defines the frames sent on the /ws analysis feed.
package events

// Event types
const (
	TypeConnection        = "connection"
	TypeAnalysisCompleted = "analysis.completed"
	TypeAnalysisFailed    = "analysis.failed"
	TypeCatalogUpdated    = "catalog.updated"
)

// Message is one JSON frame. Timestamp is RFC 3339 in UTC.
type Message struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

// ConnectionData is the payload of the connection frame sent on register
type ConnectionData struct {
	ClientID string `json:"client_id"`
	Status   string `json:"status"`
}

// AnalysisData is the payload of analysis.* and catalog.updated frames
type AnalysisData struct {
	Kind    string `json:"kind"`
	Subject string `json:"subject"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}
