package services

import (
	"context"
	"log/slog"

	ws "portfolioanalytics/internal/websocket"
	"portfolioanalytics/pkg/contracts/events"
)

// Analysis kinds, used in events and metrics
const (
	KindEquity    = "equity"
	KindBond      = "bond"
	KindPortfolio = "portfolio"
	KindRisk      = "risk"
	KindReport    = "report"
)

// AnalysisEvent is the payload of analysis.completed and analysis.failed
type AnalysisEvent = events.AnalysisData

type notifier struct {
	publisher EventPublisher
	logger    *slog.Logger
}

func (n notifier) completed(ctx context.Context, kind, subject string, result any) {
	n.publish(ctx, ws.TypeAnalysisCompleted, AnalysisEvent{Kind: kind, Subject: subject, Result: result})
}

func (n notifier) failed(ctx context.Context, kind, subject string, err error) {
	n.publish(ctx, ws.TypeAnalysisFailed, AnalysisEvent{Kind: kind, Subject: subject, Error: err.Error()})
}

func (n notifier) catalogUpdated(ctx context.Context, subject string) {
	n.publish(ctx, ws.TypeCatalogUpdated, AnalysisEvent{Kind: KindBond, Subject: subject})
}

func (n notifier) publish(ctx context.Context, eventType string, event AnalysisEvent) {
	if n.publisher == nil {
		return
	}
	if err := n.publisher.Publish(eventType, event); err != nil {
		n.logger.WarnContext(ctx, "failed to publish event",
			slog.String("type", eventType),
			slog.String("subject", event.Subject),
			slog.String("error", err.Error()))
	}
}
