// Package sinks provides event sink implementations for the hub.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/pricewatch/internal/events"
)

// LogSink emits structured logs for event streams. Useful during
// development or audits where no metrics backend is available.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []events.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("kind", string(evt.Kind)),
			zap.String("scan_id", evt.ScanID),
			zap.String("product_key", evt.ProductKey),
			zap.String("site", string(evt.Site)),
			zap.Float64("price", evt.Price),
			zap.String("reason", evt.Reason),
			zap.Duration("dur", evt.Dur),
			zap.String("note", evt.Note),
		}
		s.logger.Info("pipeline event", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
