package deadletter

import (
	"context"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// LogSink writes entries as structured error records.
type LogSink struct {
	logger *otelzap.Logger
}

func NewLogSink(logger *otelzap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(ctx context.Context, entry Entry) error {
	fields := []zap.Field{
		zap.String("dead_letter_id", entry.ID),
		zap.String("order_id", entry.OrderID),
		zap.String("stage", string(entry.Stage)),
		zap.String("error", entry.Error),
		zap.Time("occurred_at", entry.OccurredAt),
	}
	if len(entry.Payload) > 0 {
		fields = append(fields, zap.String("payload", string(entry.Payload)))
	}
	s.logger.Ctx(ctx).Error("Dead letter", fields...)
	return nil
}

var _ Sink = (*LogSink)(nil)
