package notify

import (
	"context"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// LogNotifier logs notifications instead of sending them. It is used when no
// SMTP host is configured.
type LogNotifier struct {
	logger *otelzap.Logger
}

func NewLogNotifier(logger *otelzap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(ctx context.Context, n OrderNotification) error {
	l.logger.Ctx(ctx).Info("Order notification",
		zap.String("order_id", n.OrderID),
		zap.String("subject", n.Subject()),
		zap.String("body", n.Body()),
	)
	return nil
}

var _ Notifier = (*LogNotifier)(nil)
