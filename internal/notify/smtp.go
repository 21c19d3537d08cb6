package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// SMTPConfig holds the mail transport settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	Timeout  time.Duration
}

// SMTPNotifier sends notifications through an authenticated SMTP relay.
type SMTPNotifier struct {
	config SMTPConfig
	client *mail.Client
	logger *otelzap.Logger
}

// NewSMTPNotifier creates a notifier. The connection is opened per message.
func NewSMTPNotifier(cfg SMTPConfig, logger *otelzap.Logger) (*SMTPNotifier, error) {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating SMTP client: %w", err)
	}
	return &SMTPNotifier{config: cfg, client: client, logger: logger}, nil
}

// Recipients returns the configured recipients followed by the sender, which
// keeps a copy of every notification.
func (s *SMTPNotifier) Recipients() []string {
	seen := make(map[string]bool, len(s.config.To)+1)
	var out []string
	for _, addr := range append(append([]string(nil), s.config.To...), s.config.From) {
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, addr)
	}
	return out
}

// Message builds the mail for n.
func (s *SMTPNotifier) Message(n OrderNotification) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.config.From); err != nil {
		return nil, fmt.Errorf("%w: sender %q: %w", ErrNotification, s.config.From, err)
	}
	if err := m.To(s.Recipients()...); err != nil {
		return nil, fmt.Errorf("%w: recipients: %w", ErrNotification, err)
	}
	m.Subject(n.Subject())
	m.SetBodyString(mail.TypeTextPlain, n.Body())
	return m, nil
}

func (s *SMTPNotifier) Notify(ctx context.Context, n OrderNotification) error {
	m, err := s.Message(n)
	if err != nil {
		return err
	}
	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		s.logger.Ctx(ctx).Error("Failed to send order notification",
			zap.String("order_id", n.OrderID),
			zap.String("smtp_host", s.config.Host),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrNotification, err)
	}

	s.logger.Ctx(ctx).Info("Order notification sent",
		zap.String("order_id", n.OrderID),
		zap.Int("recipients", len(s.Recipients())),
	)
	return nil
}

var _ Notifier = (*SMTPNotifier)(nil)
