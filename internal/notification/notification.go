package notification

import (
	"context"
	"log/slog"
)

const (
	// KindPINSet acknowledges a PIN accepted by the backend.
	KindPINSet = "pin_set"
	// KindPINConfirmed acknowledges a confirmed PIN.
	KindPINConfirmed = "pin_confirmed"
)

// Message is a user-visible acknowledgment.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers acknowledgments to the user.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, message Message) error

// Send calls f.
func (f NotifierFunc) Send(ctx context.Context, message Message) error { return f(ctx, message) }

// LoggerNotifier writes acknowledgments to the structured logger until a push
// provider is wired in.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send logs the message.
func (n *LoggerNotifier) Send(ctx context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.InfoContext(ctx, "notification",
		slog.String("kind", message.Kind),
		slog.String("destination", message.Destination),
		slog.String("body", message.Body),
	)
	return nil
}
