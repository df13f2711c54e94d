package voice

import "go.uber.org/zap"

// Severity grades a user-visible notice.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notifier is the fire-and-forget toast sink.
type Notifier interface {
	Notify(title, description string, severity Severity)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(title, description string, severity Severity)

func (f NotifierFunc) Notify(title, description string, severity Severity) {
	f(title, description, severity)
}

// LogNotifier writes notices to the logger. Used when no UI is attached.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Notify(title, description string, severity Severity) {
	logger := n.Logger
	if logger == nil {
		return
	}
	fields := []zap.Field{zap.String("title", title), zap.String("description", description)}
	switch severity {
	case SeverityError:
		logger.Error("voice notice", fields...)
	case SeverityWarning:
		logger.Warn("voice notice", fields...)
	default:
		logger.Info("voice notice", fields...)
	}
}
