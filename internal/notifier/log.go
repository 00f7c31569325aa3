package notifier

import "github.com/cesargomez89/fetchpay/internal/logger"

// Log is a notifier that only writes to the log. It is used when no
// callback URL is configured, so workers can still run end to end.
type Log struct {
	log *logger.Logger
}

func NewLog(log *logger.Logger) *Log {
	if log == nil {
		log = logger.Default()
	}
	return &Log{log: log.WithComponent("notifier")}
}

func (l *Log) UpdatePosition(target string, position int) error {
	l.log.Info("Queue position", "target", target, "position", position)
	return nil
}

func (l *Log) ReportStatus(target, text string) error {
	l.log.Info("Status", "target", target, "text", text)
	return nil
}

func (l *Log) DeliverArtifact(target, path, displayName string) error {
	l.log.Info("Artifact ready", "target", target, "path", path, "name", displayName)
	return nil
}
