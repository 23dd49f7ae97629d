package logging

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	temporallog "go.temporal.io/sdk/log"
)

// New builds the process logger: JSON to stdout at the given level
func New(level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(lvl)
	return logger, nil
}

// TemporalLogger adapts logrus to the Temporal SDK logger interface
type TemporalLogger struct {
	entry *logrus.Entry
}

var _ temporallog.Logger = (*TemporalLogger)(nil)

// NewTemporalLogger wraps logger for use in client.Options
func NewTemporalLogger(logger logrus.FieldLogger) *TemporalLogger {
	return &TemporalLogger{entry: logger.WithField("component", "temporal")}
}

func (l *TemporalLogger) Debug(msg string, keyvals ...interface{}) {
	l.entry.WithFields(fields(keyvals)).Debug(msg)
}

func (l *TemporalLogger) Info(msg string, keyvals ...interface{}) {
	l.entry.WithFields(fields(keyvals)).Info(msg)
}

func (l *TemporalLogger) Warn(msg string, keyvals ...interface{}) {
	l.entry.WithFields(fields(keyvals)).Warn(msg)
}

func (l *TemporalLogger) Error(msg string, keyvals ...interface{}) {
	l.entry.WithFields(fields(keyvals)).Error(msg)
}

// fields pairs up alternating keys and values; a dangling key is kept
func fields(keyvals []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(keyvals)/2+1)
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		if i+1 < len(keyvals) {
			f[key] = keyvals[i+1]
		} else {
			f[key] = "(MISSING)"
		}
	}
	return f
}
