package logging

import (
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const runIDField = "run_id"

// New builds a logger writing to stderr. format is "text" or "json".
func New(level, format string) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, errors.Wrap(err, "logging: level")
	}
	log.SetLevel(parsed)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	default:
		return nil, errors.Errorf("logging: unsupported format %q", format)
	}
	return log, nil
}

// WithRun tags every entry of one command invocation with a fresh run ID.
func WithRun(log logrus.FieldLogger, command string) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		runIDField: uuid.NewString(),
		"command":  command,
	})
}
