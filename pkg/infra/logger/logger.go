package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the process-wide logrus logger. Level comes from
// LOG_LEVEL, output format from LOG_FORMAT (json by default).
func NewLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)

	switch os.Getenv("LOG_FORMAT") {
	case "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	return l
}
