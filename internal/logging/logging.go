package logging

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Setup configures the process-wide logrus logger. Production gets JSON
// lines for log shipping; everything else keeps the readable text format.
func Setup(level, environment string) {
	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = logrus.InfoLevel
		logrus.WithField("log_level", level).Warn("Unknown log level, falling back to info")
	}
	logrus.SetLevel(parsed)

	if strings.ToLower(environment) == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}
