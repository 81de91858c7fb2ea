// Package framelog is the ambient structured-logging helper shared by
// the engine's optional diagnostics hooks and cmd/ioframe-dump, grounded
// on leo-pony-model-runner's logrus setup.
package framelog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logrus logger configured the way the CLI and any
// diagnostics hook expect: text output to stderr, level driven by the
// IOFRAME_LOG_LEVEL environment variable (defaulting to info).
func New() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level := logrus.InfoLevel
	if raw := os.Getenv("IOFRAME_LOG_LEVEL"); raw != "" {
		if parsed, err := logrus.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	log.SetLevel(level)
	return log
}

// Entry is a convenience for call sites that just want a *logrus.Entry
// tagged with a component name.
func Entry(component string) *logrus.Entry {
	return New().WithField("component", component)
}
