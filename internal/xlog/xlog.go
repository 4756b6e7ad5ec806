// Package xlog provides the process-wide structured logger. Every
// subsystem obtains a component-scoped entry via For(name) so every log
// line carries a "component" field alongside whatever call-site fields the
// caller adds.
package xlog

import (
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	once sync.Once
	root *logrus.Logger
)

// EnvLevel is the environment variable consulted for the default log
// level; explicit calls to SetLevel override it for the lifetime of the
// process.
const EnvLevel = "MIRROR_LOG_LEVEL"

func base() *logrus.Logger {
	once.Do(func() {
		root = logrus.New()
		root.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		level := logrus.InfoLevel
		if v := strings.TrimSpace(os.Getenv(EnvLevel)); v != "" {
			if parsed, err := logrus.ParseLevel(v); err == nil {
				level = parsed
			}
		}
		root.SetLevel(level)
	})
	return root
}

// SetLevel overrides the process-wide log level, e.g. from a CLI flag.
func SetLevel(level logrus.Level) { base().SetLevel(level) }

// For returns a logger entry scoped to the named component.
func For(component string) *logrus.Entry {
	return base().WithField("component", component)
}
