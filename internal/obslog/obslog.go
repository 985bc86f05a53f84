// Package obslog centralizes structured logging for every component of
// the hybrid pipeline. It replaces the teacher repo's bare sync.Once
// *log.Logger singleton (internal/utils.GetLogger) with a leveled,
// field-aware logger shared by all packages.
package obslog

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	base     *logrus.Logger
	initOnce sync.Once
)

func root() *logrus.Logger {
	initOnce.Do(func() {
		base = logrus.New()
		base.SetOutput(os.Stdout)
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		base.SetLevel(logrus.InfoLevel)
	})
	return base
}

// SetLevel adjusts the root logger's level (e.g. from config).
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return
	}
	root().SetLevel(lvl)
}

// For returns a logger scoped to a single component, carrying a
// "component" field on every entry.
func For(component string) *logrus.Entry {
	return root().WithField("component", component)
}
