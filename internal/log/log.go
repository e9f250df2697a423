// Package log sets up the single logrus logger shared across himalia's
// packages. Every subsystem logs through this instance instead of reaching
// for fmt.Println or the stdlib log package directly.
package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

// L is the process-wide logger. cmd/himalia may reconfigure its level/output
// before starting the node; library code should only ever call its methods,
// never replace the variable.
var L = newLogger()

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetLevel(logrus.InfoLevel)
	return logger
}

// SetLevel parses and applies a level name, keeping the current level (and
// logging a warning) on a bad name.
func SetLevel(name string) {
	lvl, err := logrus.ParseLevel(name)
	if err != nil {
		L.Warnf("unknown log level %q, keeping %s", name, L.GetLevel())
		return
	}
	L.SetLevel(lvl)
}
