package fusefs

import "github.com/sirupsen/logrus"

// engineLog is the logger the lock engine traces its operations through.
// It defaults to logrus's standard logger, matching the debug!/warn!
// call sites in the lock engine this package was modeled on; embedders
// that want the engine's trace folded into their own logger should call
// SetLogger during setup, before any lock traffic starts.
var engineLog logrus.FieldLogger = logrus.StandardLogger()

// SetLogger redirects the lock engine's internal trace logging. Passing
// nil restores the package default (logrus's standard logger).
func SetLogger(l logrus.FieldLogger) {
	if l == nil {
		l = logrus.StandardLogger()
	}
	engineLog = l
}
