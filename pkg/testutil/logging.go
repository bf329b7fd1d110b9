package testutil

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logs are discarded unless tests run with -v.
func init() {
	logrus.SetLevel(logrus.TraceLevel)

	for _, arg := range os.Args {
		if arg == "-test.v=true" {
			return
		}
	}
	logrus.SetOutput(io.Discard)
}

// DisableLogging silences the standard logger until the returned func is
// called.
func DisableLogging() (reset func()) {
	logger := logrus.StandardLogger()
	previous := logger.Out
	logger.SetOutput(io.Discard)
	return func() { logger.SetOutput(previous) }
}
