package sender

import (
	"io"

	log "github.com/sirupsen/logrus"
)

// discardLogger is the default logger used when no WithLogger option
// is given: it matches logrus's normal API but produces no output.
func discardLogger() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}
