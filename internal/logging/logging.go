// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"strings"

	nested "github.com/antonfisher/nested-logrus-formatter"
	log "github.com/sirupsen/logrus"
)

// Setup sets the logrus level, formatter and output. verbose forces at
// least debug level regardless of level. An empty level means "info".
func Setup(level string, verbose bool, w io.Writer) error {
	lvl := log.InfoLevel
	if strings.TrimSpace(level) != "" {
		parsed, err := log.ParseLevel(level)
		if err != nil {
			return err
		}
		lvl = parsed
	}
	if verbose && lvl < log.DebugLevel {
		lvl = log.DebugLevel
	}

	log.SetLevel(lvl)
	log.SetOutput(w)
	log.SetFormatter(&nested.Formatter{
		HideKeys:        true,
		FieldsOrder:     []string{"component"},
		TimestampFormat: "15:04:05",
		NoColors:        !isTerminal(w),
	})
	return nil
}
