package config

import (
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// SetupLogging points the standard logrus logger at w with the given level.
//
// w is stderr in every command: stdout carries the MCP protocol in serve mode.
func SetupLogging(w io.Writer, level string) error {
	if level == "" {
		level = DefaultLogLevel
	}
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("%w: log level %q", ErrInvalidConfig, level)
	}
	log.SetOutput(w)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetLevel(lvl)
	return nil
}
