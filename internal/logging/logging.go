// Package logging configures the process-wide logrus logger.
//
// Components log through the standard logger with a component field:
//
//	log.WithField("component", "bridge").Warnf("dropping envelope: %v", err)
package logging

import (
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/hydro-controller/internal/config"
)

// Setup applies cfg to the standard logger.
func Setup(cfg config.LoggingConfig) {
	Configure(log.StandardLogger(), cfg)
}

// Configure applies cfg to l.
func Configure(l *log.Logger, cfg config.LoggingConfig) {
	l.SetOutput(output(cfg.Output))
	l.SetLevel(parseLevel(cfg.Level))

	switch strings.ToLower(cfg.Format) {
	case "json":
		l.SetFormatter(&log.JSONFormatter{})
	default:
		l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func output(name string) io.Writer {
	if strings.ToLower(name) == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}

// parseLevel defaults to info when the name is unrecognised.
func parseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
