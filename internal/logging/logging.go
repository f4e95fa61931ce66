// Package logging builds the run logger: structured entries appended to
// the log file, mirrored to a human-readable console writer unless the
// run is quiet.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Options controls logger construction.
type Options struct {
	File    string // path of the append-only log file
	Verbose bool   // debug level instead of info
	Quiet   bool   // suppress the console writer entirely
}

// New creates the logger and returns a closer for the underlying file.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("logging: open log file: %w", err)
	}

	writers := []io.Writer{f}
	if !opts.Quiet {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	}

	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}

	log := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().Logger()

	return log, f, nil
}
