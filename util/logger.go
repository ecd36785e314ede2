package util

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	appLogger     zerolog.Logger
	appLoggerOnce sync.Once
)

// Logger returns the process-wide diagnostic logger. Production emits JSON;
// any other APPENV gets the console writer.
func Logger() *zerolog.Logger {
	appLoggerOnce.Do(func() {
		var out io.Writer = os.Stdout
		if os.Getenv("APPENV") != "production" {
			out = zerolog.ConsoleWriter{Out: os.Stdout}
		}
		appLogger = zerolog.New(out).With().Timestamp().Logger()
		if os.Getenv("APPENV") == "test" {
			appLogger = appLogger.Level(zerolog.WarnLevel)
		}
	})
	return &appLogger
}

// SetLoggerForTest swaps the diagnostic logger, e.g. for one writing to a buffer.
func SetLoggerForTest(l zerolog.Logger) {
	appLoggerOnce.Do(func() {})
	appLogger = l
}
