package infra

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger constructs the root zerolog.Logger shared by the api and worker
// binaries. Production emits JSON on stdout at info level; development
// switches to the console writer at debug level.
func NewLogger(appEnv string) zerolog.Logger {
	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Logger()

	if appEnv == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	return logger
}

// Logger aliases zerolog.Logger so the handler and service packages depend
// on one logging surface instead of importing the third-party module
// everywhere. Worker goroutines derive child loggers from it with their own
// fields.
type Logger = zerolog.Logger
