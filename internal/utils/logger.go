package utils

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger routes the global logger to an append-only log file. With debug
// enabled, records are also mirrored to stderr in console format.
func InitLogger(debug bool, logFile string) (io.Closer, error) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	var writers []io.Writer
	var closer io.Closer = io.NopCloser(nil)
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, NewConfigError("log file", err)
		}
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        f,
			NoColor:    true,
			TimeFormat: time.RFC3339,
		})
		closer = f
	}
	if debug {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.DateTime,
		})
	}
	if len(writers) == 0 {
		log.Logger = zerolog.Nop()
		return closer, nil
	}
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	return closer, nil
}

func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
