package logx

import (
	"io"
	"os"

	"github.com/dinewise-core/server/internal/core"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var DefaultLoggerOpts = &LoggerOpts{
	Environment: core.Development,
	Service:     "dinewise",
}

type LoggerOpts struct {
	Environment core.Environment
	Service     string
	// Output overrides the destination writer; stdout/console when nil.
	Output io.Writer
}

func safe(otps ...LoggerOpts) *LoggerOpts {
	if len(otps) == 0 {
		return DefaultLoggerOpts
	}
	return &otps[0]
}

func Init(otps ...LoggerOpts) {
	opts := safe(otps...)
	service := opts.Service
	if service == "" {
		service = DefaultLoggerOpts.Service
	}

	if opts.Environment.JSONLogs() {
		out := opts.Output
		if out == nil {
			out = os.Stdout
		}
		log.Logger = zerolog.New(out).With().Timestamp().Str("service", service).Logger().
			Level(zerolog.InfoLevel)
		return
	}

	var out io.Writer = zerolog.NewConsoleWriter()
	if opts.Output != nil {
		out = opts.Output
	}
	log.Logger = zerolog.New(out).With().Timestamp().Caller().Str("service", service).Logger().
		Level(zerolog.DebugLevel)
}

// Thread returns a child logger bound to a conversation thread.
func Thread(threadID string) zerolog.Logger {
	return log.Logger.With().Str("thread_id", threadID).Logger()
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}
