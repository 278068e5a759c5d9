package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	color "git.handmade.network/hmn/sassproc/src/ansicolor"
	"git.handmade.network/hmn/sassproc/src/oops"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() {
	zerolog.ErrorStackMarshaler = oops.ZerologStackMarshaler
	log.Logger = log.Output(NewPrettyZerologWriter(os.Stderr))
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// SetLevel parses a level name ("debug", "info", ...) and applies it globally.
func SetLevel(name string) error {
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return oops.New(err, "invalid log level")
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	return nil
}

func GlobalLogger() *zerolog.Logger {
	return &log.Logger
}

type ctxKey struct{}

func AttachLoggerToContext(logger *zerolog.Logger, ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// ExtractLogger returns the logger attached to ctx, or the global logger.
func ExtractLogger(ctx context.Context) *zerolog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*zerolog.Logger); ok {
		return logger
	}
	return GlobalLogger()
}

func Trace() *zerolog.Event {
	return log.Trace().Timestamp().Stack()
}

func Debug() *zerolog.Event {
	return log.Debug().Timestamp().Stack()
}

func Info() *zerolog.Event {
	return log.Info().Timestamp().Stack()
}

func Warn() *zerolog.Event {
	return log.Warn().Timestamp().Stack()
}

func Error() *zerolog.Event {
	return log.Error().Timestamp().Stack()
}

func Panic() *zerolog.Event {
	return log.Panic().Timestamp().Stack()
}

func Fatal() *zerolog.Event {
	return log.Fatal().Timestamp().Stack()
}

func With() zerolog.Context {
	return log.With().Stack()
}

var levelColors = map[string]string{
	"trace": color.Gray,
	"debug": color.Gray,
	"info":  color.BgBlue,
	"warn":  color.BgYellow,
	"error": color.BgRed,
	"fatal": color.BgRed,
	"panic": color.BgRed,
}

// NewPrettyZerologWriter renders events for a terminal: one line per event, with any
// error stack listed frame by frame below it.
func NewPrettyZerologWriter(out io.Writer) zerolog.ConsoleWriter {
	wd, _ := os.Getwd()
	return zerolog.ConsoleWriter{
		Out:           out,
		NoColor:       color.Reset == "",
		TimeFormat:    time.RFC3339,
		FieldsExclude: []string{zerolog.ErrorStackFieldName},
		FormatLevel: func(i interface{}) string {
			level, _ := i.(string)
			return levelColors[level] + color.Bold + strings.ToUpper(level) + ":" + color.Reset
		},
		FormatExtra: func(evt map[string]interface{}, buf *bytes.Buffer) error {
			frames, ok := evt[zerolog.ErrorStackFieldName].([]interface{})
			if !ok || len(frames) == 0 {
				return nil
			}
			buf.WriteString("\n  " + color.Bold + color.Blue + "Stack trace:" + color.Reset)
			for _, f := range frames {
				frame, ok := f.(map[string]interface{})
				if !ok {
					continue
				}
				file := strings.Replace(fmt.Sprint(frame["file"]), wd, ".", 1)
				fmt.Fprintf(buf, "\n    %v (%s:%v)", frame["function"], file, frame["line"])
			}
			return nil
		},
	}
}

func LogPanics(logger *zerolog.Logger) {
	if r := recover(); r != nil {
		LogPanicValue(logger, r, "recovered from panic")
	}
}

func LogPanicValue(logger *zerolog.Logger, val interface{}, msg string) {
	if logger == nil {
		logger = GlobalLogger()
	}

	if err, ok := val.(error); ok {
		l := logger.Error().Err(err)
		if _, ok := err.(*oops.Error); !ok {
			l = l.Interface(zerolog.ErrorStackFieldName, oops.Trace())
		}
		l.Msg(msg)
	} else {
		logger.Error().
			Interface("recovered", val).
			Interface(zerolog.ErrorStackFieldName, oops.Trace()).
			Msg(msg)
	}
}
