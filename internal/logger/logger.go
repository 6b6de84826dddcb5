package logger

import (
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
)

const serviceName = "plate-service"

// New возвращает консольный логгер в разработке и JSON в production.
func New(env string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	if env == "production" {
		return zerolog.New(os.Stdout).
			Level(zerolog.InfoLevel).
			With().
			Timestamp().
			Str("service", serviceName).
			Logger()
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		Level(zerolog.DebugLevel).
		With().
		Timestamp().
		Logger()
}

// WithSentry отправляет записи уровня error и выше в Sentry.
// При пустом dsn логгер возвращается без изменений.
func WithSentry(log zerolog.Logger, dsn, env string) (zerolog.Logger, func(), error) {
	if dsn == "" {
		return log, func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		ServerName:  serviceName,
	}); err != nil {
		return log, func() {}, fmt.Errorf("failed to init sentry: %w", err)
	}

	flush := func() { sentry.Flush(2 * time.Second) }
	return log.Hook(sentryHook{hub: sentry.CurrentHub()}), flush, nil
}

type sentryHook struct {
	hub *sentry.Hub
}

func (h sentryHook) Run(_ *zerolog.Event, level zerolog.Level, msg string) {
	if level < zerolog.ErrorLevel || h.hub == nil {
		return
	}
	h.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentryLevel(level))
		h.hub.CaptureMessage(msg)
	})
}

func sentryLevel(level zerolog.Level) sentry.Level {
	switch level {
	case zerolog.FatalLevel, zerolog.PanicLevel:
		return sentry.LevelFatal
	default:
		return sentry.LevelError
	}
}
