package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger builds the logger shared by every subcommand and, under
// `yiyin serve`, by the bot and webhook server. Timestamps carry
// centiseconds so bursts of chat events stay readable.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress times one render or store operation.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg at info level with a "took" field and any extra key/value
// pairs, e.g. `Mirrored cat.png took=42ms direction=left`.
func (p *progress) done(msg string, kv ...any) {
	fields := append([]any{"took", time.Since(p.start).Round(time.Millisecond)}, kv...)
	p.logger.Info(msg, fields...)
}

type loggerKey struct{}

// withLogger attaches l to ctx for the command tree.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFromContext returns the command logger, falling back to
// log.Default() in tests that call run functions directly.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
