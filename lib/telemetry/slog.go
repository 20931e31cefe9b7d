package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// InitSlog installs the default logger. Info and debug records go to stdout,
// warnings and errors go to stderr.
func InitSlog(verbose bool) {
	slog.SetDefault(slog.New(NewSplitHandler(os.Stdout, os.Stderr, verbose)))
}

// SplitHandler routes records below slog.LevelWarn to one writer and the
// rest to another.
type SplitHandler struct {
	info    slog.Handler
	problem slog.Handler
}

func NewSplitHandler(info, problem io.Writer, verbose bool) SplitHandler {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	return SplitHandler{
		info:    slog.NewTextHandler(info, opts),
		problem: slog.NewTextHandler(problem, opts),
	}
}

func (h SplitHandler) pick(level slog.Level) slog.Handler {
	if level >= slog.LevelWarn {
		return h.problem
	}
	return h.info
}

func (h SplitHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.pick(level).Enabled(ctx, level)
}

func (h SplitHandler) Handle(ctx context.Context, record slog.Record) error {
	return h.pick(record.Level).Handle(ctx, record)
}

func (h SplitHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return SplitHandler{
		info:    h.info.WithAttrs(attrs),
		problem: h.problem.WithAttrs(attrs),
	}
}

func (h SplitHandler) WithGroup(name string) slog.Handler {
	return SplitHandler{
		info:    h.info.WithGroup(name),
		problem: h.problem.WithGroup(name),
	}
}
