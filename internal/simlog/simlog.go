// Package simlog wires the scheduler's and script host's diagnostics
// (kernel.Logger) onto logiface, a generic fluent leveled logging facade,
// backed by stumpy as the concrete JSON encoder/writer.
package simlog

import (
	"io"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"

	"github.com/joeycumines/go-desim/kernel"
)

// Logger adapts a logiface.Logger[*stumpy.Event] to kernel.Logger.
type Logger struct {
	l *logiface.Logger[*stumpy.Event]
}

var _ kernel.Logger = (*Logger)(nil)

// New returns a Logger writing newline-delimited JSON to w. A nil w
// defaults to os.Stderr, matching stumpy's own default.
func New(w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{
		l: stumpy.L.New(
			stumpy.L.WithStumpy(),
			stumpy.L.WithWriter(logiface.WriterFunc[*stumpy.Event](func(e *stumpy.Event) error {
				_, err := w.Write(append(e.Bytes(), '\n'))
				return err
			})),
		),
	}
}

func fields(b *logiface.Builder[*stumpy.Event], f map[string]any) *logiface.Builder[*stumpy.Event] {
	for k, v := range f {
		b = b.Any(k, v)
	}
	return b
}

func (l *Logger) Debug(msg string, f map[string]any) {
	fields(l.l.Debug(), f).Log(msg)
}

func (l *Logger) Info(msg string, f map[string]any) {
	fields(l.l.Info(), f).Log(msg)
}

func (l *Logger) Warn(msg string, f map[string]any) {
	fields(l.l.Warning(), f).Log(msg)
}

func (l *Logger) Error(msg string, f map[string]any) {
	fields(l.l.Err(), f).Log(msg)
}
