package kernel

// Logger is the ambient logging sink the Scheduler forwards script log()
// calls and kernel diagnostics through. internal/simlog provides the
// concrete logiface/stumpy-backed implementation; tests may supply a
// recording fake.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// NopLogger discards everything. It is the Kernel's default so callers
// that don't care about logging don't have to supply one.
type NopLogger struct{}

func (NopLogger) Debug(string, map[string]any) {}
func (NopLogger) Info(string, map[string]any)  {}
func (NopLogger) Warn(string, map[string]any)  {}
func (NopLogger) Error(string, map[string]any) {}
