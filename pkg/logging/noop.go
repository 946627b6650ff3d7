package logging

import "context"

type noopLogger struct{}

// NewNoop returns a logger that discards all entries.
func NewNoop() Logger {
	return noopLogger{}
}

func (noopLogger) Debug(context.Context, string, ...Field) {}
func (noopLogger) Info(context.Context, string, ...Field)  {}
func (noopLogger) Warn(context.Context, string, ...Field)  {}
func (noopLogger) Error(context.Context, string, ...Field) {}
func (n noopLogger) With(...Field) Logger                  { return n }
