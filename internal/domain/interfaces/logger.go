// Package interfaces defines core domain contracts.
//
//nolint:revive // Package name 'interfaces' is intentional for domain layer
package interfaces

// Logger is the structured diagnostic sink shared by every layer.
// Reports go to stdout; everything a Logger writes goes to the error stream.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With returns a Logger that adds fields to every message
	With(fields ...Field) Logger
}

// Field is one key/value pair attached to a log message
type Field struct {
	Key   string
	Value any
}

// F creates a new Field
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// PathField tags a message with the file under analysis
func PathField(path string) Field {
	return Field{Key: "path", Value: path}
}

// ErrField tags a message with the error that caused it
func ErrField(err error) Field {
	return Field{Key: "error", Value: err}
}

// NoOpLogger discards everything
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(_ string, _ ...Field) {}
func (n *NoOpLogger) Info(_ string, _ ...Field) {}
func (n *NoOpLogger) Warn(_ string, _ ...Field) {}
func (n *NoOpLogger) Error(_ string, _ ...Field) {}

// With returns n itself
func (n *NoOpLogger) With(_ ...Field) Logger { return n }

// OrNoOp returns l, or a NoOpLogger when l is nil
func OrNoOp(l Logger) Logger {
	if l == nil {
		return &NoOpLogger{}
	}
	return l
}
