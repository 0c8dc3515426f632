package core

// Logger is any leveled logger.
// args may hold errors, extra data (map[string]interface{}) and the signed-in Operator.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Operator identifies the signed-in person using the application.
type Operator struct {
	ID    string
	Email string
}

type nopLogger struct{}

// NopLogger discards everything.
func NopLogger() Logger { return nopLogger{} }

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}
