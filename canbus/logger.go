package canbus

// Logger is the logging surface the bus links and their consumers
// need. The application injects its leveled logger.
type Logger interface {
	Printf(format string, v ...interface{})
	Debug(format string, v ...interface{})
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
	DebugCAN(direction string, id uint32, data []byte, length uint8)
}

// NopLogger discards everything. Useful default for tests.
type NopLogger struct{}

func (NopLogger) Printf(format string, v ...interface{})                         {}
func (NopLogger) Debug(format string, v ...interface{})                          {}
func (NopLogger) Info(format string, v ...interface{})                           {}
func (NopLogger) Warn(format string, v ...interface{})                           {}
func (NopLogger) Error(format string, v ...interface{})                          {}
func (NopLogger) DebugCAN(direction string, id uint32, data []byte, length uint8) {}
