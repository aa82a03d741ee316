package main

type LogLevel int

const (
	LogLevelNone  LogLevel = 0
	LogLevelError LogLevel = 1
	LogLevelWarn  LogLevel = 2
	LogLevelInfo  LogLevel = 3
	LogLevelDebug LogLevel = 4
)

// Options carries the command line settings. Device and Redis
// values override the config file when non-empty.
type Options struct {
	LogLevel        LogLevel
	ConfigPath      string
	RedisServerAddr string
	RedisServerPort uint16
	Device          string
}
