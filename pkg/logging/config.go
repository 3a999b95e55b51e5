package logging

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

const TimeFormat = "2006-01-02 15:04:05"

type ProcessName string

const (
	GatewayProcess ProcessName = "dbproxy"
	ClientProcess  ProcessName = "dbproxy-client"
	TestProcess    ProcessName = "test"
)

type LoggerConfig struct {
	ProcessName   ProcessName
	IsDevelopment bool
	// Level is a zap level name or a RUST_LOG style filter ("info", "dbproxy=debug,hyper=warn").
	// Empty means debug in development and info otherwise.
	Level string
}

func NewDefaultConfig(processName ProcessName) LoggerConfig {
	return LoggerConfig{
		ProcessName:   processName,
		IsDevelopment: true,
	}
}

// ParseLevel resolves a level string. RUST_LOG style directives are accepted and the
// first bare level or the directive matching the process name wins.
func ParseLevel(raw string, processName ProcessName, fallback zapcore.Level) zapcore.Level {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return fallback
	}

	level := fallback
	found := false
	for _, directive := range strings.Split(raw, ",") {
		directive = strings.TrimSpace(directive)
		target, value, scoped := strings.Cut(directive, "=")
		if !scoped {
			value = target
			target = ""
		}
		parsed, ok := levelByName(value)
		if !ok {
			continue
		}
		if scoped && target == strings.ToLower(string(processName)) {
			return parsed
		}
		if !scoped && !found {
			level = parsed
			found = true
		}
	}
	return level
}

func levelByName(name string) (zapcore.Level, bool) {
	switch name {
	case "trace", "debug":
		return zapcore.DebugLevel, true
	case "info":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	case "off", "fatal":
		return zapcore.FatalLevel, true
	}
	return zapcore.InfoLevel, false
}
