/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"os"
	"strings"
	"sync"

	"github.com/spf13/cast"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger = zap.SugaredLogger

type namedLogger struct {
	level  zap.AtomicLevel
	logger *zap.SugaredLogger
}

var (
	loggerRegistryMu sync.RWMutex
	loggerRegistry   = map[string]*namedLogger{}
	defaultLevel     = ParseLogLevel(EnvDefaultString("LOG_LEVEL", "debug"))
	consoleLogFormat = EnvDefaultString("CONSOLE_LOG_FORMAT", "text")
	logDisabled      = EnvDefaultBool("LOG_DISABLED", false)
)

// ConfigureConsoleLogFormat switches loggers created afterwards between
// "json" and human readable "text" output.
func ConfigureConsoleLogFormat(format string) {
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		consoleLogFormat = "json"
	} else {
		consoleLogFormat = "text"
	}
}

// ParseLogLevel maps a level name to a zap level, falling back to debug.
func ParseLogLevel(s string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zapcore.DebugLevel
	}
	return lvl
}

// NewLogger returns the logger registered under name, creating it on first use.
func NewLogger(name string) *Logger {
	loggerRegistryMu.RLock()
	nl, ok := loggerRegistry[name]
	loggerRegistryMu.RUnlock()
	if ok {
		return nl.logger
	}

	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	if nl, ok = loggerRegistry[name]; ok {
		return nl.logger
	}

	level := zap.NewAtomicLevelAt(defaultLevel)
	var base *zap.Logger
	if logDisabled {
		base = zap.NewNop()
	} else {
		core := zapcore.NewCore(newEncoder(consoleLogFormat), zapcore.Lock(os.Stdout), level)
		base = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	}

	nl = &namedLogger{level: level, logger: base.Named(name).Sugar()}
	loggerRegistry[name] = nl
	return nl.logger
}

func newEncoder(format string) zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		NameKey:        "logger",
		TimeKey:        "time",
		CallerKey:      "caller",
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000"),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if format == "json" {
		cfg.EncodeTime = zapcore.RFC3339TimeEncoder
		return zapcore.NewJSONEncoder(cfg)
	}
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

// SetLoggerLevel changes the level of a registered logger. It reports false
// when no logger is registered under name.
func SetLoggerLevel(name string, lvlStr string) bool {
	loggerRegistryMu.RLock()
	defer loggerRegistryMu.RUnlock()
	nl, ok := loggerRegistry[name]
	if !ok {
		return false
	}
	nl.level.SetLevel(ParseLogLevel(lvlStr))
	return true
}

// SetAllLoggersLevel changes the level of every registered logger and of
// loggers created later.
func SetAllLoggersLevel(lvl zapcore.Level) {
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	defaultLevel = lvl
	for _, nl := range loggerRegistry {
		nl.level.SetLevel(lvl)
	}
}

// LoggerLevel returns the current level of a registered logger.
func LoggerLevel(name string) (zapcore.Level, bool) {
	loggerRegistryMu.RLock()
	defer loggerRegistryMu.RUnlock()
	nl, ok := loggerRegistry[name]
	if !ok {
		return defaultLevel, false
	}
	return nl.level.Level(), true
}

func EnvDefaultString(key string, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func EnvDefaultBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := cast.ToBoolE(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}
