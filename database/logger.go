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

package database

import (
	"sync"

	"github.com/tomoncle/tidbits/utils"
	"go.uber.org/zap"
)

// loggerName is the utils registry entry backing the default logger; its
// level is changed with utils.SetLoggerLevel("DATABASE", ...).
const loggerName = "DATABASE"

var (
	loggerOnce   sync.Once
	globalLogger Logger
)

// Logger is the structured logger used by the database layer. Fields are
// alternating key/value pairs.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// InitLogger installs log as the package logger. It has no effect once a
// logger is in use.
func InitLogger(log Logger) {
	if log == nil {
		return
	}
	loggerOnce.Do(func() { globalLogger = log })
}

// GetLogger returns the package logger, the DATABASE zap logger by default.
func GetLogger() Logger {
	loggerOnce.Do(func() { globalLogger = sugaredLogger{utils.NewLogger(loggerName)} })
	return globalLogger
}

// NewZapLogger adapts an existing zap logger to Logger.
func NewZapLogger(l *zap.Logger) Logger {
	return sugaredLogger{l.Sugar()}
}

type sugaredLogger struct {
	s *zap.SugaredLogger
}

func (l sugaredLogger) Debug(msg string, fields ...interface{}) { l.s.Debugw(msg, fields...) }
func (l sugaredLogger) Info(msg string, fields ...interface{})  { l.s.Infow(msg, fields...) }
func (l sugaredLogger) Warn(msg string, fields ...interface{})  { l.s.Warnw(msg, fields...) }
func (l sugaredLogger) Error(msg string, fields ...interface{}) { l.s.Errorw(msg, fields...) }
