package logging

import (
	"context"
	"sync"
)

// LoggerFactory replaces the logrus-backed default returned by NewLogger,
// for example to route provider and pipeline logs into a host application.
type LoggerFactory interface {
	CreateLogger(ctx context.Context) Logger
}

// LoggerFactoryFunc adapts a plain function to LoggerFactory.
type LoggerFactoryFunc func(ctx context.Context) Logger

func (f LoggerFactoryFunc) CreateLogger(ctx context.Context) Logger {
	return f(ctx)
}

var (
	loggerFactoryMu sync.RWMutex
	loggerFactory   LoggerFactory
)

// SetLoggerFactory installs factory process-wide. Nil restores the default.
func SetLoggerFactory(factory LoggerFactory) {
	loggerFactoryMu.Lock()
	defer loggerFactoryMu.Unlock()
	loggerFactory = factory
}

func GetLoggerFactory() LoggerFactory {
	loggerFactoryMu.RLock()
	defer loggerFactoryMu.RUnlock()
	return loggerFactory
}
