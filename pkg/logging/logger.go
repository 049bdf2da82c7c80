package logging

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

type Logger interface {
	Debug(args ...any)
	Debugf(format string, args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
}

type Fields = logrus.Fields

type fieldsKey struct{}

var (
	baseLoggerMu sync.RWMutex
	baseLogger   = logrus.New()
)

// Configure sets the process-wide level and output format ("json" or "text").
func Configure(level string, format string) error {
	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return err
	}

	logger := logrus.New()
	logger.SetLevel(parsed)
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	baseLoggerMu.Lock()
	defer baseLoggerMu.Unlock()
	baseLogger = logger
	return nil
}

// SetOutput redirects the base logger, mostly for tests.
func SetOutput(w io.Writer) {
	baseLoggerMu.RLock()
	defer baseLoggerMu.RUnlock()
	baseLogger.SetOutput(w)
}

// WithFields returns a context whose loggers carry the given fields in addition
// to any already attached.
func WithFields(ctx context.Context, fields Fields) context.Context {
	merged := Fields{}
	for k, v := range fieldsFromContext(ctx) {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return context.WithValue(ctx, fieldsKey{}, merged)
}

func fieldsFromContext(ctx context.Context) Fields {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsKey{}).(Fields)
	return fields
}

type logrusLogger struct {
	entry *logrus.Entry
}

func (l *logrusLogger) Debug(args ...any) {
	l.entry.Debug(args...)
}

func (l *logrusLogger) Debugf(format string, args ...any) {
	l.entry.Debugf(format, args...)
}

func (l *logrusLogger) Info(args ...any) {
	l.entry.Info(args...)
}

func (l *logrusLogger) Infof(format string, args ...any) {
	l.entry.Infof(format, args...)
}

func (l *logrusLogger) Error(args ...any) {
	l.entry.Error(args...)
}

func (l *logrusLogger) Errorf(format string, args ...any) {
	l.entry.Errorf(format, args...)
}

func (l *logrusLogger) Warn(args ...any) {
	l.entry.Warn(args...)
}

func (l *logrusLogger) Warnf(format string, args ...any) {
	l.entry.Warnf(format, args...)
}

func (l *logrusLogger) Fatal(args ...any) {
	l.entry.Fatal(args...)
}

func (l *logrusLogger) Fatalf(format string, args ...any) {
	l.entry.Fatalf(format, args...)
}

func NewLogger(ctx context.Context) Logger {
	factory := GetLoggerFactory()
	if factory != nil {
		return factory.CreateLogger(ctx)
	}

	return newLogrusLogger(ctx)
}

func newLogrusLogger(ctx context.Context) Logger {
	if ctx == nil {
		ctx = context.Background()
	}

	baseLoggerMu.RLock()
	logger := baseLogger
	baseLoggerMu.RUnlock()

	entry := logger.WithContext(ctx)
	if fields := fieldsFromContext(ctx); len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	return &logrusLogger{entry: entry}
}
