package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// До Init пишем в никуда, чтобы тесты пакетов не требовали инициализации.
var InfoLogger, FatalLogger = zap.NewNop(), zap.NewNop()

var (
	serviceName = "default"
)

func SetServiceName(newName string) string {
	oldName := serviceName
	serviceName = newName

	return oldName
}

// Init собирает production-логгер с заданным уровнем.
func Init(level, service string) error {
	cfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Sampling = nil

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("logger.Init: %w", err)
	}
	InfoLogger = l
	FatalLogger = l
	SetServiceName(service)
	return nil
}

// L отдаёт zap.Logger с полем service, для fxevent и прочих потребителей.
func L() *zap.Logger {
	return InfoLogger.WithOptions(zap.AddCallerSkip(-1)).With(zap.String("service", serviceName))
}

func Sync() {
	_ = InfoLogger.Sync()
}

func Debug(format string, args ...interface{}) {
	InfoLogger.With(
		zap.String("service", serviceName),
	).Debug(fmt.Sprintf(format, args...))
}

func Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	InfoLogger.With(
		zap.String("service", serviceName),
	).Info(msg)
}

func Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	InfoLogger.With(
		zap.String("service", serviceName),
	).Warn(msg)
}

func Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	InfoLogger.With(
		zap.String("service", serviceName),
	).Error(msg)
}

func Fatal(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	FatalLogger.With(
		zap.String("service", serviceName),
	).Fatal(msg)
}
