package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap's SugaredLogger.
type Logger struct {
	*zap.SugaredLogger
	level zap.AtomicLevel
}

const defaultZapLevel = zapcore.InfoLevel

// ParseLevel converts a configured level name. Unknown names are an error.
func ParseLevel(s string) (zapcore.Level, error) {
	switch s {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel:
		return zapcore.ParseLevel(s)
	case "":
		return defaultZapLevel, nil
	default:
		return defaultZapLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// SetLevel changes the level of a running logger.
func (l *Logger) SetLevel(s string) error {
	lvl, err := ParseLevel(s)
	if err != nil {
		return err
	}
	l.level.SetLevel(lvl)
	return nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar(), level: zap.NewAtomicLevel()}
}

// newConsoleCore builds a zapcore.Core with a console encoder targeting stdout.
func newConsoleCore(level zap.AtomicLevel) zapcore.Core {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder

	encoder := zapcore.NewConsoleEncoder(cfg)
	ws := zapcore.Lock(os.Stdout)
	return zapcore.NewCore(encoder, ws, level)
}

// newZapLogger falls back to info for an unknown level.
func newZapLogger(levelStr string) *Logger {
	lvl, _ := ParseLevel(levelStr)
	atom := zap.NewAtomicLevelAt(lvl)
	return &Logger{
		SugaredLogger: zap.New(newConsoleCore(atom)).Sugar(),
		level:         atom,
	}
}
