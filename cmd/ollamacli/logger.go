package main

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	grey          = "\033[38;5;240m"
	boldLightGrey = "\033[1;38;5;240m"
	red           = "\033[38;5;9m"
	yellow        = "\033[38;5;11m"
	reset         = "\033[0m"
)

// fullLineColorLevelEncoder colours the rest of the log line by level; the
// line ending resets it.
func fullLineColorLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	var color string
	switch l {
	case zapcore.DebugLevel:
		color = grey
	case zapcore.InfoLevel:
		color = boldLightGrey
	case zapcore.WarnLevel:
		color = yellow
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		color = red
	default:
		color = reset
	}
	enc.AppendString(color + l.CapitalString())
}

// logLevel is Warn by default, Info with verbose and Debug with debug.
func logLevel(verbose, debug bool) zapcore.Level {
	switch {
	case debug:
		return zapcore.DebugLevel
	case verbose:
		return zapcore.InfoLevel
	default:
		return zapcore.WarnLevel
	}
}

// NewLogger returns a console logger writing to stderr. Debug logging adds
// the caller of each entry.
func NewLogger(stderr io.Writer, verbose, debug bool) *zap.SugaredLogger {
	if stderr == nil {
		stderr = os.Stderr
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = ""
	encCfg.LevelKey = "L"
	encCfg.NameKey = "N"
	encCfg.FunctionKey = ""
	encCfg.MessageKey = "M"
	encCfg.StacktraceKey = "S"
	encCfg.LineEnding = reset + zapcore.DefaultLineEnding
	encCfg.EncodeDuration = zapcore.StringDurationEncoder
	encCfg.EncodeCaller = zapcore.ShortCallerEncoder
	encCfg.EncodeLevel = fullLineColorLevelEncoder
	encCfg.ConsoleSeparator = " "

	var opts []zap.Option
	if debug {
		encCfg.CallerKey = "C"
		opts = append(opts, zap.AddCaller())
	} else {
		encCfg.CallerKey = ""
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(stderr),
		zap.NewAtomicLevelAt(logLevel(verbose, debug)),
	)
	return zap.New(core, opts...).Sugar()
}
