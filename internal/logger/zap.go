package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the structured logger.
type Options struct {
	// Level is a zap level name; LOG_LEVEL overrides it when set.
	Level string
	// File, when set, receives a copy of every entry with rotation.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

var encoderConfig = zapcore.EncoderConfig{
	MessageKey:     "M",
	LevelKey:       "L",
	TimeKey:        "T",
	NameKey:        "N",
	CallerKey:      zapcore.OmitKey,
	FunctionKey:    zapcore.OmitKey,
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    zapcore.CapitalLevelEncoder,
	EncodeTime:     zapcore.ISO8601TimeEncoder,
	EncodeDuration: zapcore.StringDurationEncoder,
	EncodeCaller:   zapcore.ShortCallerEncoder,
}

// New builds a console logger on stderr, teed to a rotating file if
// opts.File is set.
func New(opts Options) (*zap.SugaredLogger, error) {
	levelName := opts.Level
	if env, ok := os.LookupEnv("LOG_LEVEL"); ok {
		levelName = env
	}
	if levelName == "" {
		levelName = "INFO"
	}
	level, err := zap.ParseAtomicLevel(strings.ToLower(levelName))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", levelName, err)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stderr), level),
	}
	if opts.File != "" {
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 100
		}
		writer := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSize,
			MaxBackups: opts.MaxBackups,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(writer), level))
	}
	return zap.New(zapcore.NewTee(cores...)).Sugar(), nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
