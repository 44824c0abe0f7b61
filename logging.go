package offlinecache

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
	// Log file to use in addition to the console. Rotated by size.
	File       string `yaml:"file" env:"FILE"`
	MaxSize    int    `yaml:"maxSize" env:"MAX_SIZE"`
	MaxBackups int    `yaml:"maxBackups" env:"MAX_BACKUPS"`
	Compress   bool   `yaml:"compress" env:"COMPRESS"`
}

// NewLogger creates a logger writing to the console and, if configured,
// to a rotated log file.
func NewLogger(config LogConfig, console io.Writer) (zerolog.Logger, error) {
	level := zerolog.DebugLevel
	if config.Level != "" {
		l, err := zerolog.ParseLevel(config.Level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("parse log level: %w", err)
		}
		level = l
	}

	logOutputs := []io.Writer{zerolog.ConsoleWriter{Out: console}}
	if config.File != "" {
		logOutputs = append(logOutputs, &lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			Compress:   config.Compress,
			LocalTime:  true,
		})
	}
	return zerolog.New(zerolog.MultiLevelWriter(logOutputs...)).
		Level(level).
		With().Timestamp().Logger(), nil
}
