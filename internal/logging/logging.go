// Package logging builds the service logger from configuration.
package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls logger construction.
type Options struct {
	Level       string // debug, info, warn, error
	Development bool   // console encoder with colors when true
}

var levelRef struct {
	once  sync.Once
	level zap.AtomicLevel
}

// atomicLevel is shared so SetLevel can retune a running logger.
func atomicLevel() zap.AtomicLevel {
	levelRef.once.Do(func() {
		levelRef.level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	})
	return levelRef.level
}

// New constructs a zap logger honoring the configured level.
func New(opts Options) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", opts.Level, err)
	}

	al := atomicLevel()
	al.SetLevel(lvl)

	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = al

	logger, err := cfg.Build(zap.AddCaller())
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// SetLevel retunes the level of every logger built by New.
// Invalid levels are ignored so a bad config edit cannot kill logging.
func SetLevel(level string) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return
	}
	atomicLevel().SetLevel(lvl)
}
