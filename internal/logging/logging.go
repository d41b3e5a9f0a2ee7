// Package logging provides structured logging functionality.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string
	Console    bool
	File       bool
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	home, _ := os.UserHomeDir()
	return LogConfig{
		Level:      "info",
		Console:    true,
		File:       true,
		FilePath:   filepath.Join(home, ".config", "robotrader", "logs", "engine.log"),
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     30,
	}
}

// NewLogger creates a new logger with default configuration.
func NewLogger() zerolog.Logger {
	return NewLoggerWithConfig(DefaultLogConfig())
}

// NewLoggerWithConfig creates a new logger with the specified configuration.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	var writers []io.Writer

	if cfg.Console {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
			FormatLevel: func(i interface{}) string {
				if ll, ok := i.(string); ok {
					switch ll {
					case "debug":
						return "\033[36mDBG\033[0m"
					case "info":
						return "\033[32mINF\033[0m"
					case "warn":
						return "\033[33mWRN\033[0m"
					case "error":
						return "\033[31mERR\033[0m"
					default:
						return ll
					}
				}
				return "???"
			},
		}
		writers = append(writers, consoleWriter)
	}

	if cfg.File {
		logDir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(logDir, 0755); err == nil {
			fileWriter := &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			}
			writers = append(writers, fileWriter)
		}
	}

	var writer io.Writer
	if len(writers) == 0 {
		writer = os.Stdout
	} else if len(writers) == 1 {
		writer = writers[0]
	} else {
		writer = zerolog.MultiLevelWriter(writers...)
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	return zerolog.New(writer).
		With().
		Timestamp().
		Caller().
		Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetDebugLevel sets the global log level to debug.
func SetDebugLevel() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

// WithSymbol adds a symbol to the logger context.
func WithSymbol(logger zerolog.Logger, symbol string) zerolog.Logger {
	return logger.With().Str("symbol", symbol).Logger()
}

// LogPattern logs a completed pattern classification.
func LogPattern(logger zerolog.Logger, symbol string, confidence float64, uptrend, decline, support int) {
	logger.Debug().
		Str("event", "pattern").
		Str("symbol", symbol).
		Int("uptrend", uptrend).
		Int("decline", decline).
		Int("support", support).
		Float64("confidence", confidence).
		Msg("Pullback pattern detected")
}

// LogCandidate logs a scored candidate.
func LogCandidate(logger zerolog.Logger, symbol, name string, score int, reason string) {
	logger.Info().
		Str("event", "candidate").
		Str("symbol", symbol).
		Str("name", name).
		Int("score", score).
		Str("reason", reason).
		Msg("Candidate selected")
}

// LogBuySignal logs an executed buy decision with its risk levels.
func LogBuySignal(logger zerolog.Logger, symbol string, entry, stopLoss, takeProfit, confidence float64, quantity int) {
	logger.Info().
		Str("event", "signal").
		Str("symbol", symbol).
		Float64("entry", entry).
		Float64("stop_loss", stopLoss).
		Float64("take_profit", takeProfit).
		Float64("confidence", confidence).
		Int("quantity", quantity).
		Msg("Buy signal executed")
}

// LogSellSignal logs an executed sell decision with its settlement outcome.
func LogSellSignal(logger zerolog.Logger, symbol, reason string, price, profit, profitRate float64) {
	logger.Info().
		Str("event", "signal").
		Str("symbol", symbol).
		Str("reason", reason).
		Float64("price", price).
		Float64("profit", profit).
		Float64("profit_rate", profitRate).
		Msg("Sell signal executed")
}

// LogSettlement logs a ledger settlement and the balance after it.
func LogSettlement(logger zerolog.Logger, symbol, side string, quantity int, price, profitLoss, profitRate, balance float64) {
	e := logger.Info().
		Str("event", "settlement").
		Str("symbol", symbol).
		Str("side", side).
		Int("quantity", quantity).
		Float64("price", price)
	if side == "SELL" {
		e = e.Float64("profit_loss", profitLoss).Float64("profit_rate", profitRate)
		e.Float64("balance", balance).Msg("Position closed")
		return
	}
	e.Float64("balance", balance).Msg("Position opened")
}

// LogFilterVeto logs a quality-filter rejection.
func LogFilterVeto(logger zerolog.Logger, symbol, reason string) {
	logger.Info().
		Str("event", "filter_veto").
		Str("symbol", symbol).
		Str("reason", reason).
		Msg("Signal vetoed")
}
