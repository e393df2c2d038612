// Package logging builds the zap loggers used by the tracker binaries.
package logging

import (
	"strconv"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger configuration
type Config struct {
	Debug bool
	// Name is attached as the "service" field when set.
	Name string
}

// New builds a production logger, or a development logger at debug level
// when cfg.Debug is set.
func New(cfg Config) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Debug {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	zapConfig.EncoderConfig.TimeKey = "ts"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}
	if cfg.Name != "" {
		logger = logger.With(zap.String("service", cfg.Name))
	}
	return logger, nil
}

// FormatMarketCap renders a USD market cap for log lines:
// no decimals from 1M, two from 1k, four below.
func FormatMarketCap(v float64) string {
	switch {
	case v >= 1_000_000:
		return "$" + strconv.FormatFloat(v, 'f', 0, 64)
	case v >= 1_000:
		return "$" + strconv.FormatFloat(v, 'f', 2, 64)
	default:
		return "$" + strconv.FormatFloat(v, 'f', 4, 64)
	}
}

// MarketCap is a zap field carrying a formatted market cap.
func MarketCap(key string, v float64) zap.Field {
	return zap.String(key, FormatMarketCap(v))
}
