package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

type Options struct {
	Env      string
	Level    string
	Encoding string
}

// New builds a zap logger using the development preset when env is
// "development" and the production preset otherwise.
func New(opts Options) (*zap.Logger, error) {
	var zapCfg zap.Config
	if strings.EqualFold(strings.TrimSpace(opts.Env), "development") {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	if level := strings.TrimSpace(opts.Level); level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log.level: %w", err)
		}
	}
	if encoding := strings.TrimSpace(opts.Encoding); encoding != "" {
		zapCfg.Encoding = encoding
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger failed: %w", err)
	}
	return logger, nil
}
