package config

import (
	"io"

	"github.com/monuverse/arch-of-peace-contract/utils/logging"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type LogConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"maxSize"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAge     int    `yaml:"maxAge"`
	Compress   bool   `yaml:"compress"`
}

// CreateLogger builds the process logger. A file logger with rotation is used
// when either a log file or a logger section is configured, otherwise logs go
// to stderr.
func (c *Config) CreateLogger(debug bool) (
	*zap.Logger,
	io.Closer,
	error,
) {
	filename := c.LogFile
	if filename != "" || c.Logger != nil {
		opts := logging.RotationOptions{}
		if c.Logger != nil {
			opts = logging.RotationOptions{
				Dir:        c.Logger.Path,
				MaxSize:    c.Logger.MaxSize,
				MaxBackups: c.Logger.MaxBackups,
				MaxAge:     c.Logger.MaxAge,
				Compress:   c.Logger.Compress,
			}
		}

		logger, closer, err := logging.NewRotatingFileLogger(
			debug,
			filename,
			opts,
		)
		return logger, closer, errors.Wrap(err, "create logger")
	}

	var logger *zap.Logger
	var err error
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}

	return logger, io.NopCloser(nil), errors.Wrap(err, "create logger")
}
