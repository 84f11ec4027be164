package config

import (
	"fmt"
	"io"
	"os"

	"github.com/loykin/aegisrun/internal/common"
	"github.com/loykin/aegisrun/internal/util"
)

func (c *Config) parseLogLevel() (common.LogLevel, error) {
	level, ok := common.ParseLogLevel(util.TrimAndLower(c.Logging.Level))
	if !ok {
		return common.LogLevelInfo, fmt.Errorf("invalid logging level: %s (valid: error, warn, info, debug)", c.Logging.Level)
	}
	return level, nil
}

// SetupLogging configures the global logger on stdout based on config settings
func (c *Config) SetupLogging() (*common.Logger, error) {
	return c.SetupLoggingTo(os.Stdout)
}

// SetupLoggingTo configures the global logger writing to w.
func (c *Config) SetupLoggingTo(w io.Writer) (*common.Logger, error) {
	level, err := c.parseLogLevel()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	format := util.TrimAndLower(c.Logging.Format)
	useColor := false
	if c.Logging.Color != nil {
		useColor = *c.Logging.Color
	} else if format == "color" || format == "colour" {
		useColor = true
	}

	var logger *common.Logger
	switch format {
	case "json":
		logger = common.NewLoggerTo(w, level, "json")
	case "color", "colour":
		logger = common.NewLoggerTo(w, level, "color")
	case "text", "":
		if useColor {
			logger = common.NewLoggerTo(w, level, "color")
		} else {
			logger = common.NewLoggerTo(w, level, "text")
		}
	default:
		return nil, fmt.Errorf("%w: invalid logging format: %s (valid: text, json, color)", ErrConfig, c.Logging.Format)
	}

	maskingEnabled := true
	if c.Logging.MaskSensitive != nil {
		maskingEnabled = *c.Logging.MaskSensitive
	}
	logger.EnableMasking(maskingEnabled)
	common.SetDefaultLogger(logger)
	common.EnableMasking(maskingEnabled)

	logger.Debug("logging configured",
		"level", level.String(),
		"format", util.TrimWithDefault(format, "text"),
		"color", useColor,
		"mask_sensitive", maskingEnabled)
	return logger, nil
}
