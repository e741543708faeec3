package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

// DefaultLogFile is the log file name used when logging.file is empty
const DefaultLogFile = "reportrelay.log"

const logTimeFormat = "15:04:05"

var (
	globalLogger arbor.ILogger
	loggerMutex  sync.RWMutex
)

var logLevels = []string{"trace", "debug", "info", "warn", "error"}

func consoleWriterConfig() models.WriterConfiguration {
	return models.WriterConfiguration{
		Type:       models.LogWriterTypeConsole,
		TimeFormat: logTimeFormat,
		OutputType: models.OutputFormatLogfmt,
	}
}

// GetLogger returns the process logger, creating a console logger when
// InitLogger has not run yet
func GetLogger() arbor.ILogger {
	loggerMutex.RLock()
	if globalLogger != nil {
		loggerMutex.RUnlock()
		return globalLogger
	}
	loggerMutex.RUnlock()

	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	if globalLogger == nil {
		globalLogger = arbor.NewLogger().WithConsoleWriter(consoleWriterConfig())
	}
	return globalLogger
}

// InitLogger builds the process logger from the [logging] section. Problems
// with the log file fall back to console output instead of failing startup.
func InitLogger(config *Config) arbor.ILogger {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	logger := arbor.NewLogger()
	var warnings []string

	toFile, toConsole := logOutputs(config.Logging.Output)

	if toFile {
		path, err := LogFilePath(config.Logging.File)
		if err == nil {
			err = os.MkdirAll(filepath.Dir(path), 0755)
		}
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("log file disabled: %v", err))
			toConsole = true
		} else {
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeFile,
				FileName:   path,
				TimeFormat: logTimeFormat,
				MaxSize:    100 * 1024 * 1024, // 100 MB
				MaxBackups: 3,
				OutputType: models.OutputFormatLogfmt,
			})
		}
	}

	if toConsole {
		logger = logger.WithConsoleWriter(consoleWriterConfig())
	}

	level, ok := NormalizeLogLevel(config.Logging.Level)
	if !ok {
		warnings = append(warnings, fmt.Sprintf("unknown log level %q, using %s", config.Logging.Level, level))
	}
	logger = logger.WithLevelFromString(level)

	for _, w := range warnings {
		logger.Warn().Msg(w)
	}

	globalLogger = logger
	return logger
}

// logOutputs reads the output list. No recognised output means console.
func logOutputs(outputs []string) (toFile, toConsole bool) {
	for _, output := range outputs {
		switch strings.ToLower(strings.TrimSpace(output)) {
		case "file":
			toFile = true
		case "stdout", "console":
			toConsole = true
		}
	}
	if !toFile && !toConsole {
		toConsole = true
	}
	return toFile, toConsole
}

// LogFilePath resolves the configured log file. Absolute paths are used as
// given; bare names and relative paths go under logs/ next to the binary.
func LogFilePath(file string) (string, error) {
	file = strings.TrimSpace(file)
	if file == "" {
		file = DefaultLogFile
	}
	if filepath.IsAbs(file) {
		return file, nil
	}

	execPath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	return filepath.Join(filepath.Dir(execPath), "logs", file), nil
}

// NormalizeLogLevel lower-cases level and maps "warning" to "warn". Unknown
// levels return "info" and false.
func NormalizeLogLevel(level string) (string, bool) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	for _, known := range logLevels {
		if level == known {
			return level, true
		}
	}
	return "info", false
}
