package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/julianstephens/mydesk/internal/constants"
)

var (
	// Logger is nil until Init; the package helpers are no-ops before that.
	Logger *log.Logger

	file *lumberjack.Logger
)

type Config struct {
	Debug     bool
	ConfigDir string
	// Level overrides the default level ("debug", "info", "warn", "error").
	Level string
	// Console receives a copy of every record in debug mode. Defaults to stderr.
	Console io.Writer
}

// LogPath returns the log file location under configDir.
func LogPath(configDir string) string {
	return filepath.Join(configDir, "logs", constants.AppName+".log")
}

// Init points the package logger at a rotating file under ConfigDir/logs.
func Init(cfg Config) error {
	logFile := LogPath(cfg.ConfigDir)
	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		return err
	}

	if file != nil {
		_ = file.Close()
	}
	file = &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	level := log.WarnLevel
	if cfg.Debug {
		level = log.DebugLevel
	}
	if cfg.Level != "" {
		if parsed, err := log.ParseLevel(cfg.Level); err == nil {
			level = parsed
		}
	}

	// Debug mode mirrors the file to the console.
	var writer io.Writer = file
	if cfg.Debug {
		console := cfg.Console
		if console == nil {
			console = os.Stderr
		}
		writer = io.MultiWriter(console, file)
	}

	Logger = log.NewWithOptions(writer, log.Options{
		ReportCaller:    cfg.Debug,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          constants.AppName,
	})

	return nil
}

// Close flushes and closes the log file.
func Close() error {
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}

func emit(level log.Level, msg string, keyvals []any) {
	if Logger != nil {
		Logger.Log(level, msg, keyvals...)
	}
}

func Debug(msg string, keyvals ...any) { emit(log.DebugLevel, msg, keyvals) }
func Info(msg string, keyvals ...any)  { emit(log.InfoLevel, msg, keyvals) }
func Warn(msg string, keyvals ...any)  { emit(log.WarnLevel, msg, keyvals) }
func Error(msg string, keyvals ...any) { emit(log.ErrorLevel, msg, keyvals) }

// Fatal logs at error level and exits with status 1.
func Fatal(msg string, keyvals ...any) {
	emit(log.ErrorLevel, msg, keyvals)
	_ = Close()
	os.Exit(1)
}
