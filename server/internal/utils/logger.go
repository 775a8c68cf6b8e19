package utils

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOptions configures the process-wide logger.
type LogOptions struct {
	Level      string
	Format     string // "text" or "json"
	File       string // optional rotated file sink, written alongside stdout
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var logger = newDefaultLogger()

func newDefaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	return l
}

// ConfigureLogger applies opts to the global logger. The returned closer flushes
// the file sink, if any.
func ConfigureLogger(opts LogOptions) io.Closer {
	if strings.EqualFold(opts.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	}
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		sink := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		}
		logger.SetOutput(io.MultiWriter(os.Stdout, sink))
		closer = sink
	}
	SetLogLevel(opts.Level)
	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// SetLogLevel sets the global log level for the application.
func SetLogLevel(levelString string) {
	switch strings.ToUpper(levelString) {
	case "DEBUG":
		logger.SetLevel(logrus.DebugLevel)
	case "INFO", "":
		logger.SetLevel(logrus.InfoLevel)
	case "WARNING", "WARN":
		logger.SetLevel(logrus.WarnLevel)
	case "ERROR":
		logger.SetLevel(logrus.ErrorLevel)
	case "FATAL":
		logger.SetLevel(logrus.FatalLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
		LogWarnf("Unknown log level '%s', defaulting to INFO", levelString)
	}
	LogDebugf("Log level set to %s", logger.GetLevel())
}

// SetLogOutput redirects the global logger, mainly for tests.
func SetLogOutput(w io.Writer) {
	logger.SetOutput(w)
}

// WithFields returns an entry carrying structured context such as a session id.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return logger.WithFields(fields)
}

func LogDebugf(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}

func LogInfof(format string, args ...interface{}) {
	logger.Infof(format, args...)
}

func LogWarnf(format string, args ...interface{}) {
	logger.Warnf(format, args...)
}

func LogErrorf(format string, args ...interface{}) {
	logger.Errorf(format, args...)
}

func LogFatalf(format string, args ...interface{}) {
	logger.Fatalf(format, args...)
}
