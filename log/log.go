// Package log supplies leveled logging for umem packages. The default
// logger is built on log/slog, applications can integrate their own
// logging by supplying a Logger to SetLogger.
package log

import "io"
import "os"
import "fmt"
import "strings"
import "context"
import "log/slog"

func init() {
	setts := map[string]interface{}{
		"log.level": "info",
		"log.file":  "",
	}
	SetLogger(nil, setts)
}

// Logger interface for umem logging, applications can
// supply a logger object implementing this interface or
// umem will fall back to the defaultLogger{}.
type Logger interface {
	SetLogLevel(string)
	Fatalf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Verbosef(format string, v ...interface{})
	Debugf(format string, v ...interface{})
	Tracef(format string, v ...interface{})
	Printlf(loglevel LogLevel, format string, v ...interface{})
}

// LogLevel defines umem log level.
type LogLevel int

const (
	logLevelIgnore LogLevel = iota + 1
	logLevelFatal
	logLevelError
	logLevelWarn
	logLevelInfo
	logLevelVerbose
	logLevelDebug
	logLevelTrace
)

var log Logger // object used by umem components for logging.

// SetLogger to integrate umem logging with application logging.
// importing this package will initialize the logger with info level
// logging to console.
//
// "log.level" (string, default: "info")
//		One of ignore, fatal, error, warn, info, verbose, debug, trace.
//
// "log.file" (string, default: "")
//		Log to file, empty string logs to os.Stdout.
func SetLogger(logger Logger, setts map[string]interface{}) Logger {
	if logger != nil {
		log = logger
		return log
	}

	var err error
	level := string2logLevel(setts["log.level"].(string))
	logfd := os.Stdout
	if logfile, ok := setts["log.file"].(string); ok && logfile != "" {
		logfd, err = os.OpenFile(logfile, os.O_RDWR|os.O_APPEND, 0660)
		if err != nil {
			if logfd, err = os.Create(logfile); err != nil {
				panic(err)
			}
		}
	}
	log = newdefaultlogger(level, logfd)
	return log
}

// defaultLogger with default log-file as os.Stdout and,
// default log-level as logLevelInfo. Records are rendered by a
// slog.TextHandler.
type defaultLogger struct {
	level  LogLevel
	output io.Writer
	slog   *slog.Logger
}

func newdefaultlogger(level LogLevel, output io.Writer) *defaultLogger {
	opts := &slog.HandlerOptions{
		Level: slog.Level(-16), // filtering is done by canlog()
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey && len(groups) == 0 {
				lvl := a.Value.Any().(slog.Level)
				return slog.String(slog.LevelKey, slog2logLevel(lvl).String())
			}
			return a
		},
	}
	return &defaultLogger{
		level:  level,
		output: output,
		slog:   slog.New(slog.NewTextHandler(output, opts)),
	}
}

func (l *defaultLogger) SetLogLevel(level string) {
	l.level = string2logLevel(level)
}

func (l *defaultLogger) Fatalf(format string, v ...interface{}) {
	l.Printlf(logLevelFatal, format, v...)
}

func (l *defaultLogger) Errorf(format string, v ...interface{}) {
	l.Printlf(logLevelError, format, v...)
}

func (l *defaultLogger) Warnf(format string, v ...interface{}) {
	l.Printlf(logLevelWarn, format, v...)
}

func (l *defaultLogger) Infof(format string, v ...interface{}) {
	l.Printlf(logLevelInfo, format, v...)
}

func (l *defaultLogger) Verbosef(format string, v ...interface{}) {
	l.Printlf(logLevelVerbose, format, v...)
}

func (l *defaultLogger) Debugf(format string, v ...interface{}) {
	l.Printlf(logLevelDebug, format, v...)
}

func (l *defaultLogger) Tracef(format string, v ...interface{}) {
	l.Printlf(logLevelTrace, format, v...)
}

func (l *defaultLogger) Printlf(level LogLevel, format string, v ...interface{}) {
	if l.canlog(level) && l.slog != nil {
		msg := strings.TrimRight(fmt.Sprintf(format, v...), "\n")
		l.slog.Log(context.Background(), level.slogLevel(), msg)
	}
}

func (l *defaultLogger) canlog(level LogLevel) bool {
	if level <= l.level {
		return true
	}
	return false
}

func (l LogLevel) String() string {
	switch l {
	case logLevelIgnore:
		return "Ignor"
	case logLevelFatal:
		return "Fatal"
	case logLevelError:
		return "Error"
	case logLevelWarn:
		return "Warng"
	case logLevelInfo:
		return "Infom"
	case logLevelVerbose:
		return "Verbs"
	case logLevelDebug:
		return "Debug"
	case logLevelTrace:
		return "Trace"
	}
	panic("unexpected log level") // should never reach here
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case logLevelFatal:
		return slog.LevelError + 4
	case logLevelError:
		return slog.LevelError
	case logLevelWarn:
		return slog.LevelWarn
	case logLevelInfo:
		return slog.LevelInfo
	case logLevelVerbose:
		return slog.LevelInfo - 2
	case logLevelDebug:
		return slog.LevelDebug
	}
	return slog.LevelDebug - 4
}

func slog2logLevel(level slog.Level) LogLevel {
	switch {
	case level > slog.LevelError:
		return logLevelFatal
	case level > slog.LevelWarn:
		return logLevelError
	case level > slog.LevelInfo:
		return logLevelWarn
	case level == slog.LevelInfo:
		return logLevelInfo
	case level > slog.LevelDebug:
		return logLevelVerbose
	case level == slog.LevelDebug:
		return logLevelDebug
	}
	return logLevelTrace
}

func string2logLevel(s string) LogLevel {
	s = strings.ToLower(s)
	switch s {
	case "ignore":
		return logLevelIgnore
	case "fatal":
		return logLevelFatal
	case "error":
		return logLevelError
	case "warn":
		return logLevelWarn
	case "info":
		return logLevelInfo
	case "verbose":
		return logLevelVerbose
	case "debug":
		return logLevelDebug
	case "trace":
		return logLevelTrace
	}
	panic("unexpected log level") // should never reach here
}

// Fatalf similar to Printf, will be logged only when log level is set as
// "fatal" or above.
func Fatalf(format string, v ...interface{}) {
	log.Printlf(logLevelFatal, format, v...)
}

// Errorf similar to Printf, will be logged only when log level is set as
// "error" or above.
func Errorf(format string, v ...interface{}) {
	log.Printlf(logLevelError, format, v...)
}

// Warnf similar to Printf, will be logged only when log level is set as
// "warn" or above.
func Warnf(format string, v ...interface{}) {
	log.Printlf(logLevelWarn, format, v...)
}

// Infof similar to Printf, will be logged only when log level is set as
// "info" or above.
func Infof(format string, v ...interface{}) {
	log.Printlf(logLevelInfo, format, v...)
}

// Verbosef similar to Printf, will be logged only when log level is set as
// "verbose" or above.
func Verbosef(format string, v ...interface{}) {
	log.Printlf(logLevelVerbose, format, v...)
}

// Debugf similar to Printf, will be logged only when log level is set as
// "debug" or above.
func Debugf(format string, v ...interface{}) {
	log.Printlf(logLevelDebug, format, v...)
}

// Tracef similar to Printf, will be logged only when log level is set as
// "trace" or above.
func Tracef(format string, v ...interface{}) {
	log.Printlf(logLevelTrace, format, v...)
}
