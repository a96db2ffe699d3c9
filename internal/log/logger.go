// Package log is trooper's structured logger. It wraps logrus with the
// small API the rest of the code uses: leveled package functions, fields
// built with F, and error-aware helpers that expand application errors
// into fields.
package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"trooper/internal/errors"

	"github.com/sirupsen/logrus"
)

var (
	isDebug = false
	logger  = NewLogger()
	mu      sync.Mutex
)

// Field is a single structured key/value pair.
type Field struct {
	Key   string
	Value interface{}
}

// F builds a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Logger writes leveled, structured log lines.
type Logger struct {
	entry *logrus.Entry
	file  *os.File
}

type options struct {
	out  io.Writer
	json bool
	file string
}

// Option configures a Logger.
type Option func(*options)

// WithOutput sets the primary writer (stdout by default).
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithJSON switches to one JSON object per line.
func WithJSON() Option {
	return func(o *options) { o.json = true }
}

// WithFile additionally appends every line to the file at path.
func WithFile(path string) Option {
	return func(o *options) { o.file = path }
}

// NewLogger creates a logger. Invalid file options fall back to the
// primary writer alone.
func NewLogger(opts ...Option) *Logger {
	o := options{out: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	base := logrus.New()
	base.SetLevel(logrus.DebugLevel)
	if o.json {
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	} else {
		base.SetFormatter(&lineFormatter{})
	}

	l := &Logger{}
	out := o.out
	if o.file != "" {
		if err := os.MkdirAll(filepath.Dir(o.file), 0755); err == nil {
			f, err := os.OpenFile(o.file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err == nil {
				l.file = f
				out = io.MultiWriter(o.out, f)
			}
		}
	}
	base.SetOutput(out)
	l.entry = logrus.NewEntry(base)
	return l
}

// Configure replaces the package-level logger.
func Configure(opts ...Option) {
	mu.Lock()
	defer mu.Unlock()
	logger = NewLogger(opts...)
}

// Close releases the log file of the package-level logger, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logger.file != nil {
		err := logger.file.Close()
		logger.file = nil
		return err
	}
	return nil
}

// SetDebug toggles debug output for all loggers.
func SetDebug(debug bool) {
	isDebug = debug
}

// With returns a child logger carrying the given fields.
func (l *Logger) With(fields ...Field) *Logger {
	data := make(logrus.Fields, len(fields))
	for _, f := range fields {
		data[f.Key] = f.Value
	}
	return &Logger{entry: l.entry.WithFields(data), file: l.file}
}

// WithContext attaches ctx to subsequent entries.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	return &Logger{entry: l.entry.WithContext(ctx), file: l.file}
}

func (l *Logger) Info(args ...interface{})  { l.at(logrus.InfoLevel, fmt.Sprint(args...)) }
func (l *Logger) Warn(args ...interface{})  { l.at(logrus.WarnLevel, fmt.Sprint(args...)) }
func (l *Logger) Error(args ...interface{}) { l.at(logrus.ErrorLevel, fmt.Sprint(args...)) }

func (l *Logger) Infof(format string, args ...interface{}) {
	l.at(logrus.InfoLevel, fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.at(logrus.WarnLevel, fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.at(logrus.ErrorLevel, fmt.Sprintf(format, args...))
}

// Debug logs only while debug output is enabled.
func (l *Logger) Debug(args ...interface{}) {
	if isDebug {
		l.at(logrus.DebugLevel, fmt.Sprint(args...))
	}
}

// Debugf logs a formatted message only while debug output is enabled.
func (l *Logger) Debugf(format string, args ...interface{}) {
	if isDebug {
		l.at(logrus.DebugLevel, fmt.Sprintf(format, args...))
	}
}

// at is called exactly two frames below the user's call site.
func (l *Logger) at(level logrus.Level, msg string) {
	e := l.entry
	if _, file, line, ok := runtime.Caller(2); ok {
		e = e.WithField("caller", fmt.Sprintf("%s:%d", filepath.Base(file), line))
	}
	e.Log(level, msg)
}

func current() *Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

func Info(format string, args ...interface{}) {
	current().at(logrus.InfoLevel, fmt.Sprintf(format, args...))
}

// Infof logs a formatted message
func Infof(format string, args ...interface{}) {
	current().at(logrus.InfoLevel, fmt.Sprintf(format, args...))
}

// Debug logs a message with arguments
func Debug(msg string, args ...interface{}) {
	if isDebug {
		current().at(logrus.DebugLevel, fmt.Sprintf(msg, args...))
	}
}

// Debugf logs a formatted message
func Debugf(format string, args ...interface{}) {
	if isDebug {
		current().at(logrus.DebugLevel, fmt.Sprintf(format, args...))
	}
}

// Warnf logs a formatted warning message
func Warnf(format string, args ...interface{}) {
	current().at(logrus.WarnLevel, fmt.Sprintf(format, args...))
}

// Errorf logs a formatted error message
func Errorf(format string, args ...interface{}) {
	current().at(logrus.ErrorLevel, fmt.Sprintf(format, args...))
}

// LogWithFields returns the package logger with fields attached.
func LogWithFields(fields ...Field) *Logger {
	return current().With(fields...)
}

// LogWithError returns the package logger with err expanded into fields.
// Application errors contribute their kind and path, parameter or file.
func LogWithError(err error) *Logger {
	if err == nil {
		return current().With(F("error", "<nil>"))
	}
	fields := []Field{F("error", err.Error()), F("error_kind", errors.KindOf(err).String())}

	var fileErr *errors.FileError
	var configErr *errors.ConfigError
	var navErr *errors.NavigationError
	var storeErr *errors.StoreError
	switch {
	case errors.As(err, &configErr):
		if configErr.Param() != "" {
			fields = append(fields, F("param", configErr.Param()))
		}
		if configErr.File() != "" {
			fields = append(fields, F("file", configErr.File()), F("line", configErr.Line()))
		}
	case errors.As(err, &navErr):
		if navErr.Path() != "" {
			fields = append(fields, F("path", navErr.Path()))
		}
		if len(navErr.Failed()) > 0 {
			fields = append(fields, F("failed", strings.Join(navErr.Failed(), ",")))
		}
	case errors.As(err, &storeErr):
		fields = append(fields, F("file", storeErr.File()))
	case errors.As(err, &fileErr):
		fields = append(fields, F("path", fileErr.Path()))
	}
	return current().With(fields...)
}

// LogError logs err at error level with msg.
func LogError(err error, msg string) {
	LogWithError(err).at(logrus.ErrorLevel, msg)
}

// lineFormatter renders "[time] LEVEL: message key=value ..." with keys sorted.
type lineFormatter struct{}

func (f *lineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "[%s] %s: %s", e.Time.Format("2006-01-02 15:04:05"), strings.ToUpper(e.Level.String()), e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// Warn logs a warning message with arguments
func Warn(msg string, args ...interface{}) {
	current().at(logrus.WarnLevel, fmt.Sprintf(msg, args...))
}

// Error logs an error message with arguments
func Error(msg string, args ...interface{}) {
	current().at(logrus.ErrorLevel, fmt.Sprintf(msg, args...))
}
