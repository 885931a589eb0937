package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rexliu/m365/pkg/config"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// Logger is the logging surface handed to the gateway, bridge and CLI.
type Logger interface {
	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)

	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)

	WithField(key string, value any) Logger
	WithFields(fields map[string]any) Logger
	WithError(err error) Logger
}

type logrusLogger struct {
	entry *logrus.Entry
}

// New returns a logrus-backed Logger writing to stderr, tagged with component.
// Stdout is left alone because command results are printed there.
func New(component string) *Base {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(formatterFor(os.Stderr, ""))
	return &Base{
		Logger: &logrusLogger{entry: l.WithField("component", component)},
		root:   l,
	}
}

// Base is a Logger that can still be reconfigured.
type Base struct {
	Logger
	root *logrus.Logger
}

// Configure applies logging settings from config.
func (b *Base) Configure(cfg config.LoggingConfig) error {
	if b == nil || b.root == nil {
		return nil
	}
	if cfg.Level != "" {
		level, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return err
		}
		b.root.SetLevel(level)
	}
	b.root.SetFormatter(formatterFor(os.Stderr, cfg.Format))
	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o700); err != nil {
			return err
		}
		writer, err := newRollingFile(cfg.FilePath, cfg.FileMaxSize)
		if err != nil {
			return err
		}
		b.root.SetOutput(io.MultiWriter(os.Stderr, writer))
	}
	return nil
}

// SetVerbose switches the logger to debug level.
func (b *Base) SetVerbose() {
	if b != nil && b.root != nil {
		b.root.SetLevel(logrus.DebugLevel)
	}
}

// formatterFor picks text output on a terminal and JSON otherwise, unless format
// names one explicitly.
func formatterFor(f *os.File, format string) logrus.Formatter {
	switch strings.ToLower(format) {
	case "json":
		return &logrus.JSONFormatter{DisableHTMLEscape: true, TimestampFormat: time.RFC3339}
	case "text":
		return &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339}
	}
	if f != nil && term.IsTerminal(int(f.Fd())) {
		return &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339}
	}
	return &logrus.JSONFormatter{DisableHTMLEscape: true, TimestampFormat: time.RFC3339}
}

func (l *logrusLogger) Debug(args ...any)                 { l.entry.Debug(args...) }
func (l *logrusLogger) Info(args ...any)                  { l.entry.Info(args...) }
func (l *logrusLogger) Warn(args ...any)                  { l.entry.Warn(args...) }
func (l *logrusLogger) Error(args ...any)                 { l.entry.Error(args...) }
func (l *logrusLogger) Debugf(format string, args ...any) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Infof(format string, args ...any)  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...any)  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Errorf(format string, args ...any) { l.entry.Errorf(format, args...) }

func (l *logrusLogger) WithField(key string, value any) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}

func (l *logrusLogger) WithFields(fields map[string]any) Logger {
	return &logrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *logrusLogger) WithError(err error) Logger {
	return &logrusLogger{entry: l.entry.WithError(err)}
}

// NewWriter returns a Logger writing text records to w; used by tests that inspect output.
func NewWriter(w io.Writer, level string) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})
	if lvl, err := logrus.ParseLevel(level); err == nil {
		l.SetLevel(lvl)
	}
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(args ...any)                  {}
func (NopLogger) Info(args ...any)                   {}
func (NopLogger) Warn(args ...any)                   {}
func (NopLogger) Error(args ...any)                  {}
func (NopLogger) Debugf(format string, args ...any)  {}
func (NopLogger) Infof(format string, args ...any)   {}
func (NopLogger) Warnf(format string, args ...any)   {}
func (NopLogger) Errorf(format string, args ...any)  {}
func (n NopLogger) WithField(string, any) Logger     { return n }
func (n NopLogger) WithFields(map[string]any) Logger { return n }
func (n NopLogger) WithError(error) Logger           { return n }

type rollingFile struct {
	path string
	max  int
	file *os.File
}

func newRollingFile(path string, maxMB int) (*rollingFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	return &rollingFile{path: path, max: maxMB, file: f}, nil
}

func (r *rollingFile) Write(p []byte) (int, error) {
	if r.max > 0 {
		if info, err := r.file.Stat(); err == nil && info.Size()+int64(len(p)) > int64(r.max)*1024*1024 {
			r.file.Close()
			os.Rename(r.path, r.path+".1")
			newFile, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
			if err != nil {
				return 0, err
			}
			r.file = newFile
		}
	}
	return r.file.Write(p)
}
