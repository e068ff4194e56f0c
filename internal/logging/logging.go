// Package logging configures the logrus logger used by every command.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const timestampFormat = "2006-01-02 15:04:05.000"

// Formatter renders entries as "<timestamp> <LEVEL>: <message> key=value ...".
type Formatter struct{}

func (f *Formatter) Format(entry *log.Entry) ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %s: %s", entry.Time.Format(timestampFormat), levelName(entry.Level), entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func levelName(level log.Level) string {
	switch level {
	case log.WarnLevel:
		return "WARNING"
	case log.PanicLevel, log.FatalLevel:
		return "CRITICAL"
	default:
		name, _ := level.MarshalText()
		return string(bytes.ToUpper(name))
	}
}

// Options controls where Setup sends output.
type Options struct {
	// Module prefixes the log file name, e.g. "ingest".
	Module string
	Level  string
	// LogDir, when set, receives <module>_<timestamp>.log.
	LogDir string
	// Console receives a copy of every entry; nil disables it.
	Console io.Writer
}

// Setup builds a logger writing to the console and, if configured, to a
// timestamped file in LogDir. The returned function closes the file.
func Setup(opts Options) (*log.Logger, func() error, error) {
	level, err := log.ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "invalid log level %q", opts.Level)
	}

	logger := log.New()
	logger.SetLevel(level)
	logger.SetFormatter(&Formatter{})

	writers := make([]io.Writer, 0, 2)
	if opts.Console != nil {
		writers = append(writers, opts.Console)
	}

	closeFn := func() error { return nil }
	if opts.LogDir != "" {
		if err := os.MkdirAll(opts.LogDir, 0o750); err != nil {
			return nil, nil, errors.Wrap(err, "creating log directory")
		}
		module := opts.Module
		if module == "" {
			module = "acsql"
		}
		name := fmt.Sprintf("%s_%s.log", module, time.Now().Format("2006-01-02-15-04-05"))
		//nolint:gosec // G304: log directory comes from configuration
		file, err := os.OpenFile(filepath.Join(opts.LogDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening log file")
		}
		writers = append(writers, file)
		closeFn = file.Close
	}

	if len(writers) == 0 {
		logger.SetOutput(io.Discard)
	} else {
		logger.SetOutput(io.MultiWriter(writers...))
	}
	return logger, closeFn, nil
}

// LogEnvironment records who ran the process, where, and with which versions.
func LogEnvironment(logger log.FieldLogger, version string) {
	username := "unknown"
	if u, err := user.Current(); err == nil {
		username = u.Username
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	logger.Infof("User: %s", username)
	logger.Infof("System: %s", hostname)
	logger.Infof("Platform: %s/%s", runtime.GOOS, runtime.GOARCH)
	logger.Infof("Go Version: %s", runtime.Version())
	logger.Infof("acsql Version: %s", version)
}

// Discard returns a logger that drops everything, for tests and library callers.
func Discard() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}
