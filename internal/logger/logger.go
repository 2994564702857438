package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type Options struct {
	Level  string
	Format string // text|json
	Env    string
	Output io.Writer
}

// New builds the service logger. Every entry carries the service name and, when set, the env.
func New(appName string, opts Options) *logrus.Entry {
	l := logrus.New()
	if opts.Output != nil {
		l.SetOutput(opts.Output)
	} else {
		l.SetOutput(os.Stdout)
	}
	l.SetLevel(parseLevel(opts.Level))

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	entry := l.WithField("service", appName)
	if env := strings.TrimSpace(opts.Env); env != "" {
		entry = entry.WithField("env", env)
	}
	return entry
}

func parseLevel(s string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(s))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
