// Package logging configures logrus for the console and adapts it to the
// HTTP router and the inventory client.
package logging

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// ParseLevel maps a level name to a logrus level.
func ParseLevel(level string) (logrus.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return logrus.TraceLevel, nil
	case "debug":
		return logrus.DebugLevel, nil
	case "", "info":
		return logrus.InfoLevel, nil
	case "warn", "warning":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	case "fatal":
		return logrus.FatalLevel, nil
	case "panic":
		return logrus.PanicLevel, nil
	default:
		return logrus.InfoLevel, fmt.Errorf("invalid log level: %s", level)
	}
}

// New returns a logger writing to out at the given level. LOG_LEVEL in the
// environment overrides level.
func New(out io.Writer, level string) *logrus.Logger {
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = env
	}
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := ParseLevel(level)
	if err != nil {
		log.WithError(err).Warn("falling back to info")
	}
	log.SetLevel(lvl)
	return log
}

// RequestLogger is a chi middleware that writes one log entry per request.
func RequestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				entry := log.WithFields(logrus.Fields{
					"method":   r.Method,
					"path":     r.URL.Path,
					"status":   ww.Status(),
					"bytes":    ww.BytesWritten(),
					"duration": time.Since(start).String(),
				})
				if id := middleware.GetReqID(r.Context()); id != "" {
					entry = entry.WithField("request_id", id)
				}
				if ww.Status() >= 500 {
					entry.Error("request")
				} else {
					entry.Debug("request")
				}
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// LeveledLogger adapts logrus to retryablehttp.LeveledLogger.
type LeveledLogger struct {
	Log logrus.FieldLogger
}

func (l LeveledLogger) fields(keysAndValues []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}

func (l LeveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.Log.WithFields(l.fields(keysAndValues)).Error(msg)
}

func (l LeveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.Log.WithFields(l.fields(keysAndValues)).Info(msg)
}

func (l LeveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.Log.WithFields(l.fields(keysAndValues)).Debug(msg)
}

func (l LeveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.Log.WithFields(l.fields(keysAndValues)).Warn(msg)
}
