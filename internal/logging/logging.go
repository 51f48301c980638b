// Package logging wires up the diagnostics sinks: stderr always, plus an
// optional log file and an optional TCP syslog target, all bridged to the
// logr.Logger interface used throughout the engine/service/interceptor
// packages. This is the same zap-underneath-logr arrangement the teacher
// wires up in main.go, but built directly from go.uber.org/zap +
// github.com/go-logr/zapr since there is no controller-runtime manager
// here to host the convenience wrapper the teacher uses instead.
package logging

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures the diagnostics sinks.
type Options struct {
	LogFile   string
	SyslogURL string
	Verbose   bool
	Debug     bool
}

// New builds a logr.Logger writing to stderr, and additionally to a log
// file and/or a TCP syslog endpoint if configured. The returned closer must
// be called on shutdown to flush and release the extra sinks.
func New(opts Options) (logr.Logger, func(), error) {
	level := zapcore.InfoLevel
	switch {
	case opts.Debug:
		level = zapcore.Level(-2)
	case opts.Verbose:
		level = zapcore.Level(-1)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level),
	}

	var closers []func() error

	if opts.LogFile != "" {
		f, err := os.OpenFile(opts.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return logr.Logger{}, nil, fmt.Errorf("opening --log-file %q: %w", opts.LogFile, err)
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(f), level))
		closers = append(closers, f.Close)
	}

	if opts.SyslogURL != "" {
		addr, err := parseSyslogAddr(opts.SyslogURL)
		if err != nil {
			return logr.Logger{}, nil, err
		}
		conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
		if err != nil {
			return logr.Logger{}, nil, fmt.Errorf("dialing --syslog-url %q: %w", opts.SyslogURL, err)
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(conn), level))
		closers = append(closers, conn.Close)
	}

	core := zapcore.NewTee(cores...)
	zl := zap.New(core)

	closeAll := func() {
		_ = zl.Sync()
		for _, c := range closers {
			_ = c()
		}
	}

	return zapr.NewLogger(zl), closeAll, nil
}

// parseSyslogAddr validates and strips the "tcp://" scheme required by
// --syslog-url; UDP syslog is explicitly unsupported.
func parseSyslogAddr(raw string) (string, error) {
	const scheme = "tcp://"
	if !strings.HasPrefix(raw, scheme) {
		return "", fmt.Errorf("--syslog-url must start with %q (UDP syslog is not supported): %q", scheme, raw)
	}
	addr := raw[len(scheme):]
	if addr == "" {
		return "", fmt.Errorf("--syslog-url has no host:port: %q", raw)
	}
	return addr, nil
}
