// Package cliconfig ingests the query-server's command-line flags into a
// validated Config, mirroring the teacher's direct use of the standard
// library flag package in main.go rather than a third-party flag/config
// framework the teacher doesn't reach for on its own entrypoint.
package cliconfig

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/l7mp/supercouch/pkg/sset"
)

// Config is the fully parsed and validated process configuration.
type Config struct {
	RedisURL  string
	EmitSSet  bool
	LogFile   string
	SyslogURL string
	Verbose   bool
	Debug     bool

	Backend sset.BackendURL
}

// Parse parses args (normally os.Args[1:]) into a Config. On a usage error
// (unknown flag, missing --redis-url, or --help) it writes usage to out and
// returns ErrUsage; the caller is expected to exit 1 in that case. versionInfo
// is printed as the first line of the usage banner, so --help always
// identifies the binary it was run against.
func Parse(args []string, out io.Writer, versionInfo string) (Config, error) {
	fs := flag.NewFlagSet("supercouch", flag.ContinueOnError)
	fs.SetOutput(out)

	var cfg Config
	var help bool

	fs.StringVar(&cfg.RedisURL, "redis-url", "", "Redis backend URL (required): "+
		"redis://host:port or redis-cluster://node1,node2[+addr=host:port,...]")
	fs.BoolVar(&cfg.EmitSSet, "emit-sset", false, "also pass $SSET emissions through as normal view rows")
	fs.StringVar(&cfg.LogFile, "log-file", "", "append diagnostics to this file")
	fs.StringVar(&cfg.SyslogURL, "syslog-url", "", "send diagnostics over TCP syslog, e.g. tcp://host:port")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "raise diagnostic level")
	fs.BoolVar(&cfg.Debug, "debug", false, "raise diagnostic level further")
	fs.BoolVar(&help, "help", false, "print usage")

	fs.Usage = func() {
		fmt.Fprintln(out, "supercouch", versionInfo)
		fmt.Fprintln(out, "Usage: supercouch --redis-url URL [flags]")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, ErrUsage
	}
	if help {
		fs.Usage()
		return Config{}, ErrUsage
	}
	if cfg.RedisURL == "" {
		fmt.Fprintln(out, "missing required flag: --redis-url")
		fs.Usage()
		return Config{}, ErrUsage
	}

	backend, err := sset.ParseBackendURL(cfg.RedisURL)
	if err != nil {
		fmt.Fprintf(out, "invalid --redis-url: %v\n", err)
		return Config{}, ErrUsage
	}
	cfg.Backend = backend

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(out, "invalid configuration: %v\n", err)
		return Config{}, ErrUsage
	}

	return cfg, nil
}

// Validate runs fail-fast checks that go beyond what flag parsing alone
// catches, so a misconfiguration is reported before the stdio loop starts
// rather than on the first document it tries to process.
func (c Config) Validate() error {
	if c.LogFile != "" {
		f, err := os.OpenFile(c.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("--log-file %q is not writable: %w", c.LogFile, err)
		}
		f.Close()
	}
	return nil
}

// ErrUsage is returned by Parse whenever the process should print usage and
// exit 1, per the documented CLI contract.
var ErrUsage = fmt.Errorf("usage error")
