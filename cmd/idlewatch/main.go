package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/Veraticus/idlewatch/pkg/config"
)

// options holds the command line flags
type options struct {
	configPath    string
	limit         float64
	interval      time.Duration
	disabled      []string
	mouseTracking bool
	topic         string
	quiet         bool
	debug         bool
	help          bool
}

func newFlagSet(opts *options) *flag.FlagSet {
	fs := flag.NewFlagSet("idlewatch", flag.ContinueOnError)
	// Everything after the first positional argument belongs to the command
	fs.SetInterspersed(false)

	fs.StringVar(&opts.configPath, "config", "", "Path to config file")
	fs.Float64VarP(&opts.limit, "limit", "l", 0, "Inactivity limit in minutes (default 15)")
	fs.DurationVarP(&opts.interval, "interval", "i", 0, "Sampling interval, e.g. 500ms (default 1s)")
	fs.StringSliceVarP(&opts.disabled, "disable", "d", nil, "Event kinds to ignore (mousemove, touchmove, wheel, mousedown, touchend, keypress)")
	fs.BoolVar(&opts.mouseTracking, "mouse", false, "Enable terminal mouse tracking")
	fs.StringVar(&opts.topic, "topic", "", "Ntfy topic for idle notifications")
	fs.BoolVarP(&opts.quiet, "quiet", "q", false, "Disable idle notifications")
	fs.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	fs.BoolVarP(&opts.help, "help", "h", false, "Show help message")

	return fs
}

// applyFlags overrides configuration with flags that were set explicitly
func applyFlags(cfg *config.Config, fs *flag.FlagSet, opts *options) error {
	if fs.Changed("limit") {
		cfg.InactivityLimit = opts.limit
	}
	if fs.Changed("interval") {
		cfg.SamplingInterval = opts.interval
	}
	if fs.Changed("disable") {
		cfg.DisabledEvents = opts.disabled
	}
	if fs.Changed("mouse") {
		cfg.MouseTracking = opts.mouseTracking
	}
	if fs.Changed("topic") {
		cfg.NtfyTopic = opts.topic
	}
	if fs.Changed("quiet") {
		cfg.Quiet = opts.quiet
	}
	if fs.Changed("debug") {
		cfg.Debug = opts.debug
	}

	return config.Validate(cfg)
}

// resolveCommand returns the command to watch, defaulting to the user's shell
func resolveCommand(args []string) (string, []string) {
	if len(args) > 0 {
		return args[0], args[1:]
	}
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell, nil
	}
	return "/bin/sh", nil
}

// newLogger builds the stderr logger. Stdin is in raw mode while the command
// runs, so line endings need a carriage return.
func newLogger(cfg *config.Config, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(&crlfWriter{w: out})
	log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: false,
		FullTimestamp:    true,
	})
	if cfg.Debug {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// crlfWriter rewrites bare newlines as CRLF
type crlfWriter struct {
	w io.Writer
}

func (c *crlfWriter) Write(p []byte) (int, error) {
	converted := bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))
	if _, err := c.w.Write(converted); err != nil {
		return 0, err
	}
	return len(p), nil
}

func main() {
	opts := &options{}
	fs := newFlagSet(opts)

	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if opts.help {
		printUsage(fs)
		os.Exit(0)
	}

	// The config path has to be known before loading
	if opts.configPath != "" {
		if err := os.Setenv("IDLEWATCH_CONFIG", opts.configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error setting config path: %v\n", err)
			os.Exit(1)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := applyFlags(cfg, fs, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg, os.Stderr)
	command, args := resolveCommand(fs.Args())

	deps := NewDependencies(cfg, log, command)
	app := NewApplication(deps)

	// Ensure terminal restoration on panic
	defer func() {
		if r := recover(); r != nil {
			_ = app.Stop()
			panic(r)
		}
	}()

	log.WithFields(logrus.Fields{
		"limit":    cfg.InactivityLimit,
		"interval": cfg.SamplingInterval,
		"disabled": cfg.DisabledEvents,
	}).Debug("watching for inactivity")

	if err := app.Run(command, args); err != nil {
		log.WithError(err).Error("failed to run command")
		deps.Close()
		os.Exit(1)
	}

	deps.Close()
	os.Exit(app.ExitCode())
}

func printUsage(fs *flag.FlagSet) {
	fmt.Println("idlewatch - run a command and report when its user goes idle")
	fmt.Println()
	fmt.Println("Usage: idlewatch [OPTIONS] [--] [COMMAND [ARGS...]]")
	fmt.Println()
	fmt.Println("Options:")
	fs.PrintDefaults()
	fmt.Println()
	fmt.Println("COMMAND defaults to $SHELL")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  IDLEWATCH_LIMIT            Inactivity limit in minutes (default: 15)")
	fmt.Println("  IDLEWATCH_INTERVAL         Sampling interval (default: 1s)")
	fmt.Println("  IDLEWATCH_DISABLED_EVENTS  Event kinds to ignore (comma-separated)")
	fmt.Println("  IDLEWATCH_MOUSE            Enable terminal mouse tracking (true/false)")
	fmt.Println("  IDLEWATCH_NTFY_TOPIC       Ntfy topic for idle notifications")
	fmt.Println("  IDLEWATCH_NTFY_SERVER      Ntfy server URL (default: https://ntfy.sh)")
	fmt.Println("  IDLEWATCH_QUIET            Disable notifications (true/false)")
	fmt.Println("  IDLEWATCH_DEBUG            Enable debug logging (true/false)")
	fmt.Println("  IDLEWATCH_CONFIG           Path to config file")
	fmt.Println("  IDLEWATCH_ENV_FILE         Path to dotenv file (default: idlewatch.env beside config)")
	fmt.Println()
	fmt.Println("Configuration file: ~/.config/idlewatch/config.yaml")
}
