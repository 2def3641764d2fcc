package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/orizon-lang/wfcheck/internal/cli"
	"github.com/orizon-lang/wfcheck/internal/diagnostic"
	"github.com/orizon-lang/wfcheck/internal/loader"
	"github.com/orizon-lang/wfcheck/internal/wfcheck"
)

const toolName = "wfcheck"

// debounce coalesces the burst of events editors produce for one save.
const debounce = 100 * time.Millisecond

type options struct {
	config      string
	jobs        int
	features    string
	langVersion string
	format      string
	color       string
	maxErrors   int
	verbose     bool
	debug       bool
	version     bool
	json        bool
	watch       bool
}

func main() {
	var opts options

	flag.StringVar(&opts.config, "config", "", "configuration file (YAML or JSON)")
	flag.IntVar(&opts.jobs, "jobs", 0, "declarations checked in parallel (0 = GOMAXPROCS)")
	flag.StringVar(&opts.features, "features", "", "comma-separated opt-in features")
	flag.StringVar(&opts.langVersion, "lang-version", "", "language version enabling stabilized features")
	flag.StringVar(&opts.format, "format", "", "output format: text or json")
	flag.StringVar(&opts.color, "color", "", "colored output: auto, always or never")
	flag.IntVar(&opts.maxErrors, "max-errors", 0, "stop reporting after N errors (0 = unlimited)")
	flag.BoolVar(&opts.verbose, "v", false, "verbose output")
	flag.BoolVar(&opts.debug, "debug", false, "debug output")
	flag.BoolVar(&opts.version, "version", false, "show version information")
	flag.BoolVar(&opts.json, "json", false, "print version information as JSON")
	flag.BoolVar(&opts.watch, "watch", false, "re-check when a file changes")

	flag.Usage = func() {
		cli.PrintUsage(os.Stderr, toolName, toolName+" [OPTIONS] <file.yaml>...",
			"Check that every declaration of a crate is well-formed.", []cli.FlagInfo{
				{Name: "config", Usage: "configuration file (YAML or JSON)"},
				{Name: "jobs", Usage: "declarations checked in parallel"},
				{Name: "features", Usage: "comma-separated opt-in features"},
				{Name: "lang-version", Usage: "language version enabling stabilized features"},
				{Name: "format", Usage: "output format: text or json"},
				{Name: "color", Usage: "colored output: auto, always or never"},
				{Name: "max-errors", Usage: "stop reporting after N errors"},
				{Name: "v", Usage: "verbose output"},
				{Name: "debug", Usage: "debug output"},
				{Name: "watch", Usage: "re-check when a file changes"},
				{Name: "version", Usage: "show version information"},
			})
	}
	flag.Parse()

	if opts.version {
		cli.PrintVersion(os.Stdout, toolName, opts.json)
		return
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := configure(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log := cli.NewLogger(os.Stderr, cfg.Verbose, cfg.Debug)
	log.Dump("config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	files := flag.Args()
	if opts.watch {
		if err := watch(ctx, cfg, log, files); err != nil {
			log.Error("%v", err)
			os.Exit(1)
		}
		return
	}

	failed, err := checkAll(ctx, cfg, log, files)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if failed {
		os.Exit(1)
	}
}

// configure loads the configuration file and applies the flags that were
// set explicitly on top of it.
func configure(opts options) (*cli.Config, error) {
	cfg, err := cli.LoadConfig(opts.config)
	if err != nil {
		return nil, err
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "jobs":
			cfg.Jobs = opts.jobs
		case "features":
			for _, name := range strings.Split(opts.features, ",") {
				if name = strings.TrimSpace(name); name != "" {
					cfg.Features = append(cfg.Features, name)
				}
			}
		case "lang-version":
			cfg.LanguageVersion = opts.langVersion
		case "format":
			cfg.Format = opts.format
		case "color":
			cfg.Color = opts.color
		case "max-errors":
			cfg.MaxErrors = opts.maxErrors
		case "v":
			cfg.Verbose = opts.verbose
		case "debug":
			cfg.Debug = opts.debug
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// checkAll checks every file and reports whether any declaration failed.
func checkAll(ctx context.Context, cfg *cli.Config, log *cli.Logger, files []string) (bool, error) {
	fs, err := cfg.FeatureSet()
	if err != nil {
		return false, err
	}
	failed := false
	for _, file := range files {
		crate, err := loader.LoadFile(file)
		if err != nil {
			return false, err
		}
		log.Info("loaded %s: crate %s, %d declarations", file, crate.Name, len(crate.Items()))

		res, err := wfcheck.NewDriver(crate, wfcheck.Options{
			Features:       fs,
			Jobs:           cfg.Jobs,
			RecursionLimit: cfg.RecursionLimit,
			MaxErrors:      cfg.MaxErrors,
			Logger:         log,
		}).Run(ctx)
		if err != nil {
			return false, fmt.Errorf("%s: %w", file, err)
		}

		r := diagnostic.NewRenderer(os.Stdout, crate.Sources,
			diagnostic.Format(cfg.Format), diagnostic.ColorMode(cfg.Color))
		if err := r.Render(os.Stdout, res.Diagnostics); err != nil {
			return false, err
		}
		if res.HasErrors() {
			failed = true
		}
	}
	return failed, nil
}

// watch checks files once and then again whenever one of them changes.
// Directories are watched rather than files so that editors replacing a
// file on save keep being observed.
func watch(ctx context.Context, cfg *cli.Config, log *cli.Logger, files []string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	wanted := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		wanted[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	run := func() {
		if _, err := checkAll(ctx, cfg, log, files); err != nil {
			log.Error("%v", err)
		}
	}
	run()

	timer := time.NewTimer(debounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil || !wanted[abs] {
				continue
			}
			log.Debug("%s: %s", ev.Op, ev.Name)
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch: %v", err)
		case <-timer.C:
			log.Info("change detected, re-checking")
			run()
		}
	}
}
