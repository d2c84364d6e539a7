package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"graphfs/internal/engine"
	"graphfs/internal/logging"
	"graphfs/internal/metrics"
	"graphfs/internal/platform"
	"graphfs/internal/search"
	"graphfs/internal/store"
	"graphfs/internal/tree"
)

const version = "0.4.0"

// Top-files bounds for scans.
const (
	defaultTopFiles = search.DefaultTopFiles
	minTopFiles     = 10
)

type config struct {
	serve       string
	root        string
	engine      string
	itemsPerDir int
	timeWindow  time.Duration
	topFiles    int
	db          string
	logLevel    string
	logFormat   string
	metricsAddr string
	version     bool
	help        bool
}

func usage(fs *pflag.FlagSet) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "Usage: graphfs [options]\n\n")
		fmt.Fprintf(os.Stderr, "graphfs draws a directory tree as a radial graph of its most recently\n")
		fmt.Fprintf(os.Stderr, "modified files and folders.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  graphfs                       # Desktop window, last scan or home folder\n")
		fmt.Fprintf(os.Stderr, "  graphfs -r ~/src -n 5         # Scan ~/src, five items per folder\n")
		fmt.Fprintf(os.Stderr, "  graphfs -s :8000              # Serve the viewer on http://localhost:8000\n")
		fmt.Fprintf(os.Stderr, "  graphfs --time-window 168h    # Only what changed in the last week\n")
	}
}

// parseFlags reads args (without the program name) into a config. Out of
// range values are clamped, not rejected.
func parseFlags(args []string) (*config, error) {
	cfg := &config{}
	fs := pflag.NewFlagSet("graphfs", pflag.ContinueOnError)
	fs.Usage = usage(fs)

	fs.StringVarP(&cfg.serve, "serve", "s", "", "Serve the viewer over HTTP on `ADDR` instead of opening a window")
	fs.StringVarP(&cfg.root, "root", "r", "", "Folder to scan at startup (default: the last saved scan, else the home folder)")
	fs.StringVarP(&cfg.engine, "engine", "e", "", "Scan engine id (walk, locate, everything); default: first available")
	fs.IntVarP(&cfg.itemsPerDir, "items-per-dir", "n", tree.DefaultItemsPerDir, "Subfolders and files shown per folder (1-10)")
	fs.DurationVar(&cfg.timeWindow, "time-window", 0, "Only show items modified within this duration (0 shows everything)")
	fs.IntVar(&cfg.topFiles, "top-files", defaultTopFiles, "Keep the N most recently modified files of a scan (minimum 10)")
	fs.StringVar(&cfg.db, "db", "", "Scan database file (default: graphfs.db in the user config folder)")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.logFormat, "log-format", "console", "Log format: console, json")
	fs.StringVar(&cfg.metricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address in desktop mode")
	fs.BoolVarP(&cfg.version, "version", "V", false, "Print version information")
	fs.BoolVarP(&cfg.help, "help", "h", false, "Show this help message")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	if cfg.help {
		fs.Usage()
	}

	f := tree.Filter{TimeWindow: cfg.timeWindow, ItemsPerDir: cfg.itemsPerDir}.Normalize()
	cfg.itemsPerDir, cfg.timeWindow = f.ItemsPerDir, f.TimeWindow
	if cfg.topFiles < minTopFiles {
		cfg.topFiles = minTopFiles
	}
	return cfg, nil
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "graphfs:", err)
		os.Exit(2)
	}
	if cfg.help {
		return
	}
	if cfg.version {
		fmt.Printf("graphfs version %s\n", version)
		return
	}

	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "graphfs:", err)
		os.Exit(1)
	}
}

func run(cfg *config) error {
	if err := logging.Init(logging.Config{Level: cfg.logLevel, Format: cfg.logFormat}); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer func() { _ = logging.Sync() }()
	log := logging.L()

	app, closeApp, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer closeApp()

	if cfg.serve != "" {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg.serve, app, log)
	}

	if cfg.metricsAddr != "" {
		go func() {
			log.Info("metrics listening", zap.String("addr", cfg.metricsAddr))
			if err := http.ListenAndServe(cfg.metricsAddr, metrics.Handler()); err != nil {
				log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}
	return runDesktop(app)
}

// newApp picks the scan engine, opens the scan database and builds the App
// on top of them. The returned func releases what newApp opened.
func newApp(cfg *config, log *zap.Logger) (*App, func(), error) {
	mgr := search.DefaultManager(search.DefaultProfile(), log)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if cfg.engine != "" {
		if err := mgr.SetCurrent(cfg.engine); err != nil {
			return nil, nil, err
		}
	} else if _, err := mgr.Detect(ctx); err != nil {
		log.Warn("no scan engine available", zap.Error(err))
	}

	dbPath := cfg.db
	if dbPath == "" {
		p, err := store.DefaultPath()
		if err != nil {
			return nil, nil, err
		}
		dbPath = p
	}

	var (
		opts    []engine.Option
		archive scanArchive
	)
	st, err := store.Open(dbPath, log)
	if err != nil {
		// The viewer still works without persistence.
		log.Warn("scan database unavailable", zap.String("path", dbPath), zap.Error(err))
	} else {
		opts = append(opts, engine.WithStore(st))
		archive = st
	}

	opts = append(opts,
		engine.WithLogger(log),
		engine.WithTopFiles(cfg.topFiles),
		engine.WithFilter(tree.Filter{TimeWindow: cfg.timeWindow, ItemsPerDir: cfg.itemsPerDir}),
	)
	eng := engine.New(mgr, opts...)

	root := ""
	if cfg.root != "" {
		root = platform.Impl.Canonicalize(cfg.root)
	}
	app := NewApp(eng, mgr, archive, root, log)
	return app, func() {
		if st != nil {
			if err := st.Close(); err != nil {
				log.Warn("closing scan database", zap.Error(err))
			}
		}
	}, nil
}
