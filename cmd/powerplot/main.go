package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"powerplot/internal/config"
	"powerplot/internal/database"
	"powerplot/internal/handlers"
	"powerplot/internal/logger"
	"powerplot/internal/metrics"
	"powerplot/internal/publish"
	"powerplot/internal/services"
)

const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

type options struct {
	logDir     string
	quiet      bool
	verbose    bool
	configPath string
	dbPath     string
	exportPath string
	serveAddr  string
	generate   bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		return exitUsage
	}

	level := (&config.Config{Quiet: opts.quiet, Verbose: opts.verbose}).LogLevel()
	logger.Init(level, stderr)

	cfg, err := config.LoadConfigWithDefaults(opts.configPath)
	if err != nil {
		return fatal(err, "failed to load config")
	}
	applyOverrides(cfg, opts)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	generator, err := services.NewGenerator(services.DefaultGenerateParams())
	if err != nil {
		return fatal(err, "failed to create generator")
	}
	pipelineOpts := []services.Option{services.WithGenerator(generator)}

	var db *database.DB
	if cfg.Database.Path != "" {
		db, err = database.NewDB(cfg.Database.Path)
		if err != nil {
			return fatal(err, "failed to initialize database")
		}
		defer db.Close()
		log.Debug().Str("path", cfg.Database.Path).Msg("database initialized")
		pipelineOpts = append(pipelineOpts, services.WithStore(db))
	}
	if cfg.Publish.Bucket != "" {
		client, err := publish.NewS3Client(ctx, cfg.Publish.Region)
		if err != nil {
			return fatal(err, "failed to create S3 client")
		}
		pub, err := publish.NewS3Publisher(client, cfg.Publish)
		if err != nil {
			return fatal(err, "failed to create publisher")
		}
		pipelineOpts = append(pipelineOpts, services.WithPublisher(pub))
	}

	pipeline, err := services.NewPipeline(cfg, pipelineOpts...)
	if err != nil {
		return fatal(err, "invalid configuration")
	}
	if opts.generate {
		if _, err := pipeline.GenerateLogs(); err != nil {
			return fatal(err, "failed to generate logs")
		}
	}
	if _, err := pipeline.Run(ctx); err != nil {
		return fatal(err, "pipeline failed")
	}

	addr := opts.serveAddr
	if addr == "" && cfg.Server.Enabled {
		addr = cfg.ServerAddr()
	}
	if addr == "" {
		return exitOK
	}
	if err := serve(ctx, addr, cfg, pipeline, db); err != nil {
		return fatal(err, "server failed")
	}
	return exitOK
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("powerplot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: powerplot [flags] [logdir]\n\n")
		fmt.Fprintf(fs.Output(), "Renders energy and mean current charts from HTTP/HTTPS power monitor logs.\n\n")
		fs.PrintDefaults()
	}

	opts := &options{}
	fs.BoolVar(&opts.quiet, "q", false, "only log warnings and errors")
	fs.BoolVar(&opts.quiet, "quiet", false, "only log warnings and errors")
	fs.BoolVar(&opts.verbose, "v", false, "log debug detail (quiet wins)")
	fs.BoolVar(&opts.verbose, "verbose", false, "log debug detail (quiet wins)")
	fs.StringVar(&opts.configPath, "config", config.DefaultConfigPath, "Path to config file")
	fs.StringVar(&opts.dbPath, "db", "", "Path to SQLite result store (overrides config)")
	fs.StringVar(&opts.exportPath, "export", "", "Path to gzip JSONL summary export (overrides config)")
	fs.StringVar(&opts.serveAddr, "serve", "", "Serve results on this address after rendering (default from config when server.enabled)")
	fs.BoolVar(&opts.generate, "generate", false, "Write synthetic benchmark logs into logdir first")

	// flags may follow the log directory; everything after "--" is positional
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if consumed := len(args) - len(rest); consumed > 0 && args[consumed-1] == "--" {
			positional = append(positional, rest...)
			break
		}
		if len(rest) == 0 {
			break
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}

	switch len(positional) {
	case 0:
		opts.logDir = "."
	case 1:
		opts.logDir = positional[0]
	default:
		fmt.Fprintf(stderr, "too many arguments: %q\n", positional)
		fs.Usage()
		return nil, errors.New("too many arguments")
	}
	return opts, nil
}

func applyOverrides(cfg *config.Config, opts *options) {
	cfg.LogDir = opts.logDir
	cfg.Quiet = opts.quiet
	cfg.Verbose = opts.verbose
	if opts.dbPath != "" {
		cfg.Database.Path = opts.dbPath
	}
	if opts.exportPath != "" {
		cfg.Export.Path = opts.exportPath
	}
}

func serve(ctx context.Context, addr string, cfg *config.Config, pipeline *services.Pipeline, db *database.DB) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var query *services.QueryService
	if db != nil {
		query = services.NewQueryService(db)
		reg.MustRegister(metrics.New(db))
	}
	router := handlers.NewRouter(handlers.Deps{
		Query:      query,
		Renderer:   pipeline,
		Generator:  pipeline,
		LogDir:     cfg.LogDir,
		ChartNames: []string{cfg.Output.EnergyChart, cfg.Output.CurrentChart},
		Gatherer:   reg,
	})
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func fatal(err error, msg string) int {
	log.WithLevel(zerolog.FatalLevel).Err(err).Msg(msg)
	return exitFatal
}
