package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/voyagen/stationvault/internal/cache"
	"github.com/voyagen/stationvault/internal/catalog"
	"github.com/voyagen/stationvault/internal/config"
	"github.com/voyagen/stationvault/internal/logger"
	"github.com/voyagen/stationvault/internal/search"
	"github.com/voyagen/stationvault/internal/server"
	"github.com/voyagen/stationvault/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func usage(w io.Writer) {
	fmt.Fprint(w, `stationvault [-config file.yaml] <command> [args]

Commands:
  count                 number of stations in the effective database
  breakdown             base, user and total counts
  lookup <id>           station detail
  field <id> <field>    name or callSign of one station
  search <term>         free-text search
  export-csv [path]     export to CSV (default: timestamped file in export_dir)
  export-json [path]    export to JSON
  export-pg             mirror into Postgres (DATABASE_URL)
  rebuild               regenerate the combined database
  invalidate            delete the combined database
  status                file status as JSON
  serve                 run the HTTP API
`)
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("stationvault", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Optional config file path (YAML); else environment")
	fs.Usage = func() { usage(stderr) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if fs.NArg() == 0 {
		usage(stderr)
		return 1
	}

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	app, cleanup, err := newApp(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	defer cleanup()
	app.out = newConsole(stdout)

	if err := app.dispatch(ctx, fs.Arg(0), fs.Args()[1:]); err != nil {
		fmt.Fprintf(stderr, "%s %v\n", app.out.paint(styleError, "error:"), err)
		return 1
	}
	return 0
}

type app struct {
	cfg *config.Config
	log *zap.Logger
	svc catalog.Service
	out *console
}

// newApp wires the catalog and, when REDIS_URL is set, the Redis cache.
func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, func(), error) {
	cat, err := catalog.New(catalog.Config{
		BasePath:     cfg.BasePath,
		UserPath:     cfg.UserPath,
		CombinedPath: cfg.CombinedPath,
		ExportDir:    cfg.ExportDir,
		Searcher:     search.New(cfg.SearchLimit),
		Logger:       log,
	})
	if err != nil {
		return nil, nil, err
	}

	a := &app{cfg: cfg, log: log, svc: cat}
	cleanup := func() {}
	if cfg.RedisURL == "" {
		log.Debug("redis disabled (REDIS_URL not set)")
		return a, cleanup, nil
	}

	rds, err := cache.New(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	if err := rds.Ping(ctx); err != nil {
		_ = rds.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	a.svc = catalog.NewCached(cat, rds, cfg.CacheTTL, log)
	log.Debug("redis connected (query cache enabled)")
	return a, func() { _ = rds.Close() }, nil
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "count":
		a.out.line("%d", a.svc.Count(ctx))
		return nil
	case "breakdown":
		b := a.svc.Breakdown(ctx)
		a.out.field("Base", fmt.Sprint(b.Base))
		a.out.field("User", fmt.Sprint(b.User))
		a.out.field("Total", fmt.Sprint(b.Total))
		return nil
	case "lookup":
		if len(args) != 1 {
			return errors.New("usage: lookup <id>")
		}
		detail, err := a.svc.Detail(ctx, args[0])
		if err != nil {
			return err
		}
		a.out.detail(detail)
		return nil
	case "field":
		if len(args) != 2 {
			return errors.New("usage: field <id> <name|callSign>")
		}
		v, ok, err := a.svc.Field(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		if !ok {
			v = "N/A"
		}
		a.out.line("%s", v)
		return nil
	case "search":
		if len(args) == 0 {
			return errors.New("usage: search <term>")
		}
		results, err := a.svc.Search(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		a.out.stations(results)
		return nil
	case "export-csv", "export-json":
		if len(args) > 1 {
			return fmt.Errorf("usage: %s [path]", cmd)
		}
		var path string
		if len(args) == 1 {
			path = args[0]
		}
		format := catalog.FormatCSV
		if cmd == "export-json" {
			format = catalog.FormatJSON
		}
		res, err := a.svc.Export(ctx, format, path)
		if err != nil {
			return err
		}
		a.out.line("Exported %d stations to %s", res.Records, res.Path)
		return nil
	case "export-pg":
		return a.exportPostgres(ctx)
	case "rebuild":
		path, err := a.svc.Rebuild(ctx)
		if err != nil {
			return err
		}
		a.out.line("Effective database: %s (%d stations)", path, a.svc.Count(ctx))
		return nil
	case "invalidate":
		if err := a.svc.Invalidate(ctx); err != nil {
			return err
		}
		a.out.line("Combined database removed: %s", a.cfg.CombinedPath)
		return nil
	case "status":
		st, err := a.svc.Status(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(a.out.w)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	case "serve":
		return server.New(a.svc, a.cfg, a.log).ListenAndServe(ctx)
	case "help", "-h", "--help":
		usage(a.out.w)
		return nil
	}
	return fmt.Errorf("unknown command: %s", cmd)
}

func (a *app) exportPostgres(ctx context.Context) error {
	if a.cfg.DatabaseURL == "" {
		return errors.New("export-pg: DATABASE_URL is not set")
	}
	if err := store.RunMigrations(a.cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	pg, err := store.NewPostgres(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pg.Close()

	n, err := a.svc.MirrorTo(ctx, pg)
	if err != nil {
		return err
	}
	a.out.line("Mirrored %d stations to Postgres", n)
	return nil
}
