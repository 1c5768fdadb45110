package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/conorfennell/studyhash/internal/config"
	"github.com/conorfennell/studyhash/internal/importer"
	"github.com/conorfennell/studyhash/internal/sm2"
	"github.com/conorfennell/studyhash/internal/storage"
	"github.com/conorfennell/studyhash/internal/storage/postgres"
	"github.com/conorfennell/studyhash/internal/study"
	"github.com/conorfennell/studyhash/internal/sweep"
	"github.com/conorfennell/studyhash/internal/web"
)

const usage = `Usage: studyhash [flags] <command> [args]

Commands:
  serve                            Run the HTTP API and the periodic sweeps
  build-queues                     Snapshot today's due cards for every user
  reset-streaks                    Reset streaks of users who missed yesterday
  import <user-id> <name> <file>   Create a deck from a Q:/A: markdown file
  create-user                      Create a user and print its id
  migrate                          Create or update the database schema

Flags:
`

// closingStore is a study.Store that owns a connection.
type closingStore interface {
	study.Store
	Close() error
}

func main() {
	flags := config.NewFlagSet("studyhash")
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	if flags.NArg() == 0 {
		flags.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := config.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, flags.Args()); err != nil {
		log.Error("Command failed", "command", flags.Arg(0), "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger, args []string) error {
	db, err := openStore(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("Database opened successfully", "driver", cfg.DB.Driver)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	sched, err := sm2.NewScheduler(cfg.Scheduler)
	if err != nil {
		return err
	}
	svc := study.NewService(db, sched, loc, log)
	queues := sweep.NewRunner(db, sweep.Options{Location: loc, PageSize: cfg.Queue.PageSize, Logger: log})
	streaks := sweep.NewRunner(db, sweep.Options{Location: loc, PageSize: cfg.Streaks.PageSize, Logger: log})

	switch cmd := args[0]; cmd {
	case "serve":
		return serve(ctx, cfg, log, svc, queues, streaks)
	case "build-queues":
		rep, err := queues.BuildDailyQueues(ctx, time.Now().UTC())
		if err != nil {
			return err
		}
		fmt.Printf("Built %d queues, %d failed.\n", rep.Changed, rep.Failed)
	case "reset-streaks":
		rep, err := streaks.ResetExpiredStreaks(ctx, time.Now().UTC())
		if err != nil {
			return err
		}
		fmt.Printf("Checked %d streaks, reset %d, %d failed.\n", rep.Processed, rep.Changed, rep.Failed)
	case "import":
		return importDeck(ctx, svc, args[1:])
	case "create-user":
		id, err := svc.CreateUser(ctx, time.Now().UTC())
		if err != nil {
			return err
		}
		fmt.Println(id)
	case "migrate":
		// Opening the store already migrated it.
		fmt.Println("Schema is up to date.")
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func openStore(ctx context.Context, c config.DBConfig) (closingStore, error) {
	switch c.Driver {
	case "postgres":
		return postgres.Open(ctx, c.DSN)
	default:
		return storage.Open(ctx, c.DSN)
	}
}

func importDeck(ctx context.Context, svc *study.Service, args []string) error {
	if len(args) != 3 {
		return errors.New("import needs <user-id> <name> <file>")
	}
	userID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}

	contents, dropped, err := importer.ReadFile(args[2])
	if err != nil {
		return fmt.Errorf("parsing %s: %w", args[2], err)
	}
	deck, err := svc.CreateDeck(ctx, userID, args[1], contents, time.Now().UTC())
	if err != nil {
		return err
	}
	fmt.Printf("Created deck %s with %d cards, %d duplicates skipped.\n", deck.ID, deck.CardCount, dropped)
	return nil
}

// serve runs the HTTP server and both sweeps until ctx is cancelled.
func serve(ctx context.Context, cfg config.Config, log *slog.Logger, svc *study.Service, queues, streaks *sweep.Runner) error {
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           web.NewServer(svc, queues, streaks, web.Options{Logger: log, MaxImportBytes: cfg.HTTP.MaxImportBytes}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Starting server", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return sweep.Every(ctx, cfg.Queue.Interval, log, queues.BuildDailyQueues)
	})
	g.Go(func() error {
		return sweep.Every(ctx, cfg.Streaks.Interval, log, streaks.ResetExpiredStreaks)
	})
	return g.Wait()
}
