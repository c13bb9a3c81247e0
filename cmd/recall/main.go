package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/recall/internal/config"
	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/session"
	"github.com/conorfennell/recall/internal/sm2"
	"github.com/conorfennell/recall/internal/storage"
	srcsync "github.com/conorfennell/recall/internal/sync"
	"github.com/conorfennell/recall/internal/web"
)

const usage = `Usage: recall [flags] <command>

Commands:
  serve              Start the HTTP API
  sync               Sync all sources and link new cards for the learner
  add-source <path>  Add a local directory or git URL as a card source
  due                List the cards due today
  review             Review due cards in the terminal

Flags:
`

func main() {
	fs := pflag.NewFlagSet("recall", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, fs.Arg(0), fs.Args()[1:]); err != nil {
		slog.Error("Command failed", "command", fs.Arg(0), "error", err)
		stop()
		os.Exit(1)
	}
}

// app bundles what every command needs.
type app struct {
	cfg    *config.Config
	db     *storage.DB
	syncer *srcsync.Syncer
	now    func() time.Time
}

func run(ctx context.Context, cfg *config.Config, command string, args []string) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	db, err := storage.Open(ctx, storage.Options{Driver: cfg.DB.Driver, DSN: cfg.DB.DSN, Location: loc})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	slog.Debug("Database opened successfully", "driver", cfg.DB.Driver)

	now := func() time.Time { return time.Now().In(loc) }
	a := &app{
		cfg: cfg,
		db:  db,
		syncer: &srcsync.Syncer{
			DB:        db,
			LearnerID: cfg.Learner,
			ReposDir:  cfg.ReposDir,
			Now:       now,
			Progress:  os.Stderr,
		},
		now: now,
	}

	switch command {
	case "serve":
		return a.serve(ctx)
	case "sync":
		return a.sync(ctx)
	case "add-source":
		if len(args) != 1 {
			return errors.New("usage: recall add-source <path/or/url.git>")
		}
		return a.addSource(ctx, args[0])
	case "due":
		return a.due(ctx)
	case "review":
		sess, err := session.Start(ctx, db, cfg.Learner, now)
		if err != nil {
			return err
		}
		return runReview(ctx, sess, os.Stdin, os.Stdout, now)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           web.NewServer(a.db, a.syncer, a.cfg.Learner, a.now),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "addr", srv.Addr, "learner", a.cfg.Learner)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (a *app) sync(ctx context.Context) error {
	reports, err := a.syncer.Run(ctx)
	for _, r := range reports {
		fmt.Printf("%s: %d parsed, %d new, %d linked, %d detached, %d removed, %d errors\n",
			r.Path, r.Parsed, r.Inserted, r.Linked, r.Detached, r.Orphaned, len(r.Errors))
		for _, e := range r.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	return err
}

func (a *app) addSource(ctx context.Context, path string) error {
	src, err := srcsync.AddSource(ctx, a.db, path)
	if err != nil {
		return err
	}
	fmt.Printf("Source %d (%s): %s\n", src.ID, src.Type, src.Path)
	return nil
}

func (a *app) due(ctx context.Context) error {
	today := a.now()
	reviews, err := a.db.DueReviews(ctx, a.cfg.Learner, today)
	if err != nil {
		return err
	}
	writeDue(os.Stdout, a.cfg.Learner, reviews, today)
	return nil
}

func writeDue(w io.Writer, learner string, reviews []domain.Review, today time.Time) {
	fmt.Fprintf(w, "%d cards due for %s\n", len(reviews), learner)
	for _, r := range reviews {
		fmt.Fprintf(w, "  %-8.8s  %-20s  %s\n", r.Card.Hash, sm2.DescribeDue(r.State.DueDate, today), r.Card.Front)
	}
}
