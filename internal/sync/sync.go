// Package sync reconciles card sources with the store: cards found in a
// source are linked to review tracking for the learner, and cards that have
// disappeared from every source are removed along with their review records.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/conorfennell/recall/internal/gitsource"
	"github.com/conorfennell/recall/internal/knol"
	"github.com/conorfennell/recall/internal/parser"
	"github.com/conorfennell/recall/internal/storage"
)

// Syncer reconciles sources for one learner.
type Syncer struct {
	DB        *storage.DB
	LearnerID string
	// ReposDir is where git sources are checked out.
	ReposDir string
	// Now supplies the current time in the learner's location.
	Now func() time.Time
	// Progress receives git clone and pull output. May be nil.
	Progress io.Writer
}

// Report summarizes the reconciliation of one source.
type Report struct {
	SourceID int64
	Path     string
	Parsed   int
	Inserted int
	Linked   int
	// Detached counts cards no longer in this source; Orphaned counts
	// those that were in no other source either and were deleted.
	Detached int
	Orphaned int
	Errors   []error
}

// AddSource registers a local directory or git URL as a card source. The
// type is inferred from the path.
func AddSource(ctx context.Context, db *storage.DB, path string) (*storage.Source, error) {
	sourceType := storage.SourceLocal
	if gitsource.IsGitURL(path) {
		sourceType = storage.SourceGit
	} else {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve source path %s: %w", path, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("source path %s: %w", abs, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("source path %s is not a directory", abs)
		}
		path = abs
	}

	if existing, err := db.FindSourceByPath(ctx, path); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	id, err := db.InsertSource(ctx, path, sourceType)
	if err != nil {
		return nil, err
	}
	slog.Info("Source added", "id", id, "type", sourceType, "path", path)
	return &storage.Source{ID: id, Path: path, Type: sourceType}, nil
}

// Run iterates over all sources and reconciles them. A source that fails is
// logged and skipped; the returned error joins every source failure.
func (s *Syncer) Run(ctx context.Context) ([]Report, error) {
	slog.Info("Starting sync process for all sources...")
	sources, err := s.DB.GetAllSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}

	if len(sources) == 0 {
		slog.Info("No sources configured. Add one with: recall add-source <path/or/url.git>")
		return nil, nil
	}

	var (
		reports []Report
		errs    []error
	)
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		report, err := s.SyncSource(ctx, source)
		if err != nil {
			slog.Error("Error syncing source", "id", source.ID, "path", source.Path, "error", err)
			errs = append(errs, fmt.Errorf("source %d: %w", source.ID, err))
			continue
		}
		reports = append(reports, report)
	}
	slog.Info("Sync process complete.", "sources", len(sources), "failed", len(errs))
	return reports, errors.Join(errs...)
}

// SyncSource brings one source up to date and reconciles its cards.
func (s *Syncer) SyncSource(ctx context.Context, source storage.Source) (Report, error) {
	slog.Info("Syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

	dir := source.Path
	if source.Type == storage.SourceGit {
		localRepoPath, err := gitsource.LocalPath(s.ReposDir, source.Path)
		if err != nil {
			return Report{}, err
		}
		if err := os.MkdirAll(filepath.Dir(localRepoPath), 0o755); err != nil {
			return Report{}, fmt.Errorf("failed to create repos directory: %w", err)
		}
		if err := gitsource.Sync(ctx, source.Path, localRepoPath, s.Progress); err != nil {
			return Report{}, err
		}
		dir = localRepoPath
	}
	return s.reconcile(ctx, source, dir)
}

func (s *Syncer) reconcile(ctx context.Context, source storage.Source, dir string) (Report, error) {
	report := Report{SourceID: source.ID, Path: source.Path}
	found := make(map[string]bool)
	now := s.now()

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		cards, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			report.Errors = append(report.Errors, fmt.Errorf("parsing %s: %w", path, parseErr))
		}
		for _, card := range knol.Assign(cards) {
			report.Parsed++
			if found[card.Hash] {
				continue
			}
			found[card.Hash] = true

			existing, err := s.DB.FindCardByHash(ctx, card.Hash)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Errorf("db check for %s: %w", card.Hash, err))
				continue
			}
			if existing == nil {
				slog.Debug("New card found, inserting", "hash", card.Hash)
				if err := s.DB.InsertCard(ctx, card, source.ID); err != nil {
					report.Errors = append(report.Errors, err)
					continue
				}
				report.Inserted++
			} else if err := s.DB.AttachCard(ctx, card.Hash, source.ID); err != nil {
				report.Errors = append(report.Errors, err)
				continue
			}

			linked, err := s.DB.LinkReview(ctx, s.LearnerID, card.Hash, now)
			if err != nil {
				report.Errors = append(report.Errors, err)
				continue
			}
			if linked {
				report.Linked++
			}
		}
		return ctx.Err()
	})
	if walkErr != nil {
		return report, fmt.Errorf("error walking directory %s: %w", dir, walkErr)
	}

	dbCards, err := s.DB.GetCardsBySourceID(ctx, source.ID)
	if err != nil {
		return report, err
	}
	for _, dbCard := range dbCards {
		if found[dbCard.Hash] {
			continue
		}
		deleted, err := s.DB.DetachCard(ctx, dbCard.Hash, source.ID)
		if err != nil {
			slog.Warn("Failed to detach orphaned card", "hash", dbCard.Hash, "error", err)
			report.Errors = append(report.Errors, err)
			continue
		}
		slog.Info("Card removed from source", "hash", dbCard.Hash, "deleted", deleted)
		report.Detached++
		if deleted {
			report.Orphaned++
		}
	}

	if err := s.DB.UpdateSourceLastScanned(ctx, source.ID); err != nil {
		slog.Warn("Failed to update last scanned for source", "source_id", source.ID, "error", err)
	}

	slog.Info("reconciliation complete",
		"path", source.Path,
		"parsed_cards", report.Parsed,
		"inserted", report.Inserted,
		"linked", report.Linked,
		"detached", report.Detached,
		"orphaned_deleted", report.Orphaned,
		"errors", len(report.Errors),
	)
	return report, nil
}

func (s *Syncer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
