package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/yourorg/vehicle-search/internal/vehicle"
)

// Lister pages through every vehicle id the catalog holds. page is 1-based.
type Lister interface {
	ListIDs(ctx context.Context, page, size int) ([]vehicle.ID, bool, error)
}

type SweepConfig struct {
	// Interval between sweeps; zero means Run sweeps once and returns.
	Interval time.Duration
	PageSize int
	// Rate caps sync calls per second; zero means unpaced.
	Rate           float64
	RequestTimeout time.Duration
}

// SweepReport summarizes one pass.
type SweepReport struct {
	Seen     int           `json:"seen"`
	Indexed  int           `json:"indexed"`
	NotFound int           `json:"not_found"`
	Failed   int           `json:"failed"`
	Took     time.Duration `json:"took"`
}

// Sweeper re-syncs every catalog vehicle into the index. It repairs
// documents lost to dropped notifications; it never removes orphans.
type Sweeper struct {
	Lister Lister
	Syncer *Syncer
	Logger *slog.Logger
	Config SweepConfig

	running atomic.Bool
}

// ErrSweepRunning is returned when a sweep is requested while one runs.
var ErrSweepRunning = errors.New("indexer: sweep already running")

func (s *Sweeper) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Sweeper) validate() error {
	if s == nil {
		return errors.New("nil sweeper")
	}
	if s.Lister == nil {
		return errors.New("sweeper missing lister")
	}
	if s.Syncer == nil || s.Syncer.Fetcher == nil || s.Syncer.Index == nil {
		return errors.New("sweeper requires a syncer with fetcher and index")
	}
	return nil
}

func (s *Sweeper) Run(ctx context.Context) error {
	if err := s.validate(); err != nil {
		return err
	}
	interval := s.Config.Interval
	if interval <= 0 {
		_, err := s.RunOnce(ctx)
		return err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.log().Info("reindex sweeper starting", "interval", interval)
	if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.log().Error("initial reindex sweep finished with errors", "error", err)
	}
	for {
		select {
		case <-ctx.Done():
			s.log().Info("reindex sweeper stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, ErrSweepRunning) {
				s.log().Error("reindex sweep finished with errors", "error", err)
			}
		}
	}
}

// Running reports whether a sweep is in progress.
func (s *Sweeper) Running() bool { return s.running.Load() }

// RunOnce performs one full pass. Per-vehicle failures do not stop the
// pass; they come back joined.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepReport, error) {
	if err := s.validate(); err != nil {
		return SweepReport{}, err
	}
	if !s.running.CompareAndSwap(false, true) {
		return SweepReport{}, ErrSweepRunning
	}
	defer s.running.Store(false)

	pageSize := s.Config.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	timeout := s.Config.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	var limiter *rate.Limiter
	if s.Config.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.Config.Rate), 1)
	}

	start := time.Now()
	var (
		report SweepReport
		joined error
	)
	for page := 1; ; page++ {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		ids, more, err := s.Lister.ListIDs(ctx, page, pageSize)
		if err != nil {
			return report, errors.Join(joined, fmt.Errorf("list page %d: %w", page, err))
		}
		for _, id := range ids {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return report, err
				}
			}
			reqCtx, cancel := context.WithTimeout(ctx, timeout)
			outcome, err := s.Syncer.Sync(reqCtx, id)
			cancel()
			report.Seen++
			switch outcome {
			case OutcomeIndexed:
				report.Indexed++
			case OutcomeNotFound:
				report.NotFound++
			default:
				report.Failed++
			}
			if err != nil {
				if ctx.Err() != nil {
					return report, ctx.Err()
				}
				s.log().Warn("reindex sync failed", "vehicle_id", id.String(), "outcome", outcome, "error", err)
				joined = errors.Join(joined, err)
			}
		}
		if !more {
			break
		}
	}
	report.Took = time.Since(start)
	s.log().Info("reindex sweep complete",
		"seen", report.Seen,
		"indexed", report.Indexed,
		"not_found", report.NotFound,
		"failed", report.Failed,
		"duration_ms", report.Took.Milliseconds(),
	)
	return report, joined
}
