package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper deletes files older than the retention window from a flat
// directory, whether or not a live response still references them.
type Sweeper struct {
	dir        string
	retention  time.Duration
	interval   time.Duration
	retryAfter time.Duration
	log        zerolog.Logger
}

// NewSweeper creates a Sweeper.
func NewSweeper(dir string, retention, interval, retryAfter time.Duration, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		dir:        dir,
		retention:  retention,
		interval:   interval,
		retryAfter: retryAfter,
		log:        log.With().Str("component", "sweeper").Str("dir", dir).Logger(),
	}
}

// Sweep removes regular files last modified before now-retention.
func (s *Sweeper) Sweep(now time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read media dir: %w", err)
	}

	cutoff := now.Add(-s.retention)
	removed := 0
	var firstErr error
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		removed++
	}
	return removed, firstErr
}

// Run sweeps immediately and then every interval until ctx is done.
// After a failed sweep the next attempt comes after retryAfter instead.
func (s *Sweeper) Run(ctx context.Context) {
	for {
		wait := s.interval
		removed, err := s.Sweep(time.Now())
		if err != nil {
			s.log.Error().Err(err).Dur("retry_in", s.retryAfter).Msg("Media sweep failed")
			wait = s.retryAfter
		} else {
			s.log.Info().Int("removed", removed).Msg("Media sweep finished")
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
