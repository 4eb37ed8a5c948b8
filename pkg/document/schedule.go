// ABOUTME: Cron-scheduled corpus reloads for pipelines that rewrite the file in place
// ABOUTME: Complements the fsnotify watcher on filesystems without change events

package document

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ReloadScheduler reloads a Corpus on a cron schedule.
type ReloadScheduler struct {
	corpus   *Corpus
	cron     *cron.Cron
	schedule string
	log      zerolog.Logger
}

// NewReloadScheduler parses expr, a standard five-field cron expression or
// a descriptor such as "@hourly" or "@every 10m".
func NewReloadScheduler(c *Corpus, expr string) (*ReloadScheduler, error) {
	s := &ReloadScheduler{
		corpus:   c,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		schedule: expr,
		log:      c.log.With().Str("subcomponent", "scheduler").Logger(),
	}

	if _, err := s.cron.AddFunc(expr, s.reload); err != nil {
		return nil, fmt.Errorf("invalid reload schedule %q: %w", expr, err)
	}
	return s, nil
}

// Run starts the schedule and blocks until ctx is cancelled. Running
// reloads are allowed to finish before it returns.
func (s *ReloadScheduler) Run(ctx context.Context) error {
	s.cron.Start()
	s.log.Info().Str("schedule", s.schedule).Msg("Corpus reload scheduler started")

	<-ctx.Done()
	<-s.cron.Stop().Done()

	s.log.Info().Msg("Corpus reload scheduler stopped")
	return nil
}

// Next reports when the next reload is due, or the zero time before Run.
func (s *ReloadScheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *ReloadScheduler) reload() {
	if err := s.corpus.Reload(context.Background()); err != nil {
		s.log.Error().Err(err).Msg("Scheduled corpus reload failed")
		return
	}
	s.log.Debug().Msg("Scheduled corpus reload complete")
}
