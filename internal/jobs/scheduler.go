package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"bookmarket/internal/queue"
)

type EventPublisher interface {
	Publish(ctx context.Context, event queue.Event) error
}

type Scheduler struct {
	cron      *cron.Cron
	publisher EventPublisher
	log       zerolog.Logger
}

func NewScheduler(publisher EventPublisher, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		publisher: publisher,
		log:       log,
	}
}

func (s *Scheduler) Start() error {
	if s.publisher == nil {
		return nil
	}

	if _, err := s.cron.AddFunc("0 0 * * * *", s.enqueueDigest); err != nil { // hourly
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits up to five seconds for running jobs.
func (s *Scheduler) Stop() {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-time.After(5 * time.Second):
	}
}

func (s *Scheduler) enqueueDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.publisher.Publish(ctx, queue.Event{Type: queue.EventModerationDigest}); err != nil {
		s.log.Error().Err(err).Msg("enqueue moderation digest failed")
	}
}
