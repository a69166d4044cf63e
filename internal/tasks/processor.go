package tasks

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"bookmarket/internal/models"
	"bookmarket/internal/queue"
	"bookmarket/internal/storage"
)

// ImageRemover deletes objects behind image URLs we host.
type ImageRemover interface {
	KeyFor(rawURL string) (string, bool)
	Remove(ctx context.Context, key string) error
}

type ListingIndex interface {
	CountByStatus(ctx context.Context, status models.ListingStatus) (int, error)
	ImageInUse(ctx context.Context, url string) (bool, error)
}

type Processor struct {
	logger   zerolog.Logger
	images   ImageRemover
	listings ListingIndex
}

func NewProcessor(logger zerolog.Logger, images ImageRemover, listings ListingIndex) *Processor {
	return &Processor{
		logger:   logger,
		images:   images,
		listings: listings,
	}
}

func (p *Processor) Handle(ctx context.Context, event queue.Event) error {
	switch event.Type {
	case queue.EventListingDeleted:
		return p.handleDeleted(ctx, event)
	case queue.EventListingSubmitted:
		p.logger.Info().Str("listing_id", event.ListingID).Str("owner_id", event.OwnerID).Msg("listing awaiting review")
		return nil
	case queue.EventListingApproved, queue.EventListingRejected:
		p.logger.Info().
			Str("listing_id", event.ListingID).
			Str("owner_id", event.OwnerID).
			Str("decision", string(event.Type)).
			Msg("moderation decision")
		return nil
	case queue.EventModerationDigest:
		return p.handleDigest(ctx)
	default:
		p.logger.Warn().Str("type", string(event.Type)).Msg("unknown event type")
		return nil
	}
}

// handleDeleted removes the stored images of a deleted listing. Only objects
// the listing owner uploaded are touched, and only once no other listing
// references them. A failed removal fails the event so it is retried.
func (p *Processor) handleDeleted(ctx context.Context, event queue.Event) error {
	var failed, removed int
	for _, url := range event.Images {
		key, ok := p.images.KeyFor(url)
		if !ok {
			continue
		}
		if !storage.OwnedBy(key, event.OwnerID) {
			p.logger.Warn().
				Str("listing_id", event.ListingID).
				Str("owner_id", event.OwnerID).
				Str("key", key).
				Msg("skip image not uploaded by listing owner")
			continue
		}

		inUse, err := p.listings.ImageInUse(ctx, url)
		if err != nil {
			p.logger.Warn().Err(err).Str("key", key).Msg("check image references failed")
			failed++
			continue
		}
		if inUse {
			p.logger.Info().Str("key", key).Msg("image still referenced, kept")
			continue
		}

		if err := p.images.Remove(ctx, key); err != nil {
			p.logger.Warn().Err(err).Str("key", key).Msg("remove image failed")
			failed++
			continue
		}
		removed++
	}
	if failed > 0 {
		return fmt.Errorf("remove images of listing %s: %d failed", event.ListingID, failed)
	}
	p.logger.Info().Str("listing_id", event.ListingID).Int("removed", removed).Msg("listing images cleaned up")
	return nil
}

func (p *Processor) handleDigest(ctx context.Context) error {
	pending, err := p.listings.CountByStatus(ctx, models.ListingStatusPending)
	if err != nil {
		return fmt.Errorf("count pending listings: %w", err)
	}
	p.logger.Info().Int("pending", pending).Msg("moderation digest")
	return nil
}
