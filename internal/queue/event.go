package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	EventListingSubmitted EventType = "listing.submitted"
	EventListingApproved  EventType = "listing.approved"
	EventListingRejected  EventType = "listing.rejected"
	EventListingDeleted   EventType = "listing.deleted"
	EventModerationDigest EventType = "moderation.digest"
)

// Event is one entry on the listings stream.
type Event struct {
	Type       EventType
	ListingID  string
	OwnerID    string
	Images     []string
	OccurredAt time.Time
}

// Values flattens the event into stream fields. Redis stream values are flat
// strings, so the image list travels as JSON.
func (e Event) Values() (map[string]any, error) {
	values := map[string]any{
		"type":       string(e.Type),
		"occurredAt": e.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
	if e.ListingID != "" {
		values["listingId"] = e.ListingID
	}
	if e.OwnerID != "" {
		values["ownerId"] = e.OwnerID
	}
	if len(e.Images) > 0 {
		images, err := json.Marshal(e.Images)
		if err != nil {
			return nil, fmt.Errorf("encode images: %w", err)
		}
		values["images"] = string(images)
	}
	return values, nil
}

func DecodeEvent(values map[string]any) (Event, error) {
	str := func(key string) string {
		s, _ := values[key].(string)
		return s
	}

	event := Event{
		Type:      EventType(str("type")),
		ListingID: str("listingId"),
		OwnerID:   str("ownerId"),
	}
	if event.Type == "" {
		return Event{}, fmt.Errorf("event without type")
	}
	if at := str("occurredAt"); at != "" {
		parsed, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return Event{}, fmt.Errorf("decode occurredAt: %w", err)
		}
		event.OccurredAt = parsed
	}
	if images := str("images"); images != "" {
		if err := json.Unmarshal([]byte(images), &event.Images); err != nil {
			return Event{}, fmt.Errorf("decode images: %w", err)
		}
	}
	return event, nil
}
