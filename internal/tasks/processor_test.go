package tasks

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookmarket/internal/models"
	"bookmarket/internal/queue"
	"bookmarket/internal/storage"
)

const base = "https://cdn.example.com/bookmarket-images"

type fakeImages struct {
	removed []string
	fail    map[string]bool
}

func (f *fakeImages) KeyFor(rawURL string) (string, bool) {
	return storage.KeyFromURL(base, rawURL)
}

func (f *fakeImages) Remove(_ context.Context, key string) error {
	if f.fail[key] {
		return errors.New("boom")
	}
	f.removed = append(f.removed, key)
	return nil
}

type fakeIndex struct {
	count    int
	err      error
	inUse    map[string]bool
	inUseErr error
}

func (f fakeIndex) CountByStatus(context.Context, models.ListingStatus) (int, error) {
	return f.count, f.err
}

func (f fakeIndex) ImageInUse(_ context.Context, url string) (bool, error) {
	return f.inUse[url], f.inUseErr
}

const owner = "2bTnCFYvzWZJtbV6wq4QzMhP8xL"

func TestHandleDeletedRemovesOwnImages(t *testing.T) {
	images := &fakeImages{}
	p := NewProcessor(zerolog.Nop(), images, fakeIndex{})

	err := p.Handle(context.Background(), queue.Event{
		Type:      queue.EventListingDeleted,
		ListingID: "l1",
		OwnerID:   owner,
		Images: []string{
			base + "/" + owner + "/2026/01/02/a.png",
			"https://i.imgur.com/foreign.png",
			base + "/" + owner + "/2026/01/02/b.jpg",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{owner + "/2026/01/02/a.png", owner + "/2026/01/02/b.jpg"}, images.removed)
}

func TestHandleDeletedLeavesOtherUsersImages(t *testing.T) {
	images := &fakeImages{}
	p := NewProcessor(zerolog.Nop(), images, fakeIndex{})

	victim := "3cUoDGZwAXaKucW7xr5RaNiQ9yM"
	err := p.Handle(context.Background(), queue.Event{
		Type:      queue.EventListingDeleted,
		ListingID: "l1",
		OwnerID:   owner,
		Images: []string{
			base + "/" + victim + "/2026/01/01/victim.jpg",
			base + "/2026/01/01/unowned.jpg",
			base + "/" + owner + "x/2026/01/01/lookalike.jpg",
		},
	})
	require.NoError(t, err)
	assert.Empty(t, images.removed)

	err = p.Handle(context.Background(), queue.Event{
		Type:   queue.EventListingDeleted,
		Images: []string{base + "/" + victim + "/2026/01/01/victim.jpg"},
	})
	require.NoError(t, err)
	assert.Empty(t, images.removed)
}

func TestHandleDeletedKeepsImagesStillReferenced(t *testing.T) {
	shared := base + "/" + owner + "/2026/01/02/shared.png"
	images := &fakeImages{}
	p := NewProcessor(zerolog.Nop(), images, fakeIndex{inUse: map[string]bool{shared: true}})

	err := p.Handle(context.Background(), queue.Event{
		Type:    queue.EventListingDeleted,
		OwnerID: owner,
		Images:  []string{shared, base + "/" + owner + "/2026/01/02/solo.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{owner + "/2026/01/02/solo.png"}, images.removed)

	p = NewProcessor(zerolog.Nop(), images, fakeIndex{inUseErr: errors.New("db down")})
	err = p.Handle(context.Background(), queue.Event{
		Type:    queue.EventListingDeleted,
		OwnerID: owner,
		Images:  []string{base + "/" + owner + "/2026/01/02/other.png"},
	})
	assert.Error(t, err)
	assert.Equal(t, []string{owner + "/2026/01/02/solo.png"}, images.removed)
}

func TestHandleDeletedReportsFailures(t *testing.T) {
	images := &fakeImages{fail: map[string]bool{owner + "/2026/01/02/a.png": true}}
	p := NewProcessor(zerolog.Nop(), images, fakeIndex{})

	err := p.Handle(context.Background(), queue.Event{
		Type:    queue.EventListingDeleted,
		OwnerID: owner,
		Images:  []string{base + "/" + owner + "/2026/01/02/a.png", base + "/" + owner + "/2026/01/02/b.png"},
	})
	assert.Error(t, err)
	assert.Equal(t, []string{owner + "/2026/01/02/b.png"}, images.removed)
}

func TestHandleDigest(t *testing.T) {
	var buf bytes.Buffer
	p := NewProcessor(zerolog.New(&buf), &fakeImages{}, fakeIndex{count: 7})

	require.NoError(t, p.Handle(context.Background(), queue.Event{Type: queue.EventModerationDigest}))
	assert.True(t, strings.Contains(buf.String(), `"pending":7`))

	p = NewProcessor(zerolog.Nop(), &fakeImages{}, fakeIndex{err: errors.New("db down")})
	assert.Error(t, p.Handle(context.Background(), queue.Event{Type: queue.EventModerationDigest}))
}

func TestHandleUnknownAndNotices(t *testing.T) {
	p := NewProcessor(zerolog.Nop(), &fakeImages{}, fakeIndex{})
	for _, typ := range []queue.EventType{queue.EventListingSubmitted, queue.EventListingApproved, queue.EventListingRejected, "mystery"} {
		assert.NoError(t, p.Handle(context.Background(), queue.Event{Type: typ, ListingID: "l1"}))
	}
}
