package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"

	"bookmarket/internal/models"
	"bookmarket/internal/queue"
	"bookmarket/internal/repository"
	"bookmarket/internal/storage"
)

type memoryUsers struct {
	mu      sync.Mutex
	byID    map[string]models.User
	touched []string
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: map[string]models.User{}}
}

func (m *memoryUsers) Create(_ context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	m.byID[user.ID] = user
	return nil
}

func (m *memoryUsers) FindByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (m *memoryUsers) TouchLogin(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched = append(m.touched, id)
	return nil
}

func (m *memoryUsers) UpdateSellerProfile(_ context.Context, id string, profile string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.LastUsedSellerProfile = &profile
	m.byID[id] = u
	return nil
}

type memoryListings struct {
	mu   sync.Mutex
	byID map[string]models.Listing
	// statusRace, when set, is applied once before the next SetStatus.
	statusRace models.ListingStatus
}

func newMemoryListings() *memoryListings {
	return &memoryListings{byID: map[string]models.Listing{}}
}

func (m *memoryListings) Create(_ context.Context, l models.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.UpdatedAt = l.CreatedAt
	l.Images = append([]string(nil), l.Images...)
	m.byID[l.ID] = l
	return nil
}

func (m *memoryListings) GetByID(_ context.Context, id string) (models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.byID[id]
	if !ok {
		return models.Listing{}, repository.ErrListingNotFound
	}
	return l, nil
}

func (m *memoryListings) List(_ context.Context, q repository.ListQuery) ([]models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Listing
	for _, l := range m.byID {
		if !q.Scope.Matches(l) {
			continue
		}
		if q.OwnerID != "" && l.OwnerID != q.OwnerID {
			continue
		}
		if q.Status != "" && l.Status != q.Status {
			continue
		}
		if q.Condition != "" && l.Condition != q.Condition {
			continue
		}
		out = append(out, l)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch q.Sort {
		case repository.SortOldest:
			return a.CreatedAt.Before(b.CreatedAt)
		case repository.SortPriceAsc:
			if a.Price != b.Price {
				return a.Price < b.Price
			}
		case repository.SortPriceDesc:
			if a.Price != b.Price {
				return a.Price > b.Price
			}
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memoryListings) Update(_ context.Context, l models.Listing) (models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.byID[l.ID]
	if !ok || current.OwnerID != l.OwnerID {
		return models.Listing{}, repository.ErrListingNotFound
	}
	current.Title = l.Title
	current.Condition = l.Condition
	current.Price = l.Price
	current.Description = l.Description
	current.Images = append([]string(nil), l.Images...)
	current.SellerProfile = l.SellerProfile
	m.byID[l.ID] = current
	return current, nil
}

func (m *memoryListings) SetStatus(_ context.Context, id string, from, to models.ListingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.byID[id]
	if !ok {
		return repository.ErrStatusChanged
	}
	if m.statusRace != "" {
		l.Status = m.statusRace
		m.statusRace = ""
	}
	if l.Status != from {
		m.byID[id] = l
		return repository.ErrStatusChanged
	}
	l.Status = to
	m.byID[id] = l
	return nil
}

func (m *memoryListings) Delete(_ context.Context, id string, ownerID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.byID[id]
	if !ok || l.OwnerID != ownerID {
		return nil, repository.ErrListingNotFound
	}
	delete(m.byID, id)
	return l.Images, nil
}

type recordingEvents struct {
	mu     sync.Mutex
	events []queue.Event
	err    error
}

func (r *recordingEvents) Publish(_ context.Context, e queue.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingEvents) types() []queue.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]queue.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type mockProfiles struct {
	mock.Mock
}

func (m *mockProfiles) UpdateSellerProfile(ctx context.Context, id string, profile string) error {
	args := m.Called(ctx, id, profile)
	return args.Error(0)
}

const hostBase = "https://cdn.example.com/bookmarket-images"

type memoryHost struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	failOn  string
}

func newMemoryHost() *memoryHost {
	return &memoryHost{objects: map[string][]byte{}, types: map[string]string{}}
}

func (h *memoryHost) Put(_ context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if int64(len(data)) != size {
		return "", errors.New("size mismatch")
	}
	if h.failOn != "" && bytes.Contains(data, []byte(h.failOn)) {
		return "", errors.New("host unavailable")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.objects[key] = data
	h.types[key] = contentType
	return hostBase + "/" + key, nil
}

func (h *memoryHost) Remove(_ context.Context, key string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.objects[key]; !ok {
		return errors.New("no such object")
	}
	delete(h.objects, key)
	return nil
}

func (h *memoryHost) KeyFor(rawURL string) (string, bool) {
	return storage.KeyFromURL(hostBase, rawURL)
}

func (h *memoryHost) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.objects)
}

func (h *memoryHost) keys() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.objects))
	for k := range h.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func hasPrefixAll(keys []string, prefix string) bool {
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			return false
		}
	}
	return true
}
