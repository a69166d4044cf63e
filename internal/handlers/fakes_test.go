package handlers

import (
	"context"
	"io"
	"sort"
	"sync"

	"bookmarket/internal/models"
	"bookmarket/internal/repository"
	"bookmarket/internal/storage"
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]models.User
}

func (f *fakeUsers) Create(_ context.Context, u models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return repository.ErrEmailTaken
		}
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return models.User{}, repository.ErrUserNotFound
}

func (f *fakeUsers) TouchLogin(context.Context, string) error { return nil }

func (f *fakeUsers) UpdateSellerProfile(_ context.Context, id string, profile string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.LastUsedSellerProfile = &profile
	f.users[id] = u
	return nil
}

func (f *fakeUsers) promote(email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, u := range f.users {
		if u.Email == email {
			u.Role = models.UserRoleAdmin
			f.users[id] = u
		}
	}
}

type fakeListings struct {
	mu       sync.Mutex
	listings map[string]models.Listing
}

func (f *fakeListings) Create(_ context.Context, l models.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l.UpdatedAt = l.CreatedAt
	f.listings[l.ID] = l
	return nil
}

func (f *fakeListings) GetByID(_ context.Context, id string) (models.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.listings[id]; ok {
		return l, nil
	}
	return models.Listing{}, repository.ErrListingNotFound
}

func (f *fakeListings) List(_ context.Context, q repository.ListQuery) ([]models.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Listing
	for _, l := range f.listings {
		if q.Scope.Matches(l) && (q.OwnerID == "" || l.OwnerID == q.OwnerID) && (q.Status == "" || l.Status == q.Status) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if q.Offset >= len(out) {
		return nil, nil
	}
	out = out[q.Offset:]
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (f *fakeListings) Update(_ context.Context, l models.Listing) (models.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.listings[l.ID]
	if !ok || current.OwnerID != l.OwnerID {
		return models.Listing{}, repository.ErrListingNotFound
	}
	l.Status = current.Status
	l.SellerName = current.SellerName
	l.CreatedAt = current.CreatedAt
	f.listings[l.ID] = l
	return l, nil
}

func (f *fakeListings) SetStatus(_ context.Context, id string, from, to models.ListingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok || l.Status != from {
		return repository.ErrStatusChanged
	}
	l.Status = to
	f.listings[id] = l
	return nil
}

func (f *fakeListings) Delete(_ context.Context, id string, ownerID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok || l.OwnerID != ownerID {
		return nil, repository.ErrListingNotFound
	}
	delete(f.listings, id)
	return l.Images, nil
}

const imageBase = "https://cdn.example.com/bookmarket-images"

type fakeHost struct {
	mu      sync.Mutex
	objects map[string]int64
}

func (f *fakeHost) Put(_ context.Context, key string, r io.Reader, size int64, _ string) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = size
	return imageBase + "/" + key, nil
}

func (f *fakeHost) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeHost) KeyFor(rawURL string) (string, bool) {
	return storage.KeyFromURL(imageBase, rawURL)
}

func (f *fakeHost) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}
