package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"bookmarket/internal/access"
	"bookmarket/internal/apperr"
	"bookmarket/internal/ids"
	"bookmarket/internal/models"
	"bookmarket/internal/queue"
	"bookmarket/internal/repository"
	"bookmarket/internal/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

type ListingStore interface {
	Create(ctx context.Context, listing models.Listing) error
	GetByID(ctx context.Context, id string) (models.Listing, error)
	List(ctx context.Context, q repository.ListQuery) ([]models.Listing, error)
	Update(ctx context.Context, listing models.Listing) (models.Listing, error)
	SetStatus(ctx context.Context, id string, from, to models.ListingStatus) error
	Delete(ctx context.Context, id string, ownerID string) ([]string, error)
}

type SellerProfileStore interface {
	UpdateSellerProfile(ctx context.Context, id string, profile string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event queue.Event) error
}

// ImageLocator maps image URLs served by our host back to object keys.
type ImageLocator interface {
	KeyFor(rawURL string) (string, bool)
}

type ListingService struct {
	listings ListingStore
	profiles SellerProfileStore
	events   EventPublisher
	images   ImageLocator
	log      zerolog.Logger
}

func NewListingService(listings ListingStore, profiles SellerProfileStore, events EventPublisher, images ImageLocator, log zerolog.Logger) *ListingService {
	return &ListingService{
		listings: listings,
		profiles: profiles,
		events:   events,
		images:   images,
		log:      log,
	}
}

// ListingDraft is a new listing as submitted. Price is in currency units.
type ListingDraft struct {
	Title         string
	Condition     string
	Price         *float64
	Description   string
	SellerProfile string
	Images        []string
}

// ListingPatch holds the fields to change; nil leaves a field as it is.
type ListingPatch struct {
	Title         *string
	Condition     *string
	Price         *float64
	Description   *string
	SellerProfile *string
	Images        []string
}

type ListOptions struct {
	Page      int
	Limit     int
	Sort      string
	Condition string
}

type ListingPage struct {
	Listings []access.View
	Page     int
	Limit    int
}

func (s *ListingService) Create(ctx context.Context, caller access.Caller, draft ListingDraft) (string, error) {
	if caller.Anonymous() {
		return "", apperr.Authentication("authentication required")
	}

	price, err := priceFromAmount(draft.Price)
	if err != nil {
		return "", err
	}

	listing := models.Listing{
		ID:            ids.New(),
		OwnerID:       caller.UserID,
		Title:         sanitize(draft.Title),
		Condition:     models.Condition(draft.Condition),
		Price:         price,
		Description:   sanitize(draft.Description),
		Images:        trimImages(draft.Images),
		SellerName:    caller.Name,
		SellerProfile: sanitize(draft.SellerProfile),
		Status:        models.ListingStatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	if err := validateListing(listing); err != nil {
		return "", err
	}
	if err := s.checkImageOwnership(caller, listing.Images, nil); err != nil {
		return "", err
	}

	if err := s.listings.Create(ctx, listing); err != nil {
		return "", fmt.Errorf("create listing: %w", err)
	}

	if err := s.profiles.UpdateSellerProfile(ctx, caller.UserID, listing.SellerProfile); err != nil {
		s.log.Warn().Err(err).Str("user_id", caller.UserID).Msg("remember seller profile failed")
	}
	s.publish(ctx, queue.EventListingSubmitted, listing)

	return listing.ID, nil
}

// Get hides listings the caller may not see behind NotFound.
func (s *ListingService) Get(ctx context.Context, caller access.Caller, id string) (access.View, error) {
	listing, err := s.load(ctx, id)
	if err != nil {
		return access.View{}, err
	}
	view, ok := access.Project(caller, listing)
	if !ok {
		return access.View{}, errListingNotFound()
	}
	return view, nil
}

func (s *ListingService) List(ctx context.Context, caller access.Caller, opts ListOptions) (ListingPage, error) {
	page, limit, err := pagination(opts.Page, opts.Limit)
	if err != nil {
		return ListingPage{}, err
	}

	sort := repository.ListingSort(opts.Sort)
	if sort == "" {
		sort = repository.SortNewest
	}
	if !sort.Valid() {
		return ListingPage{}, apperr.Validation("sort must be one of newest, oldest, price_asc, price_desc")
	}

	condition := models.Condition(opts.Condition)
	if condition != "" && !condition.Valid() {
		return ListingPage{}, apperr.Validation("condition must be one of %s", conditionList())
	}

	listings, err := s.listings.List(ctx, repository.ListQuery{
		Scope:     access.ScopeFor(caller),
		Condition: condition,
		Sort:      sort,
		Limit:     limit,
		Offset:    (page - 1) * limit,
	})
	if err != nil {
		return ListingPage{}, fmt.Errorf("list listings: %w", err)
	}

	return ListingPage{Listings: access.Filter(caller, listings), Page: page, Limit: limit}, nil
}

// ListMine pages through the listings the caller owns, whatever their status.
func (s *ListingService) ListMine(ctx context.Context, caller access.Caller, page, limit int) (ListingPage, error) {
	if caller.Anonymous() {
		return ListingPage{}, apperr.Authentication("authentication required")
	}
	page, limit, err := pagination(page, limit)
	if err != nil {
		return ListingPage{}, err
	}

	listings, err := s.listings.List(ctx, repository.ListQuery{
		Scope:   access.Scope{OwnerID: caller.UserID},
		OwnerID: caller.UserID,
		Sort:    repository.SortNewest,
		Limit:   limit,
		Offset:  (page - 1) * limit,
	})
	if err != nil {
		return ListingPage{}, fmt.Errorf("list own listings: %w", err)
	}
	return ListingPage{Listings: access.Filter(caller, listings), Page: page, Limit: limit}, nil
}

func (s *ListingService) Update(ctx context.Context, caller access.Caller, id string, patch ListingPatch) (access.View, error) {
	listing, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return access.View{}, err
	}

	if patch.Title != nil {
		listing.Title = sanitize(*patch.Title)
	}
	if patch.Condition != nil {
		listing.Condition = models.Condition(*patch.Condition)
	}
	if patch.Price != nil {
		price, err := priceFromAmount(patch.Price)
		if err != nil {
			return access.View{}, err
		}
		listing.Price = price
	}
	if patch.Description != nil {
		listing.Description = sanitize(*patch.Description)
	}
	if patch.SellerProfile != nil {
		listing.SellerProfile = sanitize(*patch.SellerProfile)
	}
	previous := listing.Images
	if patch.Images != nil {
		listing.Images = trimImages(patch.Images)
	}
	if err := validateListing(listing); err != nil {
		return access.View{}, err
	}
	if err := s.checkImageOwnership(caller, listing.Images, previous); err != nil {
		return access.View{}, err
	}

	return s.write(ctx, caller, listing)
}

// ReorderImages applies order so that the new images[i] is the old
// images[order[i]].
func (s *ListingService) ReorderImages(ctx context.Context, caller access.Caller, id string, order []int) (access.View, error) {
	listing, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return access.View{}, err
	}

	images, err := models.PermuteImages(listing.Images, order)
	if err != nil {
		return access.View{}, apperr.Validation("%s", err.Error())
	}
	listing.Images = images

	return s.write(ctx, caller, listing)
}

func (s *ListingService) Delete(ctx context.Context, caller access.Caller, id string) error {
	listing, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return err
	}

	images, err := s.listings.Delete(ctx, listing.ID, caller.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return errListingNotFound()
		}
		return fmt.Errorf("delete listing: %w", err)
	}

	listing.Images = images
	s.publish(ctx, queue.EventListingDeleted, listing)
	return nil
}

func (s *ListingService) Approve(ctx context.Context, caller access.Caller, id string) (access.View, error) {
	return s.moderate(ctx, caller, id, access.ActionApprove)
}

// Deny marks the listing rejected. It stays visible to its owner and admins.
func (s *ListingService) Deny(ctx context.Context, caller access.Caller, id string) (access.View, error) {
	return s.moderate(ctx, caller, id, access.ActionDeny)
}

// ModerationQueue lists pending listings, oldest first.
func (s *ListingService) ModerationQueue(ctx context.Context, caller access.Caller, page, limit int) (ListingPage, error) {
	if !caller.Admin {
		return ListingPage{}, apperr.Authorization("admin access required")
	}
	page, limit, err := pagination(page, limit)
	if err != nil {
		return ListingPage{}, err
	}

	listings, err := s.listings.List(ctx, repository.ListQuery{
		Scope:  access.Scope{All: true},
		Status: models.ListingStatusPending,
		Sort:   repository.SortOldest,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return ListingPage{}, fmt.Errorf("list pending listings: %w", err)
	}
	return ListingPage{Listings: access.Filter(caller, listings), Page: page, Limit: limit}, nil
}

func (s *ListingService) moderate(ctx context.Context, caller access.Caller, id string, action access.Action) (access.View, error) {
	if !caller.Admin {
		return access.View{}, apperr.Authorization("admin access required")
	}

	// A concurrent moderator may move the listing between read and write;
	// re-read once and decide again.
	for attempt := 0; ; attempt++ {
		listing, err := s.load(ctx, id)
		if err != nil {
			return access.View{}, err
		}

		to, err := access.Transition(caller, listing.Status, action)
		if err != nil {
			if errors.Is(err, access.ErrInvalidTransition) {
				return access.View{}, apperr.Conflict("listing is already %s", listing.Status)
			}
			return access.View{}, apperr.Authorization("admin access required")
		}
		if to == listing.Status {
			view, _ := access.Project(caller, listing)
			return view, nil
		}

		err = s.listings.SetStatus(ctx, listing.ID, listing.Status, to)
		if errors.Is(err, repository.ErrStatusChanged) && attempt == 0 {
			continue
		}
		if errors.Is(err, repository.ErrStatusChanged) {
			return access.View{}, apperr.Conflict("listing was moderated concurrently")
		}
		if err != nil {
			return access.View{}, fmt.Errorf("set listing status: %w", err)
		}

		listing.Status = to
		listing.UpdatedAt = time.Now().UTC()
		eventType := queue.EventListingApproved
		if to == models.ListingStatusRejected {
			eventType = queue.EventListingRejected
		}
		s.publish(ctx, eventType, listing)

		view, _ := access.Project(caller, listing)
		return view, nil
	}
}

func (s *ListingService) load(ctx context.Context, id string) (models.Listing, error) {
	if !ids.Valid(id) {
		return models.Listing{}, apperr.InvalidReference("invalid listing id")
	}
	listing, err := s.listings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return models.Listing{}, errListingNotFound()
		}
		return models.Listing{}, fmt.Errorf("get listing: %w", err)
	}
	return listing, nil
}

// loadOwned returns the listing when caller owns it. Listings the caller can
// see but not change yield Authorization; hidden ones stay NotFound.
func (s *ListingService) loadOwned(ctx context.Context, caller access.Caller, id string) (models.Listing, error) {
	if caller.Anonymous() {
		return models.Listing{}, apperr.Authentication("authentication required")
	}
	listing, err := s.load(ctx, id)
	if err != nil {
		return models.Listing{}, err
	}
	if !caller.Owns(listing) {
		if access.Decide(caller, listing).Visible {
			return models.Listing{}, apperr.Authorization("only the owner can modify this listing")
		}
		return models.Listing{}, errListingNotFound()
	}
	return listing, nil
}

// checkImageOwnership rejects images on our host that another user uploaded.
// Images already on the listing are kept as they are.
func (s *ListingService) checkImageOwnership(caller access.Caller, images, existing []string) error {
	if s.images == nil {
		return nil
	}
	for i, img := range images {
		if slices.Contains(existing, img) {
			continue
		}
		key, hosted := s.images.KeyFor(img)
		if hosted && !storage.OwnedBy(key, caller.UserID) {
			return apperr.Validation("image %d was uploaded by another user", i+1)
		}
	}
	return nil
}

func (s *ListingService) write(ctx context.Context, caller access.Caller, listing models.Listing) (access.View, error) {
	updated, err := s.listings.Update(ctx, listing)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return access.View{}, errListingNotFound()
		}
		return access.View{}, fmt.Errorf("update listing: %w", err)
	}
	view, _ := access.Project(caller, updated)
	return view, nil
}

func (s *ListingService) publish(ctx context.Context, eventType queue.EventType, listing models.Listing) {
	if s.events == nil {
		return
	}
	event := queue.Event{
		Type:      eventType,
		ListingID: listing.ID,
		OwnerID:   listing.OwnerID,
	}
	if eventType == queue.EventListingDeleted {
		event.Images = listing.Images
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("listing_id", listing.ID).Str("type", string(eventType)).Msg("publish listing event failed")
	}
}

func errListingNotFound() error {
	return apperr.NotFound("listing not found")
}

func pagination(page, limit int) (int, int, error) {
	if page < 0 {
		return 0, 0, apperr.Validation("page must be a positive integer")
	}
	if limit < 0 {
		return 0, 0, apperr.Validation("limit must be a positive integer")
	}
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit, nil
}

func trimImages(images []string) []string {
	out := make([]string, len(images))
	for i, img := range images {
		out[i] = sanitize(img)
	}
	return out
}
