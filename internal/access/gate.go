// Package access decides who may see and moderate listings. Everything here is
// a pure function of the caller and the listing state.
package access

import (
	"errors"

	"bookmarket/internal/models"
	"bookmarket/internal/security"
)

// Caller is the identity behind a request. The zero value is anonymous.
type Caller struct {
	UserID string
	Name   string
	Admin  bool
}

func FromIdentity(identity security.Identity) Caller {
	return Caller{UserID: identity.UserID, Name: identity.Name, Admin: identity.Admin}
}

func (c Caller) Anonymous() bool {
	return c.UserID == ""
}

func (c Caller) Owns(listing models.Listing) bool {
	return !c.Anonymous() && c.UserID == listing.OwnerID
}

// Decision is the outcome of Decide for one listing.
type Decision struct {
	Visible     bool
	RedactOwner bool
}

// Decide applies the visibility rules:
// admins and owners see everything unredacted; everyone else sees approved
// listings only, without the owner id.
func Decide(caller Caller, listing models.Listing) Decision {
	if caller.Admin || caller.Owns(listing) {
		return Decision{Visible: true}
	}
	if listing.Status != models.ListingStatusApproved {
		return Decision{}
	}
	return Decision{Visible: true, RedactOwner: true}
}

// Scope is the store-level form of Decide, so that filtering happens before
// pagination. A listing matches when All is set, its status is approved, or it
// belongs to OwnerID.
type Scope struct {
	All     bool
	OwnerID string
}

func ScopeFor(caller Caller) Scope {
	if caller.Admin {
		return Scope{All: true}
	}
	return Scope{OwnerID: caller.UserID}
}

func (s Scope) Matches(listing models.Listing) bool {
	if s.All || listing.Status == models.ListingStatusApproved {
		return true
	}
	return s.OwnerID != "" && listing.OwnerID == s.OwnerID
}

// Filter keeps the visible listings and returns them with redactions applied.
func Filter(caller Caller, listings []models.Listing) []View {
	views := make([]View, 0, len(listings))
	for _, listing := range listings {
		if view, ok := Project(caller, listing); ok {
			views = append(views, view)
		}
	}
	return views
}

// View is a listing as one particular caller is allowed to see it.
type View struct {
	models.Listing
	OwnerHidden bool
}

func Project(caller Caller, listing models.Listing) (View, bool) {
	decision := Decide(caller, listing)
	if !decision.Visible {
		return View{}, false
	}
	if decision.RedactOwner {
		listing.OwnerID = ""
	}
	return View{Listing: listing, OwnerHidden: decision.RedactOwner}, true
}

type Action string

const (
	ActionApprove Action = "approve"
	ActionDeny    Action = "deny"
)

var (
	ErrNotModerator      = errors.New("admin access required")
	ErrInvalidTransition = errors.New("invalid moderation transition")
)

// Transition returns the status a listing moves to when an admin applies
// action. Repeating an action is a no-op; approving a rejected listing or
// denying an approved one is refused.
func Transition(caller Caller, from models.ListingStatus, action Action) (models.ListingStatus, error) {
	if !caller.Admin {
		return from, ErrNotModerator
	}

	switch action {
	case ActionApprove:
		if from == models.ListingStatusPending || from == models.ListingStatusApproved {
			return models.ListingStatusApproved, nil
		}
	case ActionDeny:
		if from == models.ListingStatusPending || from == models.ListingStatusRejected {
			return models.ListingStatusRejected, nil
		}
	}
	return from, ErrInvalidTransition
}
