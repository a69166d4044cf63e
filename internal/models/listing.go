package models

import (
	"fmt"
	"time"
)

type Condition string

const (
	ConditionNew     Condition = "New"
	ConditionLikeNew Condition = "Like New"
	ConditionGood    Condition = "Good"
	ConditionFair    Condition = "Fair"
	ConditionPoor    Condition = "Poor"
)

var Conditions = []Condition{
	ConditionNew,
	ConditionLikeNew,
	ConditionGood,
	ConditionFair,
	ConditionPoor,
}

func (c Condition) Valid() bool {
	for _, known := range Conditions {
		if c == known {
			return true
		}
	}
	return false
}

// ListingStatus is the moderation state of a listing. Deleted listings are
// removed from the store and have no status.
type ListingStatus string

const (
	ListingStatusPending  ListingStatus = "pending"
	ListingStatusApproved ListingStatus = "approved"
	ListingStatusRejected ListingStatus = "rejected"
)

type Listing struct {
	ID            string
	OwnerID       string
	Title         string
	Condition     Condition
	Price         Price
	Description   string
	Images        []string
	SellerName    string
	SellerProfile string
	Status        ListingStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (l Listing) PendingReview() bool {
	return l.Status == ListingStatusPending
}

// MainImage is the canonical image shown on cards.
func (l Listing) MainImage() string {
	if len(l.Images) == 0 {
		return ""
	}
	return l.Images[0]
}

// PermuteImages reorders images so that result[i] = images[order[i]]. order
// must mention every index exactly once.
func PermuteImages(images []string, order []int) ([]string, error) {
	if len(order) != len(images) {
		return nil, fmt.Errorf("order has %d entries, listing has %d images", len(order), len(images))
	}
	seen := make([]bool, len(images))
	result := make([]string, len(images))
	for i, idx := range order {
		if idx < 0 || idx >= len(images) {
			return nil, fmt.Errorf("image index %d out of range", idx)
		}
		if seen[idx] {
			return nil, fmt.Errorf("image index %d repeated", idx)
		}
		seen[idx] = true
		result[i] = images[idx]
	}
	return result, nil
}
