package handlers

import (
	"time"

	"bookmarket/internal/access"
	"bookmarket/internal/models"
)

type listingResponse struct {
	ID            string               `json:"id"`
	Title         string               `json:"title"`
	Condition     models.Condition     `json:"condition"`
	Price         models.Price         `json:"price"`
	Description   string               `json:"description"`
	ImageURL      []string             `json:"imageUrl"`
	SellerName    string               `json:"sellerName"`
	SellerProfile string               `json:"sellerProfile"`
	UserID        string               `json:"userId,omitempty"`
	PendingReview bool                 `json:"pendingReview"`
	Status        models.ListingStatus `json:"status"`
	DateAdded     time.Time            `json:"dateAdded"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

func newListingResponse(v access.View) listingResponse {
	images := v.Images
	if images == nil {
		images = []string{}
	}
	return listingResponse{
		ID:            v.ID,
		Title:         v.Title,
		Condition:     v.Condition,
		Price:         v.Price,
		Description:   v.Description,
		ImageURL:      images,
		SellerName:    v.SellerName,
		SellerProfile: v.SellerProfile,
		UserID:        v.OwnerID,
		PendingReview: v.PendingReview(),
		Status:        v.Status,
		DateAdded:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
	}
}

func newListingResponses(views []access.View) []listingResponse {
	out := make([]listingResponse, 0, len(views))
	for _, v := range views {
		out = append(out, newListingResponse(v))
	}
	return out
}

type listingPageResponse struct {
	Listings []listingResponse `json:"listings"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

type userResponse struct {
	UserID                string  `json:"userId"`
	Email                 string  `json:"email"`
	Name                  string  `json:"name"`
	Admin                 bool    `json:"admin"`
	LastUsedSellerProfile *string `json:"lastUsedSellerProfile"`
}

func newUserResponse(u models.User) userResponse {
	return userResponse{
		UserID:                u.ID,
		Email:                 u.Email,
		Name:                  u.DisplayName,
		Admin:                 u.IsAdmin(),
		LastUsedSellerProfile: u.LastUsedSellerProfile,
	}
}

type messageResponse struct {
	Message string `json:"message"`
}
