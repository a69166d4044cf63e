package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookmarket/internal/apperr"
	"bookmarket/internal/middleware"
	"bookmarket/internal/service"
)

type listingRequest struct {
	Title         string   `json:"title"`
	Condition     string   `json:"condition"`
	Price         *float64 `json:"price"`
	Description   string   `json:"description"`
	SellerProfile string   `json:"sellerProfile"`
	ImageURL      []string `json:"imageUrl"`
}

type listingPatchRequest struct {
	Title         *string  `json:"title"`
	Condition     *string  `json:"condition"`
	Price         *float64 `json:"price"`
	Description   *string  `json:"description"`
	SellerProfile *string  `json:"sellerProfile"`
	ImageURL      []string `json:"imageUrl"`
}

type reorderRequest struct {
	Order []int `json:"order"`
}

type listQuery struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	Limit     int    `form:"limit" binding:"omitempty,min=1"`
	Sort      string `form:"sort"`
	Condition string `form:"condition"`
}

type createdResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (h HandlerSet) ListListings(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.respondError(c, apperr.Validation("invalid query: page and limit must be positive integers"))
		return
	}

	page, err := h.listings.List(c.Request.Context(), middleware.CurrentCaller(c), service.ListOptions{
		Page:      q.Page,
		Limit:     q.Limit,
		Sort:      q.Sort,
		Condition: q.Condition,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, listingPageResponse{
		Listings: newListingResponses(page.Listings),
		Page:     page.Page,
		Limit:    page.Limit,
	})
}

func (h HandlerSet) ListMyListings(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.respondError(c, apperr.Validation("invalid query: page and limit must be positive integers"))
		return
	}

	page, err := h.listings.ListMine(c.Request.Context(), middleware.CurrentCaller(c), q.Page, q.Limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, listingPageResponse{
		Listings: newListingResponses(page.Listings),
		Page:     page.Page,
		Limit:    page.Limit,
	})
}

func (h HandlerSet) CreateListing(c *gin.Context) {
	var req listingRequest
	if err := decodeJSON(c, &req); err != nil {
		h.respondError(c, err)
		return
	}

	id, err := h.listings.Create(c.Request.Context(), middleware.CurrentCaller(c), service.ListingDraft{
		Title:         req.Title,
		Condition:     req.Condition,
		Price:         req.Price,
		Description:   req.Description,
		SellerProfile: req.SellerProfile,
		Images:        req.ImageURL,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, createdResponse{ID: id, Message: "listing submitted for review"})
}

func (h HandlerSet) GetListing(c *gin.Context) {
	view, err := h.listings.Get(c.Request.Context(), middleware.CurrentCaller(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newListingResponse(view))
}

func (h HandlerSet) UpdateListing(c *gin.Context) {
	var req listingPatchRequest
	if err := decodeJSON(c, &req); err != nil {
		h.respondError(c, err)
		return
	}

	view, err := h.listings.Update(c.Request.Context(), middleware.CurrentCaller(c), c.Param("id"), service.ListingPatch{
		Title:         req.Title,
		Condition:     req.Condition,
		Price:         req.Price,
		Description:   req.Description,
		SellerProfile: req.SellerProfile,
		Images:        req.ImageURL,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newListingResponse(view))
}

func (h HandlerSet) ReorderImages(c *gin.Context) {
	var req reorderRequest
	if err := decodeJSON(c, &req); err != nil {
		h.respondError(c, err)
		return
	}

	view, err := h.listings.ReorderImages(c.Request.Context(), middleware.CurrentCaller(c), c.Param("id"), req.Order)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newListingResponse(view))
}

func (h HandlerSet) DeleteListing(c *gin.Context) {
	if err := h.listings.Delete(c.Request.Context(), middleware.CurrentCaller(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "listing deleted"})
}

func (h HandlerSet) ApproveListing(c *gin.Context) {
	view, err := h.listings.Approve(c.Request.Context(), middleware.CurrentCaller(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newListingResponse(view))
}

func (h HandlerSet) DenyListing(c *gin.Context) {
	view, err := h.listings.Deny(c.Request.Context(), middleware.CurrentCaller(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newListingResponse(view))
}
