package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookmarket/internal/apperr"
	"bookmarket/internal/middleware"
)

type pageQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1"`
}

// ModerationQueue lists listings waiting for review, oldest first.
func (h HandlerSet) ModerationQueue(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.respondError(c, apperr.Validation("invalid query: page and limit must be positive integers"))
		return
	}

	page, err := h.listings.ModerationQueue(c.Request.Context(), middleware.CurrentCaller(c), q.Page, q.Limit)
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
