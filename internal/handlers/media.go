package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bookmarket/internal/apperr"
	"bookmarket/internal/middleware"
	"bookmarket/internal/service"
)

type uploadResponse struct {
	URL        string `json:"url"`
	DeleteHash string `json:"deleteHash"`
}

type deleteImageRequest struct {
	URL        string `json:"url"`
	DeleteHash string `json:"deleteHash"`
}

func newUploadResponse(img service.UploadedImage) uploadResponse {
	return uploadResponse{URL: img.URL, DeleteHash: img.DeleteHash}
}

func (h HandlerSet) UploadImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		h.respondError(c, formError(err, "image file is required"))
		return
	}

	uploaded, err := h.uploads.Upload(c.Request.Context(), middleware.CurrentCaller(c), file)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUploadResponse(uploaded))
}

func (h HandlerSet) UploadImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		h.respondError(c, formError(err, "multipart form is required"))
		return
	}

	uploaded, err := h.uploads.UploadBatch(c.Request.Context(), middleware.CurrentCaller(c), form.File["images"])
	if err != nil {
		h.respondError(c, err)
		return
	}

	out := make([]uploadResponse, 0, len(uploaded))
	for _, img := range uploaded {
		out = append(out, newUploadResponse(img))
	}
	c.JSON(http.StatusOK, gin.H{"images": out})
}

func (h HandlerSet) DeleteImage(c *gin.Context) {
	var req deleteImageRequest
	if err := decodeJSON(c, &req); err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.uploads.Delete(c.Request.Context(), middleware.CurrentCaller(c), req.URL, req.DeleteHash); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "image deleted"})
}

func formError(err error, message string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperr.Validation("file too large")
	}
	return apperr.Validation("%s", message)
}
