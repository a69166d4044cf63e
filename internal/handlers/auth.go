package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookmarket/internal/apperr"
	"bookmarket/internal/middleware"
	"bookmarket/internal/service"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateProfileRequest struct {
	LastUsedSellerProfile *string `json:"lastUsedSellerProfile"`
}

type authResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

func (h HandlerSet) SignUp(c *gin.Context) {
	var req registerRequest
	if err := decodeJSON(c, &req); err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	middleware.AttachSession(c, result.Token, h.cookieOptions())
	c.JSON(http.StatusCreated, authResponse{Message: "registered", User: newUserResponse(result.User)})
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := decodeJSON(c, &req); err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	middleware.AttachSession(c, result.Token, h.cookieOptions())
	c.JSON(http.StatusOK, authResponse{Message: "logged in", User: newUserResponse(result.User)})
}

// Logout only drops the cookie; the token itself stays valid until it expires.
func (h HandlerSet) Logout(c *gin.Context) {
	middleware.ClearSession(c, h.cookieOptions())
	c.JSON(http.StatusOK, messageResponse{Message: "logged out"})
}

func (h HandlerSet) Me(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)
	user, err := h.auth.Me(c.Request.Context(), identity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

func (h HandlerSet) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := decodeJSON(c, &req); err != nil {
		h.respondError(c, err)
		return
	}
	if req.LastUsedSellerProfile == nil {
		h.respondError(c, apperr.Validation("lastUsedSellerProfile is required"))
		return
	}

	identity, _ := middleware.CurrentIdentity(c)
	if err := h.auth.UpdateSellerProfile(c.Request.Context(), identity, *req.LastUsedSellerProfile); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "profile updated"})
}

func (h HandlerSet) cookieOptions() middleware.CookieOptions {
	return middleware.CookieOptions{
		Secure: h.cfg.IsProduction(),
		MaxAge: int(h.issuer.TTL().Seconds()),
	}
}
