package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/managenow/api/middleware"
	"github.com/managenow/api/models"
	"github.com/managenow/api/services"
)

type AuthHandler struct {
	Auth         *services.AuthService
	SecureCookie bool
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, token, maxAge, "/", "", h.SecureCookie, true)
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req models.SignupRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.Auth.SignUp(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.setSessionCookie(c, resp.Token, resp.ExpiresAt)
	c.JSON(http.StatusCreated, resp)
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.Auth.SignIn(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.setSessionCookie(c, resp.Token, resp.ExpiresAt)
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) SignOut(c *gin.Context) {
	if err := h.Auth.SignOut(c.Request.Context(), middleware.GetToken(c)); err != nil {
		respondError(c, err)
		return
	}
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.SecureCookie, true)
	respond(c, http.StatusOK, gin.H{"message": "Signed out"})
}
