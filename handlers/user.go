package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/managenow/api/middleware"
	"github.com/managenow/api/models"
	"github.com/managenow/api/services"
)

type UserHandler struct {
	Auth        *services.AuthService
	Preferences *services.PreferencesService
}

func (h *UserHandler) GetUser(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		fail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	respond(c, http.StatusOK, gin.H{"user": user})
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req models.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.Auth.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"user": user})
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req models.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	err := h.Auth.ChangePassword(c.Request.Context(), middleware.GetUserID(c), middleware.GetToken(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// ============================================================================
// 2FA MANAGEMENT
// ============================================================================

func (h *UserHandler) SetupTOTP(c *gin.Context) {
	setup, err := h.Auth.SetupTOTP(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"secret": setup.Secret, "url": setup.URL})
}

func (h *UserHandler) VerifyTOTP(c *gin.Context) {
	var req models.VerifyTOTPRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.Auth.VerifyTOTP(c.Request.Context(), middleware.GetUserID(c), req.Code); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "2FA enabled successfully", "enabled": true})
}

func (h *UserHandler) DisableTOTP(c *gin.Context) {
	var req models.DisableTOTPRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.Auth.DisableTOTP(c.Request.Context(), middleware.GetUserID(c), req); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "2FA disabled successfully", "enabled": false})
}

// ============================================================================
// PREFERENCES
// ============================================================================

func (h *UserHandler) GetPreferences(c *gin.Context) {
	prefs, err := h.Preferences.Get(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"preferences": prefs})
}

func (h *UserHandler) UpdatePreferences(c *gin.Context) {
	var req models.UpdatePreferencesRequest
	if !bindJSON(c, &req) {
		return
	}

	prefs, err := h.Preferences.Update(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"preferences": prefs})
}

// FormatAmount renders ?amount= with the user's currency settings.
func (h *UserHandler) FormatAmount(c *gin.Context) {
	amount, err := decimalQuery(c, "amount")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid amount")
		return
	}

	formatted, err := h.Preferences.Format(c.Request.Context(), middleware.GetUserID(c), amount)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"formatted": formatted})
}
