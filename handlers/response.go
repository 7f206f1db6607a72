package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/managenow/api/models"
	"github.com/managenow/api/services"
	"github.com/managenow/api/utils"
)

// respond writes the success envelope merged with body.
func respond(c *gin.Context, status int, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["success"] = true
	c.JSON(status, body)
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

// respondError maps service errors to a status and a client-safe message.
// Anything unexpected is logged and reported as a 500.
func respondError(c *gin.Context, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		fail(c, http.StatusBadRequest, verr.Msg)
	case errors.Is(err, services.ErrTOTPRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "2FA code required", "requires_2fa": true})
	case errors.Is(err, services.ErrNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		fail(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrConflict):
		fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrProvider):
		utils.SafeError("❌ %s %s: %v", c.Request.Method, c.FullPath(), err)
		fail(c, http.StatusBadGateway, "Bank provider request failed")
	default:
		utils.SafeError("❌ %s %s: %v", c.Request.Method, c.FullPath(), err)
		fail(c, http.StatusInternalServerError, "Internal server error")
	}
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// bindOptionalJSON binds like bindJSON but accepts an empty body, whether or
// not the client sent a Content-Length.
func bindOptionalJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// monthParam reads ?month=YYYY-MM, defaulting to the current month.
func monthParam(c *gin.Context) string {
	if m := c.Query("month"); m != "" {
		return m
	}
	return models.CurrentMonthYear()
}

func dateQuery(c *gin.Context, name string) (*models.Date, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return &d, true
}

func decimalQuery(c *gin.Context, name string) (decimal.Decimal, error) {
	return decimal.NewFromString(c.Query(name))
}

func intQuery(c *gin.Context, name string, fallback int) int {
	if n, err := strconv.Atoi(c.Query(name)); err == nil {
		return n
	}
	return fallback
}
