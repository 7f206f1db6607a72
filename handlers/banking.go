package handlers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/managenow/api/middleware"
	"github.com/managenow/api/models"
	"github.com/managenow/api/services"
	"github.com/managenow/api/utils"
)

type BankingHandler struct {
	Banks       *services.BankService
	FrontendURL string
}

func (h *BankingHandler) ListBanks(c *gin.Context) {
	banks, err := h.Banks.List(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"banks": banks})
}

func (h *BankingHandler) Institutions(c *gin.Context) {
	institutions, err := h.Banks.Institutions(c.Request.Context(), c.Param("provider"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"institutions": institutions})
}

// Connect returns the provider URL the browser should open.
func (h *BankingHandler) Connect(c *gin.Context) {
	var req models.ConnectBankRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.Banks.Connect(c.Request.Context(), middleware.GetUserID(c), c.Param("provider"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"auth_url": resp.AuthURL, "state": resp.State})
}

// Callback is where the provider sends the browser back. Brick passes
// publicToken, Finverse passes code. The outcome is reported to the frontend
// through a redirect.
func (h *BankingHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		code = c.Query("publicToken")
	}

	bank, err := h.Banks.Callback(c.Request.Context(), c.Param("provider"), c.Query("state"), code)
	if err != nil {
		utils.SafeError("❌ Bank callback for %s failed: %v", c.Param("provider"), err)
		h.redirect(c, "error", err.Error())
		return
	}
	utils.LogBankingAction("callback", bank.ID, bank.UserID)
	h.redirect(c, "success", "bank_connected")
}

func (h *BankingHandler) redirect(c *gin.Context, key, value string) {
	c.Redirect(http.StatusFound, h.FrontendURL+"/my-banks?"+url.Values{key: {value}}.Encode())
}

func (h *BankingHandler) SyncBank(c *gin.Context) {
	result, err := h.Banks.Sync(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"result": result})
}

func (h *BankingHandler) DeleteBank(c *gin.Context) {
	if err := h.Banks.Delete(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, nil)
}
