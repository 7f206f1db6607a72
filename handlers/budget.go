package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/managenow/api/middleware"
	"github.com/managenow/api/models"
	"github.com/managenow/api/services"
)

type BudgetHandler struct {
	Budgets   *services.BudgetService
	Analytics *services.AnalyticsService
}

func (h *BudgetHandler) ListBudgets(c *gin.Context) {
	month := monthParam(c)
	budgets, err := h.Budgets.List(c.Request.Context(), middleware.GetUserID(c), month)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"month_year": month, "budgets": budgets})
}

func (h *BudgetHandler) BudgetSummary(c *gin.Context) {
	summary, err := h.Budgets.Summary(c.Request.Context(), middleware.GetUserID(c), monthParam(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"summary": summary})
}

// AllocateBudget creates or replaces the allocation for a category and month.
func (h *BudgetHandler) AllocateBudget(c *gin.Context) {
	var req models.BudgetRequest
	if !bindJSON(c, &req) {
		return
	}

	budget, err := h.Budgets.Allocate(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"budget": budget})
}

func (h *BudgetHandler) DeleteBudget(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Budgets.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, nil)
}

// ============================================================================
// ANALYTICS
// ============================================================================

func (h *BudgetHandler) SpendingByCategory(c *gin.Context) {
	month := monthParam(c)
	spending, err := h.Analytics.SpendingByCategory(c.Request.Context(), middleware.GetUserID(c), month)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"month_year": month, "spending": spending})
}

func (h *BudgetHandler) Trends(c *gin.Context) {
	trends, err := h.Analytics.Trends(c.Request.Context(), middleware.GetUserID(c), intQuery(c, "months", 6))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"trends": trends})
}

func (h *BudgetHandler) Dashboard(c *gin.Context) {
	summary, err := h.Analytics.Dashboard(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"dashboard": summary})
}
