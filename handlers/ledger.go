package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/managenow/api/middleware"
	"github.com/managenow/api/models"
	"github.com/managenow/api/services"
)

// LedgerHandler serves categories, transactions and quick shortcuts.
type LedgerHandler struct {
	Categories   *services.CategoryService
	Transactions *services.TransactionService
	Shortcuts    *services.ShortcutService
}

// ============================================================================
// CATEGORIES
// ============================================================================

func (h *LedgerHandler) ListCategories(c *gin.Context) {
	categories, err := h.Categories.List(c.Request.Context(), middleware.GetUserID(c), c.Query("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"categories": categories})
}

func (h *LedgerHandler) CreateCategory(c *gin.Context) {
	var req models.CreateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	category, err := h.Categories.Create(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"category": category})
}

func (h *LedgerHandler) DeleteCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Categories.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, nil)
}

// ============================================================================
// TRANSACTIONS
// ============================================================================

func (h *LedgerHandler) ListTransactions(c *gin.Context) {
	filter := models.TransactionFilter{
		MonthYear: c.Query("month"),
		Type:      c.Query("type"),
		Limit:     intQuery(c, "limit", 0),
	}

	txns, err := h.Transactions.List(c.Request.Context(), middleware.GetUserID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"transactions": txns})
}

func (h *LedgerHandler) RecentTransactions(c *gin.Context) {
	txns, err := h.Transactions.Recent(c.Request.Context(), middleware.GetUserID(c), intQuery(c, "limit", 10))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"transactions": txns})
}

func (h *LedgerHandler) CreateTransaction(c *gin.Context) {
	var req models.CreateTransactionRequest
	if !bindJSON(c, &req) {
		return
	}

	txn, err := h.Transactions.Create(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"transaction": txn})
}

func (h *LedgerHandler) DeleteTransaction(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Transactions.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, nil)
}

// ExportTransactions streams the transactions in [from, to] as a CSV download.
func (h *LedgerHandler) ExportTransactions(c *gin.Context) {
	from, ok := dateQuery(c, "from")
	if !ok {
		return
	}
	to, ok := dateQuery(c, "to")
	if !ok {
		return
	}

	data, err := h.Transactions.ExportCSV(c.Request.Context(), middleware.GetUserID(c), from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	name := "transactions-" + models.Today().String() + ".csv"
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// ============================================================================
// QUICK SHORTCUTS
// ============================================================================

func (h *LedgerHandler) ListShortcuts(c *gin.Context) {
	shortcuts, err := h.Shortcuts.List(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"shortcuts": shortcuts})
}

func (h *LedgerHandler) CreateShortcut(c *gin.Context) {
	var req models.ShortcutRequest
	if !bindJSON(c, &req) {
		return
	}

	shortcut, err := h.Shortcuts.Create(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"shortcut": shortcut})
}

func (h *LedgerHandler) DeleteShortcut(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Shortcuts.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, nil)
}

func (h *LedgerHandler) UseShortcut(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req models.UseShortcutRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	txn, err := h.Shortcuts.Use(c.Request.Context(), middleware.GetUserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"transaction": txn})
}
