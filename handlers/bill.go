package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/managenow/api/middleware"
	"github.com/managenow/api/models"
	"github.com/managenow/api/services"
)

type BillHandler struct {
	Bills *services.BillService
}

func (h *BillHandler) ListBills(c *gin.Context) {
	active := c.DefaultQuery("active", "true") != "false"
	bills, err := h.Bills.List(c.Request.Context(), middleware.GetUserID(c), active)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"bills": bills})
}

func (h *BillHandler) CreateBill(c *gin.Context) {
	var req models.BillRequest
	if !bindJSON(c, &req) {
		return
	}

	bill, err := h.Bills.Create(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"bill": bill})
}

func (h *BillHandler) UpdateBill(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req models.BillRequest
	if !bindJSON(c, &req) {
		return
	}

	bill, err := h.Bills.Update(c.Request.Context(), middleware.GetUserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"bill": bill})
}

func (h *BillHandler) DeleteBill(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Bills.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, nil)
}

func (h *BillHandler) UpcomingBills(c *gin.Context) {
	upcoming, err := h.Bills.Upcoming(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"bills": upcoming})
}

// MarkPaid succeeds for an already paid payment too and reports it through
// already_paid.
func (h *BillHandler) MarkPaid(c *gin.Context) {
	id, ok := paramID(c, "paymentId")
	if !ok {
		return
	}
	var req models.MarkPaidRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, err := h.Bills.MarkPaid(c.Request.Context(), middleware.GetUserID(c), id, req.PaidDate)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"payment":        result.Payment,
		"already_paid":   result.AlreadyPaid,
		"transaction_id": result.TransactionID,
	})
}
