package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/managenow/api/middleware"
	"github.com/managenow/api/models"
	"github.com/managenow/api/services"
)

type GoalHandler struct {
	Goals *services.GoalService
}

func (h *GoalHandler) ListGoals(c *gin.Context) {
	goals, err := h.Goals.List(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"goals": goals})
}

func (h *GoalHandler) CreateGoal(c *gin.Context) {
	var req models.GoalRequest
	if !bindJSON(c, &req) {
		return
	}

	goal, err := h.Goals.Create(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"goal": goal})
}

func (h *GoalHandler) UpdateGoal(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req models.GoalRequest
	if !bindJSON(c, &req) {
		return
	}

	goal, err := h.Goals.Update(c.Request.Context(), middleware.GetUserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"goal": goal})
}

func (h *GoalHandler) DeleteGoal(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Goals.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, nil)
}

func (h *GoalHandler) ListContributions(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	contributions, err := h.Goals.Contributions(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"contributions": contributions})
}

func (h *GoalHandler) Contribute(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req models.ContributionRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.Goals.Contribute(c.Request.Context(), middleware.GetUserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{
		"contribution": result.Contribution,
		"goal":         result.Goal,
		"completed":    result.Completed,
	})
}
