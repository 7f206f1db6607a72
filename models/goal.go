package models

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

const (
	GoalActive    = "active"
	GoalCompleted = "completed"
	GoalCancelled = "cancelled"
)

type Goal struct {
	ID            int64           `json:"id"`
	UserID        string          `json:"user_id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	TargetDate    *Date           `json:"target_date"`
	Category      string          `json:"category"`
	Icon          string          `json:"icon"`
	Color         string          `json:"color"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	ProgressPercentage decimal.Decimal `json:"progress_percentage"`
	RemainingAmount    decimal.Decimal `json:"remaining_amount"`
}

// Progress fills ProgressPercentage (capped at 100) and RemainingAmount
// (never negative).
func (g *Goal) Progress() {
	if g.TargetAmount.IsPositive() {
		pct := g.CurrentAmount.Mul(hundred).Div(g.TargetAmount).Round(2)
		g.ProgressPercentage = decimal.Min(pct, hundred)
	} else {
		g.ProgressPercentage = decimal.Zero
	}
	g.RemainingAmount = decimal.Max(g.TargetAmount.Sub(g.CurrentAmount), decimal.Zero)
}

type GoalContribution struct {
	ID               int64           `json:"id"`
	GoalID           int64           `json:"goal_id"`
	Amount           decimal.Decimal `json:"amount"`
	ContributionDate Date            `json:"contribution_date"`
	Notes            string          `json:"notes,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

type GoalRequest struct {
	Name         string          `json:"name" binding:"required"`
	Description  string          `json:"description"`
	TargetAmount decimal.Decimal `json:"target_amount" binding:"required"`
	TargetDate   *Date           `json:"target_date"`
	Category     string          `json:"category"`
	Icon         string          `json:"icon"`
	Color        string          `json:"color"`
	Status       string          `json:"status" binding:"omitempty,oneof=active completed cancelled"`
}

type ContributionRequest struct {
	Amount           decimal.Decimal `json:"amount" binding:"required"`
	ContributionDate *Date           `json:"contribution_date"`
	Notes            string          `json:"notes"`
}

// ContributionResult carries the goal as it stands after the contribution.
type ContributionResult struct {
	Contribution GoalContribution `json:"contribution"`
	Goal         Goal             `json:"goal"`
	Completed    bool             `json:"completed"`
}
