package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/managenow/api/database"
	"github.com/managenow/api/models"
	"github.com/managenow/api/utils"
)

const (
	defaultGoalIcon     = "🎯"
	defaultGoalColor    = "#10b981"
	defaultGoalCategory = "savings"
)

type GoalService struct {
	db       *database.DB
	notifier Notifier
}

func NewGoalService(db *database.DB, notifier Notifier) *GoalService {
	return &GoalService{db: db, notifier: orNoop(notifier)}
}

func validGoalStatus(s string) bool {
	return s == models.GoalActive || s == models.GoalCompleted || s == models.GoalCancelled
}

func goalFromRequest(req models.GoalRequest) (models.Goal, error) {
	g := models.Goal{
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		TargetAmount: req.TargetAmount.Round(2),
		TargetDate:   req.TargetDate,
		Category:     req.Category,
		Icon:         req.Icon,
		Color:        req.Color,
		Status:       req.Status,
	}
	if g.Name == "" {
		return g, invalid("name is required")
	}
	if !g.TargetAmount.IsPositive() {
		return g, invalid("target_amount must be greater than zero")
	}
	if g.Status == "" {
		g.Status = models.GoalActive
	}
	if !validGoalStatus(g.Status) {
		return g, invalid("status must be active, completed or cancelled")
	}
	if g.Category == "" {
		g.Category = defaultGoalCategory
	}
	if g.Icon == "" {
		g.Icon = defaultGoalIcon
	}
	if g.Color == "" {
		g.Color = defaultGoalColor
	}
	return g, nil
}

func (s *GoalService) Create(ctx context.Context, userID string, req models.GoalRequest) (*models.Goal, error) {
	g, err := goalFromRequest(req)
	if err != nil {
		return nil, err
	}
	g.UserID = userID
	g.CurrentAmount = decimal.Zero
	g.CreatedAt = timestamp()
	g.UpdatedAt = g.CreatedAt

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO financial_goals (
			user_id, name, description, target_amount, current_amount, target_date,
			category, icon, color, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, g.UserID, g.Name, g.Description, g.TargetAmount, g.CurrentAmount, g.TargetDate,
		g.Category, g.Icon, g.Color, g.Status, g.CreatedAt, g.UpdatedAt).Scan(&g.ID)
	if err != nil {
		return nil, err
	}
	g.Progress()

	utils.LogLedgerAction("create", "goal", g.ID, userID)
	s.notifier.Notify(userID, EventGoalChanged, g)
	return &g, nil
}

const goalSelect = `
	SELECT id, user_id, name, description, target_amount, current_amount, target_date,
	       category, icon, color, status, created_at, updated_at
	FROM financial_goals
`

func scanGoal(r rowScanner) (models.Goal, error) {
	var g models.Goal
	err := r.Scan(&g.ID, &g.UserID, &g.Name, &g.Description, &g.TargetAmount, &g.CurrentAmount, &g.TargetDate,
		&g.Category, &g.Icon, &g.Color, &g.Status, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return g, err
	}
	g.TargetAmount = g.TargetAmount.Round(2)
	g.CurrentAmount = g.CurrentAmount.Round(2)
	g.Progress()
	return g, nil
}

func (s *GoalService) get(ctx context.Context, q database.Queryer, userID string, id int64) (*models.Goal, error) {
	g, err := scanGoal(q.QueryRowContext(ctx, goalSelect+` WHERE id = ? AND user_id = ?`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("goal")
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *GoalService) Get(ctx context.Context, userID string, id int64) (*models.Goal, error) {
	return s.get(ctx, s.db, userID, id)
}

// List orders active goals first, then completed, then the rest. Within a
// status the nearest target date comes first and undated goals last.
func (s *GoalService) List(ctx context.Context, userID string) ([]models.Goal, error) {
	rows, err := s.db.QueryContext(ctx, goalSelect+`
		WHERE user_id = ?
		ORDER BY
			CASE status WHEN 'active' THEN 0 WHEN 'completed' THEN 1 ELSE 2 END,
			CASE WHEN target_date IS NULL THEN 1 ELSE 0 END,
			target_date ASC,
			created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	goals := []models.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// Update replaces the goal's editable fields. An active goal whose new
// target is already covered is completed; a completed goal whose target
// moved out of reach becomes active again.
func (s *GoalService) Update(ctx context.Context, userID string, id int64, req models.GoalRequest) (*models.Goal, error) {
	next, err := goalFromRequest(req)
	if err != nil {
		return nil, err
	}

	var updated *models.Goal
	err = database.WithTransaction(ctx, s.db, func(tx *database.Tx) error {
		cur, err := s.get(ctx, tx, userID, id)
		if err != nil {
			return err
		}

		if req.Status == "" {
			next.Status = cur.Status
		}
		reached := cur.CurrentAmount.GreaterThanOrEqual(next.TargetAmount)
		switch {
		case next.Status == models.GoalActive && reached:
			next.Status = models.GoalCompleted
		case next.Status == models.GoalCompleted && !reached && req.Status == "":
			next.Status = models.GoalActive
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE financial_goals
			SET name = ?, description = ?, target_amount = ?, target_date = ?,
			    category = ?, icon = ?, color = ?, status = ?, updated_at = ?
			WHERE id = ? AND user_id = ?
		`, next.Name, next.Description, next.TargetAmount, next.TargetDate,
			next.Category, next.Icon, next.Color, next.Status, timestamp(), id, userID)
		if err != nil {
			return err
		}
		updated, err = s.get(ctx, tx, userID, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	utils.LogLedgerAction("update", "goal", id, userID)
	s.notifier.Notify(userID, EventGoalChanged, updated)
	return updated, nil
}

// Delete removes the goal together with its contributions.
func (s *GoalService) Delete(ctx context.Context, userID string, id int64) error {
	err := database.WithTransaction(ctx, s.db, func(tx *database.Tx) error {
		if _, err := s.get(ctx, tx, userID, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM goal_contributions WHERE goal_id = ?`, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM financial_goals WHERE id = ? AND user_id = ?`, id, userID)
		return err
	})
	if err != nil {
		return err
	}

	utils.LogLedgerAction("delete", "goal", id, userID)
	s.notifier.Notify(userID, EventGoalChanged, map[string]int64{"deleted": id})
	return nil
}

// Contribute records a contribution and recomputes the goal's current
// amount from the contribution history in the same transaction. The goal
// completes when the target is reached.
func (s *GoalService) Contribute(ctx context.Context, userID string, goalID int64, req models.ContributionRequest) (*models.ContributionResult, error) {
	if !req.Amount.IsPositive() {
		return nil, invalid("amount must be greater than zero")
	}
	c := models.GoalContribution{
		GoalID:           goalID,
		Amount:           req.Amount.Round(2),
		ContributionDate: models.DateOf(now()),
		Notes:            req.Notes,
		CreatedAt:        timestamp(),
	}
	if req.ContributionDate != nil && !req.ContributionDate.IsZero() {
		c.ContributionDate = *req.ContributionDate
	}

	result := &models.ContributionResult{}
	err := database.WithTransaction(ctx, s.db, func(tx *database.Tx) error {
		g, err := s.get(ctx, tx, userID, goalID)
		if err != nil {
			return err
		}
		if g.Status == models.GoalCancelled {
			return invalid("goal %q is cancelled", g.Name)
		}

		if err := tx.QueryRowContext(ctx, `
			INSERT INTO goal_contributions (goal_id, amount, contribution_date, notes, created_at)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id
		`, c.GoalID, c.Amount, c.ContributionDate, c.Notes, c.CreatedAt).Scan(&c.ID); err != nil {
			return err
		}

		var total decimal.Decimal
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(amount), 0) FROM goal_contributions WHERE goal_id = ?`, goalID).Scan(&total); err != nil {
			return err
		}
		total = total.Round(2)

		status := g.Status
		if status == models.GoalActive && total.GreaterThanOrEqual(g.TargetAmount) {
			status = models.GoalCompleted
			result.Completed = true
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE financial_goals SET current_amount = ?, status = ?, updated_at = ?
			WHERE id = ? AND user_id = ?
		`, total, status, timestamp(), goalID, userID); err != nil {
			return err
		}

		updated, err := s.get(ctx, tx, userID, goalID)
		if err != nil {
			return err
		}
		result.Goal = *updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Contribution = c

	utils.LogLedgerAction("contribute", "goal", goalID, userID)
	s.notifier.Notify(userID, EventGoalChanged, result.Goal)
	return result, nil
}

// Contributions lists a goal's contributions, newest first.
func (s *GoalService) Contributions(ctx context.Context, userID string, goalID int64) ([]models.GoalContribution, error) {
	if _, err := s.get(ctx, s.db, userID, goalID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, goal_id, amount, contribution_date, notes, created_at
		FROM goal_contributions
		WHERE goal_id = ?
		ORDER BY contribution_date DESC, id DESC
	`, goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contributions := []models.GoalContribution{}
	for rows.Next() {
		var c models.GoalContribution
		if err := rows.Scan(&c.ID, &c.GoalID, &c.Amount, &c.ContributionDate, &c.Notes, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Amount = c.Amount.Round(2)
		contributions = append(contributions, c)
	}
	return contributions, rows.Err()
}
