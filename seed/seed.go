// Package seed fills a database with demo users and a few months of
// plausible activity.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"

	"github.com/managenow/api/database"
	"github.com/managenow/api/models"
	"github.com/managenow/api/services"
	"github.com/managenow/api/utils"
)

const DemoPassword = "demo-password"

type Seeder struct {
	DB           *database.DB
	Auth         *services.AuthService
	Categories   *services.CategoryService
	Transactions *services.TransactionService
	Budgets      *services.BudgetService
	Bills        *services.BillService
	Goals        *services.GoalService

	faker *gofakeit.Faker
}

// Result lists the emails of the created users. All of them sign in with
// DemoPassword.
type Result struct {
	Emails       []string
	Transactions int
}

var (
	expenseNames = []string{"Food & Dining", "Groceries", "Transportation", "Shopping", "Entertainment", "Health"}
	incomeNames  = []string{"Salary", "Freelance"}
)

// Run creates users demo accounts. The same seed value produces the same
// data.
func (s *Seeder) Run(ctx context.Context, users int, seed int64) (*Result, error) {
	s.faker = gofakeit.New(seed)
	categories, err := s.categoryIDs(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for i := 0; i < users; i++ {
		email := s.faker.Email()
		auth, err := s.Auth.SignUp(ctx, models.SignupRequest{
			Email:     email,
			Password:  DemoPassword,
			FirstName: s.faker.FirstName(),
			LastName:  s.faker.LastName(),
			City:      s.faker.City(),
		})
		if err != nil {
			return nil, fmt.Errorf("seed user %s: %w", email, err)
		}

		n, err := s.seedUser(ctx, auth.User.ID, categories)
		if err != nil {
			return nil, fmt.Errorf("seed data for %s: %w", email, err)
		}
		res.Emails = append(res.Emails, email)
		res.Transactions += n
		utils.SafeInfo("🌱 Seeded %s with %d transactions", utils.MaskEmail(email), n)
	}
	return res, nil
}

func (s *Seeder) categoryIDs(ctx context.Context) (map[string]int64, error) {
	ids := make(map[string]int64)
	for _, name := range append(append([]string{"Bills & Utilities"}, expenseNames...), incomeNames...) {
		id, err := s.Categories.DefaultByName(ctx, s.DB, name)
		if err != nil {
			return nil, err
		}
		ids[name] = id
	}
	return ids, nil
}

func (s *Seeder) seedUser(ctx context.Context, userID string, categories map[string]int64) (int, error) {
	today := models.Today()
	count := 0

	for m := 2; m >= 0; m-- {
		first := models.NewDate(today.Year(), today.Month()-time.Month(m), 1)

		_, err := s.Transactions.Create(ctx, userID, models.CreateTransactionRequest{
			CategoryID:      categories["Salary"],
			Amount:          s.amount(8_000_000, 15_000_000),
			Type:            "income",
			Description:     "Monthly salary",
			TransactionDate: first,
		})
		if err != nil {
			return count, err
		}
		count++

		for i := 0; i < 12; i++ {
			day := first.AddDays(s.faker.Number(0, 27))
			if day.After(today) {
				continue
			}
			name := expenseNames[s.faker.Number(0, len(expenseNames)-1)]
			_, err := s.Transactions.Create(ctx, userID, models.CreateTransactionRequest{
				CategoryID:      categories[name],
				Amount:          s.amount(15_000, 750_000),
				Type:            "expense",
				Description:     s.faker.Sentence(3),
				TransactionDate: day,
			})
			if err != nil {
				return count, err
			}
			count++
		}
	}

	for _, name := range expenseNames[:3] {
		_, err := s.Budgets.Allocate(ctx, userID, models.BudgetRequest{
			CategoryID:      categories[name],
			MonthYear:       today.MonthYear(),
			AllocatedAmount: s.amount(500_000, 2_000_000),
		})
		if err != nil {
			return count, err
		}
	}

	_, err := s.Bills.Create(ctx, userID, models.BillRequest{
		CategoryID: categories["Bills & Utilities"],
		Name:       "Electricity",
		Amount:     s.amount(300_000, 900_000),
		Type:       "expense",
		Frequency:  "monthly",
		DueDay:     s.faker.Number(1, 28),
		StartDate:  models.NewDate(today.Year(), today.Month()-1, 1),
	})
	if err != nil {
		return count, err
	}

	target := today.AddDays(365)
	goal, err := s.Goals.Create(ctx, userID, models.GoalRequest{
		Name:         "Emergency fund",
		Description:  s.faker.Sentence(6),
		TargetAmount: s.amount(20_000_000, 50_000_000),
		TargetDate:   &target,
	})
	if err != nil {
		return count, err
	}
	_, err = s.Goals.Contribute(ctx, userID, goal.ID, models.ContributionRequest{
		Amount: s.amount(1_000_000, 5_000_000),
	})
	return count, err
}

// amount returns a whole Rupiah value in [min, max] rounded to the hundred.
func (s *Seeder) amount(min, max int) decimal.Decimal {
	return decimal.NewFromInt(int64(s.faker.Number(min, max))).Div(decimal.NewFromInt(100)).Round(0).Mul(decimal.NewFromInt(100))
}
