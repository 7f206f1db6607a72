package routes

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/managenow/api/config"
	"github.com/managenow/api/database"
	"github.com/managenow/api/handlers"
	"github.com/managenow/api/middleware"
	"github.com/managenow/api/services"
)

const Version = "1.0.0"

// Services is the wired service graph shared by the router and the
// scheduler.
type Services struct {
	Auth         *services.AuthService
	Preferences  *services.PreferencesService
	Categories   *services.CategoryService
	Transactions *services.TransactionService
	Budgets      *services.BudgetService
	Bills        *services.BillService
	Goals        *services.GoalService
	Analytics    *services.AnalyticsService
	Shortcuts    *services.ShortcutService
	Banks        *services.BankService
	Reminders    *services.ReminderService
}

// NewServices builds every service on db. Ledger changes are pushed through
// notifier, which may be nil.
func NewServices(db *database.DB, cfg *config.Config, notifier services.Notifier, aggregators ...services.Aggregator) *Services {
	categories := services.NewCategoryService(db)
	transactions := services.NewTransactionService(db, categories, notifier)
	bills := services.NewBillService(db, categories, notifier, cfg.BillHorizonDays)

	var mailer services.ReminderMailer
	if cfg.Email.Enabled() {
		mailer = services.NewEmailService(cfg.Email, cfg.FrontendURL)
	}

	return &Services{
		Auth:         services.NewAuthService(db, cfg.JWTSecret, cfg.SessionTTL),
		Preferences:  services.NewPreferencesService(db),
		Categories:   categories,
		Transactions: transactions,
		Budgets:      services.NewBudgetService(db, categories, notifier),
		Bills:        bills,
		Goals:        services.NewGoalService(db, notifier),
		Analytics:    services.NewAnalyticsService(db, bills),
		Shortcuts:    services.NewShortcutService(db, categories, transactions),
		Banks:        services.NewBankService(db, categories, notifier, cfg.JWTSecret, aggregators...),
		Reminders:    services.NewReminderService(bills, mailer, notifier),
	}
}

// Aggregators returns the bank providers that have credentials configured.
func Aggregators(cfg *config.Config) []services.Aggregator {
	var out []services.Aggregator
	if cfg.Brick.Enabled() {
		out = append(out, services.NewBrickClient(cfg.Brick))
	} else {
		log.Println("⚠️ Brick credentials not set, provider disabled")
	}
	if cfg.Finverse.Enabled() {
		out = append(out, services.NewFinverseClient(cfg.Finverse))
	} else {
		log.Println("⚠️ Finverse credentials not set, provider disabled")
	}
	return out
}

// SetupRouter builds the gin engine. ws may be nil, in which case the
// realtime endpoint is not mounted. limiter may be nil to disable rate
// limiting.
func SetupRouter(cfg *config.Config, svc *Services, ws *handlers.WSHandler, limiter *middleware.RateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))
	router.Use(middleware.RequestLogger())
	if limiter != nil {
		router.Use(limiter.Middleware())
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"version": Version,
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	v1 := router.Group("/api/v1")
	{
		SetupAuthRoutes(v1, cfg, svc)
		v1.GET("/providers/:provider/callback", (&handlers.BankingHandler{Banks: svc.Banks, FrontendURL: cfg.FrontendURL}).Callback)

		protected := v1.Group("/")
		protected.Use(middleware.AuthMiddleware(svc.Auth))
		{
			SetupUserRoutes(protected, cfg, svc)
			SetupLedgerRoutes(protected, svc)
			SetupBudgetRoutes(protected, svc)
			SetupBillRoutes(protected, svc)
			SetupGoalRoutes(protected, svc)
			SetupBankingRoutes(protected, cfg, svc)
			if ws != nil {
				protected.GET("/ws", ws.HandleWS)
			}
		}
	}

	return router
}

// SetupAuthRoutes sets up public authentication routes.
func SetupAuthRoutes(rg *gin.RouterGroup, cfg *config.Config, svc *Services) {
	h := &handlers.AuthHandler{Auth: svc.Auth, SecureCookie: cfg.GinMode == gin.ReleaseMode}

	rg.POST("/auth/sign-up", h.SignUp)
	rg.POST("/auth/sign-in", h.SignIn)
}

// SetupUserRoutes sets up the profile, 2FA and preference routes.
func SetupUserRoutes(rg *gin.RouterGroup, cfg *config.Config, svc *Services) {
	auth := &handlers.AuthHandler{Auth: svc.Auth, SecureCookie: cfg.GinMode == gin.ReleaseMode}
	h := &handlers.UserHandler{Auth: svc.Auth, Preferences: svc.Preferences}

	rg.POST("/auth/sign-out", auth.SignOut)

	rg.GET("/user", h.GetUser)
	rg.PUT("/user/profile", h.UpdateProfile)
	rg.POST("/user/password", h.ChangePassword)
	rg.POST("/user/2fa/setup", h.SetupTOTP)
	rg.POST("/user/2fa/verify", h.VerifyTOTP)
	rg.POST("/user/2fa/disable", h.DisableTOTP)

	rg.GET("/preferences", h.GetPreferences)
	rg.PUT("/preferences", h.UpdatePreferences)
	rg.GET("/preferences/format", h.FormatAmount)
}

func SetupLedgerRoutes(rg *gin.RouterGroup, svc *Services) {
	h := &handlers.LedgerHandler{Categories: svc.Categories, Transactions: svc.Transactions, Shortcuts: svc.Shortcuts}

	rg.GET("/categories", h.ListCategories)
	rg.POST("/categories", h.CreateCategory)
	rg.DELETE("/categories/:id", h.DeleteCategory)

	rg.GET("/transactions", h.ListTransactions)
	rg.GET("/transactions/recent", h.RecentTransactions)
	rg.GET("/transactions/export.csv", h.ExportTransactions)
	rg.POST("/transactions", h.CreateTransaction)
	rg.DELETE("/transactions/:id", h.DeleteTransaction)

	rg.GET("/shortcuts", h.ListShortcuts)
	rg.POST("/shortcuts", h.CreateShortcut)
	rg.DELETE("/shortcuts/:id", h.DeleteShortcut)
	rg.POST("/shortcuts/:id/use", h.UseShortcut)
}

// SetupBudgetRoutes sets up budget allocation and analytics routes.
func SetupBudgetRoutes(rg *gin.RouterGroup, svc *Services) {
	h := &handlers.BudgetHandler{Budgets: svc.Budgets, Analytics: svc.Analytics}

	rg.GET("/budgets", h.ListBudgets)
	rg.GET("/budgets/summary", h.BudgetSummary)
	rg.POST("/budgets", h.AllocateBudget)
	rg.DELETE("/budgets/:id", h.DeleteBudget)

	rg.GET("/analytics/spending", h.SpendingByCategory)
	rg.GET("/analytics/trends", h.Trends)
	rg.GET("/analytics/dashboard", h.Dashboard)
}

func SetupBillRoutes(rg *gin.RouterGroup, svc *Services) {
	h := &handlers.BillHandler{Bills: svc.Bills}

	rg.GET("/bills", h.ListBills)
	rg.GET("/bills/upcoming", h.UpcomingBills)
	rg.POST("/bills", h.CreateBill)
	rg.PUT("/bills/:id", h.UpdateBill)
	rg.DELETE("/bills/:id", h.DeleteBill)
	rg.POST("/bills/payments/:paymentId/pay", h.MarkPaid)
}

func SetupGoalRoutes(rg *gin.RouterGroup, svc *Services) {
	h := &handlers.GoalHandler{Goals: svc.Goals}

	rg.GET("/goals", h.ListGoals)
	rg.POST("/goals", h.CreateGoal)
	rg.PUT("/goals/:id", h.UpdateGoal)
	rg.DELETE("/goals/:id", h.DeleteGoal)
	rg.GET("/goals/:id/contributions", h.ListContributions)
	rg.POST("/goals/:id/contributions", h.Contribute)
}

// SetupBankingRoutes sets up the protected bank linking routes. The provider
// callback is public and mounted by SetupRouter.
func SetupBankingRoutes(rg *gin.RouterGroup, cfg *config.Config, svc *Services) {
	h := &handlers.BankingHandler{Banks: svc.Banks, FrontendURL: cfg.FrontendURL}

	rg.GET("/banks", h.ListBanks)
	rg.GET("/providers/:provider/institutions", h.Institutions)
	rg.POST("/providers/:provider/connect", h.Connect)
	rg.POST("/banks/:id/sync", h.SyncBank)
	rg.DELETE("/banks/:id", h.DeleteBank)
}
