package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/managenow/api/config"
	"github.com/managenow/api/database"
	"github.com/managenow/api/handlers"
	"github.com/managenow/api/middleware"
	"github.com/managenow/api/routes"
	"github.com/managenow/api/scheduler"
	"github.com/managenow/api/seed"
	"github.com/managenow/api/utils"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "managenow",
		Short:   "Personal finance API",
		Version: routes.Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API and the scheduled jobs",
			RunE:  func(cmd *cobra.Command, args []string) error { return serve() },
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply the schema and default categories, then exit",
			RunE:  func(cmd *cobra.Command, args []string) error { return migrate() },
		},
		newSeedCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// open loads the configuration and returns a migrated database.
func open() (*config.Config, *database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.DataEncryptionKey != "" {
		if err := utils.SetEncryptionKey(cfg.DataEncryptionKey); err != nil {
			return nil, nil, err
		}
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Printf("✅ Database connected successfully (%s)", db.Dialect())

	if err := config.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return cfg, db, nil
}

func migrate() error {
	_, db, err := open()
	if err != nil {
		return err
	}
	defer db.Close()

	log.Println("✅ Migrations applied")
	return nil
}

func newSeedCommand() *cobra.Command {
	var users int
	var seedValue int64

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create demo users with a few months of activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			svc := routes.NewServices(db, cfg, nil)
			seeder := &seed.Seeder{
				DB:           db,
				Auth:         svc.Auth,
				Categories:   svc.Categories,
				Transactions: svc.Transactions,
				Budgets:      svc.Budgets,
				Bills:        svc.Bills,
				Goals:        svc.Goals,
			}

			res, err := seeder.Run(cmd.Context(), users, seedValue)
			if err != nil {
				return err
			}
			for _, email := range res.Emails {
				fmt.Fprintf(cmd.OutOrStdout(), "%s / %s\n", email, seed.DemoPassword)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&users, "users", 3, "number of demo users")
	cmd.Flags().Int64Var(&seedValue, "seed", time.Now().UnixNano(), "random seed")
	return cmd
}

func serve() error {
	cfg, db, err := open()
	if err != nil {
		return err
	}
	defer db.Close()

	gin.SetMode(cfg.GinMode)

	wsHandler := handlers.NewWSHandler()
	defer wsHandler.Close()

	svc := routes.NewServices(db, cfg, wsHandler, routes.Aggregators(cfg)...)

	jobs := scheduler.New(svc.Bills, svc.Auth, svc.Reminders)
	if err := jobs.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer jobs.Stop()

	stop := make(chan struct{})
	defer close(stop)
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	go limiter.Run(stop)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.SetupRouter(cfg, svc, wsHandler, limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.LogStartup("ManageNow API", routes.Version, cfg.Port, db.Dialect().String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Printf("🛑 Received %s, shutting down...", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
