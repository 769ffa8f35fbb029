package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/config"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/deduction"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/workorder"
	appHTTP "github.com/cmlabs-hris/plantation-payroll-go/internal/handler/http"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/pkg/cron"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/pkg/logging"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/repository/postgresql"
	deductionService "github.com/cmlabs-hris/plantation-payroll-go/internal/service/deduction"
	payrollService "github.com/cmlabs-hris/plantation-payroll-go/internal/service/payroll"
	workOrderService "github.com/cmlabs-hris/plantation-payroll-go/internal/service/workorder"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.SlogLevel(), "plantation-payroll", cfg.App.Env)
	slog.SetDefault(logger)

	dsn := cfg.DatabaseURL()
	if cfg.Database.MigrateOnStart {
		if err := database.RunMigrations(dsn); err != nil {
			logger.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("Migrations applied")
	}

	db, err := database.NewPostgreSQLDB(dsn)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	workerRepo := postgresql.NewWorkerRepository(db)
	workOrderRepo := postgresql.NewWorkOrderRepository(db)
	registryRepo := postgresql.NewRegistryRepository(db)
	payrollRepo := postgresql.NewPayrollRepository(db)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	registrySvc := deductionService.NewRegistryService(db, registryRepo)
	builder := payrollService.NewBuilder(registrySvc, payrollRepo, deduction.DefaultDispatcher, nil)
	payrollSvc := payrollService.NewPayrollService(db, payrollRepo, workerRepo, builder)
	orchestrator := workOrderService.NewOrchestrator(db, workOrderRepo, workerRepo, payrollSvc)
	workOrderSvc := workOrderService.NewWorkOrderService(
		db,
		workOrderRepo,
		workorder.NewStateMachine(workorder.DefaultTransitions),
		orchestrator,
		nil,
	)

	deductionHandler := appHTTP.NewDeductionHandler(registrySvc, payrollSvc)
	payrollHandler := appHTTP.NewPayrollHandler(payrollSvc)
	workOrderHandler := appHTTP.NewWorkOrderHandler(workOrderSvc)

	router := appHTTP.NewRouter(
		appHTTP.RouterOptions{
			Logger:         logger,
			LogLevel:       cfg.SlogLevel(),
			AllowedOrigins: cfg.App.AllowedOrigins,
		},
		JWTService,
		deductionHandler,
		payrollHandler,
		workOrderHandler,
	)

	scheduler := cron.NewScheduler(logger)
	cron.NewRegistryAuditJobs(registryRepo, logger).RegisterJobs(scheduler, cfg.Cron.RegistryAuditInterval)
	scheduler.Start()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Server running", "addr", server.Addr, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
	scheduler.Stop()
}
