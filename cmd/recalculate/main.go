package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/config"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/deduction"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/pkg/logging"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/repository/postgresql"
	deductionService "github.com/cmlabs-hris/plantation-payroll-go/internal/service/deduction"
	payrollService "github.com/cmlabs-hris/plantation-payroll-go/internal/service/payroll"
)

type options struct {
	month   *payroll.Month
	actor   string
	migrate bool
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("recalculate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	var month string
	fs.StringVar(&month, "month", "", "payroll month to recalculate (YYYY-MM); all months when empty")
	fs.StringVar(&opts.actor, "actor", "", "identity recorded as the recalculating user")
	fs.BoolVar(&opts.migrate, "migrate", false, "apply database migrations first")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.actor == "" {
		return options{}, errors.New("missing -actor")
	}
	if month != "" {
		m, err := payroll.ParseMonth(month)
		if err != nil {
			return options{}, err
		}
		opts.month = &m
	}
	return opts, nil
}

func main() {
	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fatal(err)
	}

	cfg, err := config.LoadDatabase()
	if err != nil {
		fatal(err)
	}
	logger := logging.New(os.Stderr, cfg.SlogLevel(), "plantation-payroll-recalculate", cfg.App.Env)
	slog.SetDefault(logger)

	dsn := cfg.DatabaseURL()
	if opts.migrate || cfg.Database.MigrateOnStart {
		if err := database.RunMigrations(dsn); err != nil {
			fatal(err)
		}
		logger.Info("Migrations applied")
	}

	db, err := database.NewPostgreSQLDB(dsn)
	if err != nil {
		fatal(err)
	}
	defer db.Close()

	payrollRepo := postgresql.NewPayrollRepository(db)
	registrySvc := deductionService.NewRegistryService(db, postgresql.NewRegistryRepository(db))
	builder := payrollService.NewBuilder(registrySvc, payrollRepo, deduction.DefaultDispatcher, nil)
	svc := payrollService.NewPayrollService(db, payrollRepo, postgresql.NewWorkerRepository(db), builder)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var summaries []payroll.RecalculationSummary
	if opts.month != nil {
		summary, err := svc.RecalculateMonth(ctx, *opts.month, opts.actor)
		if err != nil {
			fatal(err)
		}
		summaries = append(summaries, summary)
	} else {
		summaries, err = svc.RecalculateAll(ctx, opts.actor)
		if err != nil {
			fatal(err)
		}
	}

	for _, s := range summaries {
		logger.Info("Month recalculated", "month", s.Month, "recalculated", s.Recalculated, "changed", s.Changed)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summaries); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "recalculate:", err)
	os.Exit(1)
}
