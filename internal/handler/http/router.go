package http

import (
	"log/slog"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterOptions struct {
	Logger         *slog.Logger
	LogLevel       slog.Level
	AllowedOrigins []string
}

func NewRouter(
	opts RouterOptions,
	JWTService jwt.Service,
	deductionHandler DeductionHandler,
	payrollHandler PayrollHandler,
	workOrderHandler WorkOrderHandler,
) *chi.Mux {
	r := chi.NewRouter()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  opts.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)

			r.Route("/deductions", func(r chi.Router) {
				r.Get("/", deductionHandler.ListActive)
				r.Post("/", deductionHandler.Create)
				r.Post("/import", deductionHandler.Import)
				r.Post("/quote", deductionHandler.Quote)

				r.Route("/codes/{code}", func(r chi.Router) {
					r.Get("/", deductionHandler.History)
					r.Delete("/", deductionHandler.DeleteCode)
					r.Post("/supersede", deductionHandler.Supersede)
				})

				r.Route("/{id}", func(r chi.Router) {
					r.Post("/close", deductionHandler.Close)
					r.Post("/wage-ranges", deductionHandler.AddWageRange)
				})
			})

			r.Route("/payroll", func(r chi.Router) {
				r.Post("/recalculate", payrollHandler.RecalculateAll)

				r.Route("/aggregates/{month}", func(r chi.Router) {
					r.Get("/", payrollHandler.GetAggregate)
					r.Get("/details", payrollHandler.ListDetails)
					r.Post("/recalculate", payrollHandler.RecalculateMonth)
				})

				r.Route("/details/{id}", func(r chi.Router) {
					r.Get("/", payrollHandler.GetDetail)
					r.Post("/recalculate", payrollHandler.RecalculateDetail)
				})
			})

			r.Route("/work-orders/{id}", func(r chi.Router) {
				r.Get("/", workOrderHandler.Get)
				r.Get("/history", workOrderHandler.History)
				r.Post("/process", workOrderHandler.Process)
				r.Post("/{event}", workOrderHandler.Fire)
			})
		})
	})
	return r
}
