/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. zap logger: Structured request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for frontend

SECURITY NOTE:
  No authentication middleware. All endpoints are public; production
  deployments must front this with the organization's auth gateway.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Fee standards
		r.Route("/standards", func(r chi.Router) {
			r.Get("/", h.ListStandards)
			r.Get("/{campus}", h.GetStandard)
		})

		// Students
		r.Route("/students", func(r chi.Router) {
			r.Get("/", h.ListStudents)
			r.Post("/", h.CreateStudent)
			r.Get("/{id}", h.GetStudent)
			r.Get("/{id}/fees", h.GetStudentFees)
			r.Get("/{id}/attendance/{period}", h.GetAttendanceStats)
			r.Get("/{id}/payments", h.GetPaymentHistory)
			r.Get("/{id}/payment-status", h.GetPaymentStatus)
		})

		// Attendance
		r.Post("/attendance", h.RecordAttendance)

		// Refunds
		r.Route("/refunds", func(r chi.Router) {
			r.Get("/", h.ListRefunds)
			r.Post("/preview", h.PreviewRefund)
			r.Post("/calculate", h.CalculateRefund)
			r.Post("/batch", h.BatchCalculateRefunds)
			r.Post("/{id}/approve", h.ApproveRefund)
			r.Post("/{id}/complete", h.CompleteRefund)
		})

		// Payments
		r.Route("/payments", func(r chi.Router) {
			r.Get("/", h.ListPayments)
			r.Post("/", h.CreatePayment)
			r.Get("/stats", h.GetPaymentStats)
			r.Post("/{id}/confirm", h.ConfirmPayment)
			r.Post("/{id}/cancel", h.CancelPayment)
		})

		// QR payment proofs
		r.Route("/qr-payments", func(r chi.Router) {
			r.Get("/", h.ListQRPayments)
			r.Post("/", h.SubmitQRPayment)
			r.Post("/{id}/confirm", h.ConfirmQRPayment)
			r.Post("/{id}/reject", h.RejectQRPayment)
		})

		// Per-campus config and queries
		r.Route("/campuses/{campus}", func(r chi.Router) {
			r.Get("/overdue", h.ListOverdueStudents)
			r.Get("/fee-configs", h.ListFeeConfigs)
			r.Get("/refund-rules", h.ListRefundRules)
			r.Post("/seed-configs", h.SeedConfigs)
		})

		// Reports
		r.Get("/summary", h.GetSummary)

		// Demo data (dev only)
		r.Post("/demo/seed", h.SeedDemo)
	})

	return r
}

// requestLogger logs one structured line per request.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
