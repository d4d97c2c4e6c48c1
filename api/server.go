/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Structured request logging through zap
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the operator UI

ROUTE GROUPS:
  /api/people/*                  People (data source contract)
  /api/areas/*                   Areas (data source contract)
  /api/{collection}/*            Tier records, one group per record tier
  /api/stats/*                   Aggregate counts
  /api/hierarchy/*               Suggest, assign, upline, downline
  /api/scenarios/*               Demo scenarios

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Data source handlers
  - engine.go: Engine handlers
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/hierarchy-engine/hierarchy"
	"go.uber.org/zap"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/people", func(r chi.Router) {
			r.Get("/", h.ListPeople)
			r.Post("/", h.CreatePerson)
			r.Get("/{id}", h.GetPerson)
			r.Put("/{id}", h.UpdatePerson)
		})

		r.Route("/areas", func(r chi.Router) {
			r.Get("/", h.ListAreas)
			r.Post("/", h.CreateArea)
			r.Get("/by-name/{name}", h.GetAreaByName)
			r.Get("/{id}", h.GetArea)
			r.Put("/{id}", h.UpdateArea)
			r.Put("/{id}/{index}", h.AppendAreaIndex)
		})

		// Tier record collections
		for _, tier := range hierarchy.RecordTiers {
			spec, _ := tier.Spec()
			r.Route("/"+spec.Collection, func(r chi.Router) {
				r.Get("/", h.ListRecords(tier))
				r.Post("/", h.CreateRecord(tier))
				r.Put("/{id}", h.UpdateRecord(tier))
			})
		}

		r.Route("/stats", func(r chi.Router) {
			r.Get("/count", h.AreaStats)
			r.Get("/roles-by-municipality", h.RolesByMunicipality)
		})

		r.Route("/hierarchy", func(r chi.Router) {
			r.Get("/suggest", h.Suggest)
			r.Post("/assign", h.Assign)
			r.Post("/functionary", h.TagFunctionary)
			r.Get("/people/{id}/upline", h.Upline)
			r.Get("/people/{id}/downline", h.Downline)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}

// requestLogger logs one line per request.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
