package api

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/rflorenc/vm-migration-console/internal/inventory"
	"github.com/rflorenc/vm-migration-console/internal/kube"
	"github.com/rflorenc/vm-migration-console/internal/logging"
	"github.com/rflorenc/vm-migration-console/internal/metrics"
	"github.com/rflorenc/vm-migration-console/internal/models"
	"github.com/rflorenc/vm-migration-console/internal/wizard"
)

// Server holds shared state for all API handlers.
type Server struct {
	Inventory inventory.Source
	Kube      *kube.Client
	Sessions  *models.SessionStore
	Jobs      *models.JobStore
	Prefiller *wizard.Prefiller
	Poller    *Poller
	Metrics   *metrics.Metrics
	Log       logrus.FieldLogger
}

func (s *Server) namespace() string {
	return s.Kube.Namespace()
}

// NewRouter builds the chi router with all API routes and, when webFS is
// non-nil, static file serving.
func NewRouter(s *Server, webFS fs.FS) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(logging.RequestLogger(s.Log))
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		// Inventory
		r.Get("/providers", s.ListProviders)
		r.Route("/providers/{type}/{name}", func(r chi.Router) {
			r.Get("/vms", s.ListVMs)
			r.Get("/vms/filters", s.VMFilters)
			r.Get("/tree/{treeType}", s.GetTree)
			r.Get("/tree-path-info", s.GetTreePathInfo)
			r.Get("/networks", s.ListNetworks)
			r.Get("/datastores", s.ListDatastores)
			r.Get("/hosts", s.ListHosts)
			r.Post("/hosts/prefill", s.PrefillHostNetwork)
			r.Post("/hosts/network", s.ApplyHostNetwork)
		})

		// Plans and mappings
		r.Get("/plans", s.ListPlans)
		r.Post("/plans", s.CreatePlan)
		r.Get("/plans/{name}", s.GetPlan)
		r.Patch("/plans/{name}", s.PatchPlan)
		r.Delete("/plans/{name}", s.DeletePlan)
		r.Get("/plans/{name}/status", s.GetPlanStatus)
		r.Get("/plans/{name}/manifest", s.GetPlanManifest)
		r.Get("/mappings/{type}", s.ListMappings)
		r.Delete("/mappings/{type}/{name}", s.DeleteMapping)

		// Plan wizard
		r.Post("/wizards", s.CreateWizard)
		r.Get("/wizards/{id}", s.GetWizard)
		r.Delete("/wizards/{id}", s.DeleteWizard)
		r.Post("/wizards/{id}/prefill/retry", s.RetryPrefill)
		r.Get("/wizards/{id}/tree", s.GetWizardTree)
		r.Get("/wizards/{id}/mapping-sources/{type}", s.GetMappingSources)
		r.Post("/wizards/{id}/submit", s.SubmitWizard)
		r.Put("/wizards/{id}/{step}", s.UpdateWizardStep)
		r.Post("/wizards/{id}/{step}/reset", s.ResetWizardStep)

		// Jobs
		r.Get("/jobs", s.ListJobs)
		r.Get("/jobs/{id}", s.GetJob)
		r.Post("/jobs/{id}/cancel", s.CancelJob)
	})

	// WebSocket (outside /api to avoid JSON content-type assumptions)
	r.Get("/ws/jobs/{id}/logs", s.StreamJobLogs)
	r.Get("/ws/plans", s.StreamPlanStatus)

	if webFS != nil {
		r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
			path := req.URL.Path
			if path == "/" {
				path = "/index.html"
			}

			// Try to serve the actual file (JS, CSS, fonts, etc.)
			f, err := webFS.Open(path[1:])
			if err == nil {
				f.Close()
				http.ServeFileFS(w, req, webFS, path[1:])
				return
			}

			// For any non-file path, serve index.html (SPA client-side routing)
			http.ServeFileFS(w, req, webFS, "index.html")
		})
	}

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
