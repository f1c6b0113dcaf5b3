// Package rest wires the chi router: middleware chain, CORS, health and
// metrics endpoints, and the API v1 routes.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"clusterize-backend/internal/cache"
	"clusterize-backend/internal/interfaces/http/handlers"
	"clusterize-backend/internal/interfaces/http/middleware"
	"clusterize-backend/pkg/api"
)

// Router creates and configures the HTTP router.
type Router struct {
	logger         *zap.Logger
	store          cache.Store
	metricsHandler http.Handler

	projects *handlers.ProjectHandler
	clusters *handlers.ClusterHandler
	objects  *handlers.ObjectHandler
	storage  *handlers.StorageHandler
	users    *handlers.UserHandler
}

// NewRouter creates a router instance.
func NewRouter(
	logger *zap.Logger,
	store cache.Store,
	metricsHandler http.Handler,
	projects *handlers.ProjectHandler,
	clusters *handlers.ClusterHandler,
	objects *handlers.ObjectHandler,
	storage *handlers.StorageHandler,
	users *handlers.UserHandler,
) *Router {
	return &Router{
		logger:         logger,
		store:          store,
		metricsHandler: metricsHandler,
		projects:       projects,
		clusters:       clusters,
		objects:        objects,
		storage:        storage,
		users:          users,
	}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recoverer(rt.logger))
	router.Use(middleware.Logger(rt.logger))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-User-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/health", rt.healthCheck)
	if rt.metricsHandler != nil {
		router.Method(http.MethodGet, "/metrics", rt.metricsHandler)
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/", rt.users.EnsureUser)
			r.Delete("/{authID}", rt.users.DeleteUser)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", rt.projects.ListProjects)
			r.Post("/", rt.projects.CreateProject)

			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", rt.projects.GetProject)
				r.Put("/", rt.projects.UpdateProject)
				r.Delete("/", rt.projects.DeleteProject)
				r.Get("/statistics", rt.projects.GetProjectStatistics)
				r.Post("/reset", rt.projects.ResetProject)
				r.Post("/upload", rt.storage.UploadFiles)

				r.Route("/clusters", func(r chi.Router) {
					r.Get("/", rt.clusters.ListClusters)
					r.Post("/", rt.clusters.CreateCluster)
					r.Post("/upload", rt.clusters.CreateFromUpload)
					r.Get("/{label}/objects", rt.clusters.ListClusterObjects)
					r.Put("/{label}", rt.clusters.UpdateCluster)
					r.Post("/{label}/reset", rt.clusters.ResetCluster)
				})

				r.Route("/objects", func(r chi.Router) {
					r.Get("/", rt.objects.ListObjects)
					r.Put("/batch", rt.objects.BatchUpdateObjects)
					r.Put("/{objectID}", rt.objects.UpdateObject)
				})
			})
		})
	})

	return router
}

// healthCheck reports process liveness plus the cache store's state, so
// degraded (uncached) mode is visible without failing the check.
func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"cache":  rt.store.Available(),
	})
}
