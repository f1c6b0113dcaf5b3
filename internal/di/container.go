// Package di assembles the application object graph. The container is
// explicit rather than generated: the Redis connection is probed lazily
// at construction and the process must keep running when it fails, a
// lifecycle that is easier to read as plain code.
package di

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	"clusterize-backend/internal/cache"
	"clusterize-backend/internal/config"
	"clusterize-backend/internal/interfaces/http/handlers"
	"clusterize-backend/internal/interfaces/http/rest"
	"clusterize-backend/internal/observability"
	"clusterize-backend/internal/repository/postgrest"
	"clusterize-backend/internal/service"
	"clusterize-backend/internal/storage"
)

// Container holds the wired application components.
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Metrics

	Supabase *supabase.Client
	Redis    *redis.Client
	Store    cache.Store

	Projects *service.ProjectService
	Clusters *service.ClusterService
	Objects  *service.ObjectService
	Storage  *service.StorageService
	Users    *service.UserService

	Handler http.Handler
}

// New builds the container. An unreachable Redis does not fail the
// build; the store runs in degraded mode and the health endpoint
// reports it.
func New(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	supabaseClient, err := supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating supabase client: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr(),
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})

	registry := prometheus.NewRegistry()
	metrics := observability.New(registry)

	store := cache.NewRedisStore(redisClient, logger, metrics)
	invalidator := cache.NewInvalidator(store, logger, metrics)

	bucket := storage.NewSupabaseClient(
		supabaseClient.Storage,
		cfg.Storage.AllowedMimeTypes,
		cfg.Storage.MaxUploadBytes,
	)
	batchCfg := storage.DefaultBatchConfig()
	batchCfg.URLLifetime = cfg.Storage.SignedURLLifetime
	urls := storage.NewURLBatchGenerator(bucket, batchCfg, logger, metrics)

	projectRepo := postgrest.NewProjectRepository(supabaseClient)
	clusterRepo := postgrest.NewClusterRepository(supabaseClient)
	objectRepo := postgrest.NewObjectRepository(supabaseClient)
	userRepo := postgrest.NewUserRepository(supabaseClient)

	projectSvc := service.NewProjectService(
		projectRepo, clusterRepo, objectRepo, bucket, store, invalidator, cfg.Cache, logger)
	clusterSvc := service.NewClusterService(
		projectRepo, clusterRepo, objectRepo, bucket, invalidator, logger)
	objectSvc := service.NewObjectService(
		projectRepo, clusterRepo, objectRepo, store, invalidator, urls,
		cfg.Cache, cfg.Storage, logger)
	storageSvc := service.NewStorageService(projectRepo, bucket, logger)
	userSvc := service.NewUserService(userRepo, logger)

	router := rest.NewRouter(
		logger,
		store,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		handlers.NewProjectHandler(projectSvc, objectSvc, logger),
		handlers.NewClusterHandler(clusterSvc, logger),
		handlers.NewObjectHandler(objectSvc, logger),
		handlers.NewStorageHandler(storageSvc, logger),
		handlers.NewUserHandler(userSvc, logger),
	)

	return &Container{
		Config:   cfg,
		Logger:   logger,
		Metrics:  metrics,
		Supabase: supabaseClient,
		Redis:    redisClient,
		Store:    store,
		Projects: projectSvc,
		Clusters: clusterSvc,
		Objects:  objectSvc,
		Storage:  storageSvc,
		Users:    userSvc,
		Handler:  router.Setup(),
	}, nil
}

// Close releases the container's connections.
func (c *Container) Close() error {
	return c.Redis.Close()
}
