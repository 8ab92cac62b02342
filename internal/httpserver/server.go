package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fdg312/plateplan/internal/access"
	"github.com/fdg312/plateplan/internal/auth"
	"github.com/fdg312/plateplan/internal/blob"
	"github.com/fdg312/plateplan/internal/catalog"
	"github.com/fdg312/plateplan/internal/config"
	"github.com/fdg312/plateplan/internal/logging"
	"github.com/fdg312/plateplan/internal/mealplans"
	"github.com/fdg312/plateplan/internal/metrics"
	"github.com/fdg312/plateplan/internal/nutrition"
	"github.com/fdg312/plateplan/internal/planner"
	"github.com/fdg312/plateplan/internal/profiles"
	"github.com/fdg312/plateplan/internal/recipes"
	"github.com/fdg312/plateplan/internal/shopping"
	"github.com/fdg312/plateplan/internal/storage"
	"github.com/fdg312/plateplan/internal/storage/memory"
	"github.com/fdg312/plateplan/internal/storage/postgres"
)

// Server представляет HTTP сервер
type Server struct {
	config         *config.Config
	logger         *zap.Logger
	mux            *http.ServeMux
	storage        storage.Storage
	redis          *redis.Client
	metrics        *metrics.Collector
	authMiddleware *auth.Middleware
	httpServer     *http.Server
}

// New создаёт новый HTTP сервер: storage, каталог, сервисы и маршруты.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	s := &Server{
		config: cfg,
		logger: logging.OrNop(logger),
		mux:    http.NewServeMux(),
	}

	if cfg.MetricsEnabled {
		s.metrics = metrics.New(prometheus.NewRegistry())
	}

	if err := s.initStorage(ctx); err != nil {
		return nil, err
	}

	if err := s.routes(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// initStorage инициализирует storage (Memory или Postgres). In-memory
// storage получает встроенный каталог рецептов и шаблонов.
func (s *Server) initStorage(ctx context.Context) error {
	if s.config.DatabaseURL != "" {
		s.logger.Info("connecting to postgres")
		pgStorage, err := postgres.New(ctx, s.config.DatabaseURL)
		if err == nil {
			s.logger.Info("postgres connected")
			s.storage = pgStorage
			return nil
		}
		s.logger.Warn("postgres unavailable, falling back to in-memory storage", zap.Error(err))
	} else {
		s.logger.Info("using in-memory storage")
	}

	mem := memory.New()
	seed, err := catalog.Load()
	if err != nil {
		return fmt.Errorf("failed to load built-in catalog: %w", err)
	}
	if err := seed.Apply(ctx, mem); err != nil {
		return err
	}
	s.logger.Info("built-in catalog loaded",
		zap.Int("recipes", len(seed.Recipes)),
		zap.Int("templates", len(seed.Templates)))
	s.storage = mem
	return nil
}

// recipeCatalog returns the storage-backed catalog, fronted by Redis when
// REDIS_URL is set and reachable.
func (s *Server) recipeCatalog(ctx context.Context) recipes.Catalog {
	base := recipes.NewStoreCatalog(s.storage.GetRecipesStorage())
	if s.config.RedisURL == "" {
		return base
	}

	client, err := recipes.NewRedisClient(ctx, s.config.RedisURL)
	if err != nil {
		s.logger.Warn("redis unavailable, recipe cache disabled", zap.Error(err))
		return base
	}
	s.redis = client
	s.logger.Info("recipe cache enabled", zap.Duration("ttl", s.config.RecipeCacheTTL))
	return recipes.NewCachedCatalog(base, client, s.config.RecipeCacheTTL, s.logger.Named("recipe-cache"), s.metrics)
}

// routes регистрирует маршруты
func (s *Server) routes(ctx context.Context) error {
	// Health check (no auth required)
	s.mux.HandleFunc("/healthz", s.handleHealthz)

	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// Auth API (no auth required)
	authService := auth.NewService(s.config)
	s.authMiddleware = auth.NewMiddleware(s.config, authService, s.logger.Named("auth"))
	if s.config.AuthMode == config.AuthModeDev {
		authHandler := auth.NewHandlers(authService, s.logger.Named("auth"))
		// POST /v1/auth/dev - dev token for any user id
		s.mux.HandleFunc("POST /v1/auth/dev", authHandler.HandleDevAuth)
	}

	profilesStore := s.storage.GetProfilesStorage()
	recipeCatalog := s.recipeCatalog(ctx)
	gate := access.NewGate(access.NewProfileSubscriptions(profilesStore))
	targets := nutrition.NewService(profilesStore)

	// Profile API
	profileHandler := profiles.NewHandler(profiles.NewService(profilesStore), s.logger.Named("profiles"))
	s.mux.HandleFunc("GET /v1/profile", profileHandler.HandleGet)
	s.mux.HandleFunc("PUT /v1/profile", profileHandler.HandleUpdate)

	// Nutrition targets API
	nutritionHandler := nutrition.NewHandler(targets, s.logger.Named("nutrition"))
	s.mux.HandleFunc("GET /v1/nutrition/targets", nutritionHandler.HandleGetTargets)

	// Recipes API
	recipesHandler := recipes.NewHandler(recipeCatalog, s.logger.Named("recipes"))
	s.mux.HandleFunc("GET /v1/recipes", recipesHandler.HandleList)
	s.mux.HandleFunc("GET /v1/recipes/{id}", recipesHandler.HandleGet)

	// Day planner API
	plannerService := planner.NewService(planner.Deps{
		Items:     s.storage.GetDayItemsStorage(),
		Templates: s.storage.GetTemplatesStorage(),
		Catalog:   recipeCatalog,
		Targets:   targets,
		Gate:      gate,
		Logger:    s.logger.Named("planner"),
		Metrics:   s.metrics,
	})
	plannerHandler := planner.NewHandler(plannerService, s.logger.Named("planner"))
	s.mux.HandleFunc("POST /v1/planner/add", plannerHandler.HandleAdd)
	s.mux.HandleFunc("POST /v1/planner/update", plannerHandler.HandleUpdate)
	s.mux.HandleFunc("POST /v1/planner/remove", plannerHandler.HandleRemove)
	s.mux.HandleFunc("GET /v1/planner/days/{date}", plannerHandler.HandleGetDay)

	// Meal plans API
	mealPlansService := mealplans.NewService(mealplans.Deps{
		Templates:   s.storage.GetTemplatesStorage(),
		Items:       s.storage.GetDayItemsStorage(),
		Assignments: s.storage.GetAssignmentsStorage(),
		Catalog:     recipeCatalog,
		Planner:     plannerService,
		Targets:     targets,
		Gate:        gate,
		Logger:      s.logger.Named("mealplans"),
		Metrics:     s.metrics,
	})
	mealPlansHandler := mealplans.NewHandler(mealPlansService, s.logger.Named("mealplans")).
		WithLocation(s.config.Timezone)
	s.mux.HandleFunc("GET /v1/meal-plans", mealPlansHandler.HandleList)
	s.mux.HandleFunc("GET /v1/meal-plans/assignment", mealPlansHandler.HandleGetAssignment)
	s.mux.HandleFunc("DELETE /v1/meal-plans/assignment", mealPlansHandler.HandleClearAssignment)
	s.mux.HandleFunc("GET /v1/meal-plans/{id}", mealPlansHandler.HandleGet)
	s.mux.HandleFunc("POST /v1/meal-plans/assign", mealPlansHandler.HandleAssign)

	// Shopping lists API
	blobStore, blobMode, err := blob.NewBlobStore(ctx, s.config.Blob.EffectiveExportsMode(), s.config.Blob, s.logger)
	if err != nil {
		return fmt.Errorf("failed to init export storage: %w", err)
	}
	s.logger.Info("export storage ready", zap.String("mode", blobMode))

	shoppingService := shopping.NewService(shopping.Deps{
		Lists:   s.storage.GetShoppingListsStorage(),
		Catalog: recipeCatalog,
		Blobs:   blobStore,
		Logger:  s.logger.Named("shopping"),
		Metrics: s.metrics,
	})
	shoppingHandler := shopping.NewHandler(shoppingService, s.logger.Named("shopping"))
	s.mux.HandleFunc("POST /v1/shopping-lists/aggregate", shoppingHandler.HandleAggregate)
	s.mux.HandleFunc("POST /v1/shopping-lists", shoppingHandler.HandleCreate)
	s.mux.HandleFunc("GET /v1/shopping-lists", shoppingHandler.HandleList)
	s.mux.HandleFunc("GET /v1/shopping-lists/{id}", shoppingHandler.HandleGet)
	s.mux.HandleFunc("DELETE /v1/shopping-lists/{id}", shoppingHandler.HandleDelete)
	s.mux.HandleFunc("POST /v1/shopping-lists/{id}/items", shoppingHandler.HandleAddItem)
	s.mux.HandleFunc("DELETE /v1/shopping-lists/{id}/items/{item_id}", shoppingHandler.HandleDeleteItem)
	s.mux.HandleFunc("POST /v1/shopping-lists/{id}/recipes", shoppingHandler.HandleAttachRecipe)
	s.mux.HandleFunc("DELETE /v1/shopping-lists/{id}/recipes/{recipe_id}", shoppingHandler.HandleDetachRecipe)
	s.mux.HandleFunc("GET /v1/shopping-lists/{id}/merged", shoppingHandler.HandleMerged)
	s.mux.HandleFunc("POST /v1/shopping-lists/{id}/export", shoppingHandler.HandleExport)
	if blobMode == config.BlobModeLocal {
		s.mux.HandleFunc("GET "+blob.ExportsURLPrefix+"/{key...}", shoppingHandler.HandleDownload)
	}

	return nil
}

// Handler builds the middleware chain (outermost first):
// CORS → Rate Limit → Access Log → Auth → Metrics → Router.
// Metrics wraps the mux directly so the matched pattern is visible to it.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.metrics.Middleware(s.mux)
	if s.authMiddleware != nil && s.config.AuthMode != config.AuthModeNone {
		if s.config.AuthRequired {
			handler = s.authMiddleware.RequireAuth(handler)
		} else {
			handler = s.authMiddleware.OptionalAuth(handler)
		}
	}
	handler = AccessLogMiddleware(s.logger.Named("http"), handler)
	handler = RateLimitMiddleware(s.config, s.logger.Named("ratelimit"), s.metrics, handler)
	handler = CORSMiddleware(s.config, handler)
	return handler
}

// handleHealthz возвращает статус сервера
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// Start запускает HTTP сервер и блокируется до Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("server listening",
		zap.String("addr", "http://localhost"+addr),
		zap.String("health", "http://localhost"+addr+"/healthz"),
		zap.String("auth_mode", s.config.AuthMode),
		zap.Bool("metrics", s.metrics != nil))

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown дожидается завершения активных запросов.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Close закрывает storage и освобождает ресурсы
func (s *Server) Close() error {
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if s.storage != nil {
		errs = append(errs, s.storage.Close())
	}
	return errors.Join(errs...)
}
