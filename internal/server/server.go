package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/userhub-app/apiserver/config"
	"github.com/userhub-app/apiserver/internal/db"
	"github.com/userhub-app/apiserver/internal/events"
	"github.com/userhub-app/apiserver/internal/handlers"
	"github.com/userhub-app/apiserver/internal/password"
	"github.com/userhub-app/apiserver/internal/services"
	"github.com/userhub-app/apiserver/internal/storage"
	"github.com/userhub-app/apiserver/internal/store"
	"github.com/userhub-app/apiserver/internal/token"
	"github.com/userhub-app/apiserver/internal/web"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	tracker    *db.HealthTracker
	publisher  *events.Publisher
	cancel     context.CancelFunc
}

// New constructs a Server: connection pool, directory router with fallback,
// credential and token services, event publisher, avatar storage, and the
// HTTP surface (JSON API plus HTML views).
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	pool, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}

	tracker := db.NewHealthTracker(pool, logger)
	if !tracker.Available() {
		logger.Warn("database unreachable at startup, serving from in-memory fallback store")
	}

	directory := store.NewRouter(
		store.NewPostgresDirectory(pool),
		store.NewMemoryDirectory(),
		tracker,
	)

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		logger.Warn("JWT_SECRET is not set, using the insecure development secret")
		jwtSecret = token.DevSecret
	}
	tokens := token.NewService(jwtSecret)

	publisher, err := newEventPublisher(ctx, cfg, logger)
	if err != nil {
		_ = pool.Close()
		return nil, err
	}

	creds := services.NewCredentialService(directory, password.NewHasher(), publisher, logger)

	avatars, err := newAvatarStore(ctx, cfg, logger)
	if err != nil {
		_ = publisher.Close()
		_ = pool.Close()
		return nil, err
	}

	authMiddleware := handlers.RequireAuth(tokens)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		handlers.AuthRouter(r, creds, tokens)
		r.Route("/users", func(r chi.Router) {
			handlers.UserRouter(r, creds, avatars, authMiddleware)
		})
	})
	web.Router(router, creds, tokens)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         pool,
		tracker:    tracker,
		publisher:  publisher,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the connectivity tracker and the HTTP server.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.tracker.Run(ctx)
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}

func newEventPublisher(ctx context.Context, cfg config.Config, logger *slog.Logger) (*events.Publisher, error) {
	switch cfg.Events.Backend {
	case "rabbitmq":
		backend, err := events.NewRabbitMQBackend(cfg.Events.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("init rabbitmq events backend: %w", err)
		}
		return events.NewPublisher(backend, logger), nil
	case "pubsub":
		backend, err := events.NewPubSubBackend(ctx, cfg.Events.PubSub)
		if err != nil {
			return nil, fmt.Errorf("init pubsub events backend: %w", err)
		}
		return events.NewPublisher(backend, logger), nil
	case "", "none":
		logger.Info("account event publishing disabled")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Events.Backend)
	}
}

func newAvatarStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*storage.AvatarStore, error) {
	var backend storage.ObjectStorage
	switch cfg.Storage.Backend {
	case "minio":
		minioBackend, err := storage.NewMinioBackend(cfg.Storage.Minio)
		if err != nil {
			return nil, fmt.Errorf("init minio storage backend: %w", err)
		}
		backend = minioBackend
	case "gcs":
		gcsBackend, err := storage.NewGCSBackend(ctx, cfg.Storage.GCS)
		if err != nil {
			return nil, fmt.Errorf("init gcs storage backend: %w", err)
		}
		backend = gcsBackend
	case "", "none":
		logger.Info("avatar storage disabled")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	avatars := storage.NewAvatarStore(backend)
	if err := avatars.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure avatar bucket: %w", err)
	}
	return avatars, nil
}
