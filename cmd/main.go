package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/joho/godotenv/autoload"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	"github.com/mrecabarren/trivia-server/internal/auth"
	"github.com/mrecabarren/trivia-server/internal/config"
	"github.com/mrecabarren/trivia-server/internal/hub"
	"github.com/mrecabarren/trivia-server/internal/middleware"
	"github.com/mrecabarren/trivia-server/internal/orchestrator"
	"github.com/mrecabarren/trivia-server/internal/router"
	"github.com/mrecabarren/trivia-server/internal/store"
	"github.com/mrecabarren/trivia-server/pkg/logger"
	"github.com/mrecabarren/trivia-server/pkg/response"
)

// @version 1.0
// @termsOfService http://swagger.io/terms/
// @contact.name API Support
// @contact.url http://www.swagger.io/support
// @contact.email support@swagger.io
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
func main() {
	logger.InitLogger()

	cfg, err := config.InitConfig()
	if err != nil {
		zap.L().Fatal("Error initializing config", zap.Error(err))
		return
	}

	s, err := store.Open(cfg.DBPath)
	if err != nil {
		zap.L().Fatal("Error opening record store", zap.Error(err))
		return
	}
	defer s.Close()

	rooms := hub.NewRegistry()
	orch := orchestrator.New(s, rooms, cfg, nil)
	verifier := auth.BearerVerifier{}

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "https://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Requested-With", "Upgrade", "Connection", "Sec-WebSocket-Key", "Sec-WebSocket-Version", "Sec-WebSocket-Protocol"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.ZapLoggerMiddleware(zap.L()))
	r.Use(chiMiddleware.StripSlashes)

	setupRouter(r, s, rooms, orch, cfg, verifier)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	go func() {
		zap.L().Info("Starting server on http://localhost:" + cfg.Port)
		zap.L().Info("Environment: " + string(cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("Failed to start server", zap.Error(err))
		}
	}()

	intr := make(chan os.Signal, 1)
	signal.Notify(intr, os.Interrupt)
	<-intr
	zap.L().Info("Caught interrupt, shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Error("Error during shutdown", zap.Error(err))
	}
}

// setupRouter sets up the router
func setupRouter(r chi.Router, s *store.Store, rooms *hub.Registry, orch *orchestrator.Orchestrator, cfg *config.EnvConfig, verifier auth.Verifier) {
	r.Route("/api", func(r chi.Router) {
		router.GameRouter(r, s, rooms, orch, cfg, verifier)
	})

	if config.Env().AppEnv == config.AppEnvDev {
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Not found handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.RespondWithError(w, http.StatusNotFound, "Not Found", "NOT_FOUND")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.RespondWithError(w, http.StatusMethodNotAllowed, "Method Not Allowed", "METHOD_NOT_ALLOWED")
	})

	zap.L().Info("Router setup complete")
}
