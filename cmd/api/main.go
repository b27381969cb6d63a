//	@title			Inmuebles API
//	@version		1.0
//	@description	Backend for property listings with private media storage and signed image delivery.
//
//	@host		localhost:8080
//	@BasePath	/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: **Bearer {token}**

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/inmuebles/service/internal/config"
	"github.com/inmuebles/service/internal/db"
	"github.com/inmuebles/service/internal/listing"
	"github.com/inmuebles/service/internal/media"
	appMiddleware "github.com/inmuebles/service/internal/middleware"
	"github.com/inmuebles/service/internal/owner"
	"github.com/inmuebles/service/internal/storage"

	_ "github.com/inmuebles/service/docs/swagger"
)

func main() {
	cfg := config.Load()

	pool, err := db.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	store, err := storage.NewMinioStore(
		cfg.StorageEndpoint,
		cfg.StorageAccessKey,
		cfg.StorageSecretKey,
		cfg.StorageBucket,
		cfg.StorageRegion,
		cfg.StorageUseSSL,
	)
	if err != nil {
		log.Fatalf("object storage init failed: %v", err)
	}

	// Wire dependencies: repository → service → handler
	mediaRepo := media.NewRepository(pool)
	mediaSvc := media.NewService(mediaRepo, store, media.NewKeyDeriver(), cfg.SignTTL, cfg.SignTTLMax)
	adminHandler := media.NewAdminHandler(mediaSvc)

	listingRepo := listing.NewRepository(pool)
	listingSvc := listing.NewService(listingRepo, mediaSvc)
	listingHandler := listing.NewHandler(listingSvc, mediaSvc)

	ownerRepo := owner.NewRepository(pool)
	ownerSvc := owner.NewService(ownerRepo, listingSvc)
	ownerHandler := owner.NewHandler(ownerSvc)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Swagger UI — available at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(appMiddleware.RequireAuth(cfg.JWTSecret))

		r.Mount("/houses-for-sale", listingHandler.SaleRoutes())
		r.Mount("/houses-for-rent", listingHandler.RentRoutes())
		r.Mount("/owners", ownerHandler.Routes())

		r.Route("/admin", func(r chi.Router) {
			r.Use(appMiddleware.RequireRole("admin"))
			r.Post("/storage/sweep", adminHandler.SweepOrphans)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("server listening on :%s (env=%s)", cfg.Port, cfg.AppEnv)
		log.Printf("swagger UI at http://localhost:%s/swagger/", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	log.Println("server stopped")
}
