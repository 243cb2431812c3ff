package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/solodesk/auth"
	"github.com/diewo77/solodesk/internal/config"
	"github.com/diewo77/solodesk/internal/db"
	"github.com/diewo77/solodesk/internal/mailer"
	"github.com/diewo77/solodesk/internal/models"
	"github.com/diewo77/solodesk/internal/scheduler"
	"github.com/diewo77/solodesk/internal/services"
	"github.com/diewo77/solodesk/internal/storage"
	"github.com/joho/godotenv"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()
	if !cfg.App.Dev && os.Getenv("JWT_SECRET") == "" {
		log.Fatalf("JWT_SECRET must be set outside dev mode")
	}

	dbConn, err := db.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if *migrateOnlyFlag {
		if err := db.Prepare(dbConn, cfg.Database, true); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations completed successfully")
		return
	}
	if err := db.Prepare(dbConn, cfg.Database, cfg.App.Migrations); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	// Reject tokens whose user has been removed
	tokens.SetUserVerifier(func(ctx context.Context, uid uint) bool {
		var count int64
		dbConn.WithContext(ctx).Model(&models.User{}).Where("id = ?", uid).Count(&count)
		return count > 0
	})

	store, err := storage.New(context.Background(), cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialise file storage: %v", err)
	}

	notifications := services.NewNotificationService(dbConn)
	app := NewApp(Deps{
		DB:            dbConn,
		Tokens:        tokens,
		Storage:       store,
		Mailer:        mailer.New(cfg.Mail),
		Notifications: notifications,
		MaxUpload:     cfg.Storage.MaxUpload,
		UploadDir:     localUploadDir(cfg.Storage),
	})

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(notifications, cfg.Scheduler)
		sched.Start(context.Background())
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      withRecover(withLogging(app)),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s (dev=%v, db=%s, storage=%s)",
			cfg.Server.Port, cfg.App.Dev, cfg.Database.Driver, cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received")

	if sched != nil {
		sched.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	log.Println("Server stopped gracefully")
}

// localUploadDir is the directory served under /uploads/, empty when files live in S3.
func localUploadDir(cfg config.StorageConfig) string {
	if cfg.Driver == "" || cfg.Driver == "local" {
		return cfg.Dir
	}
	return ""
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging adds request logging middleware.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
