package main

import (
	"log"
	"net/http"

	"github.com/diewo77/solodesk/auth"
	"github.com/diewo77/solodesk/httpx"
	"github.com/diewo77/solodesk/internal/analytics"
	"github.com/diewo77/solodesk/internal/handlers"
	"github.com/diewo77/solodesk/internal/mailer"
	"github.com/diewo77/solodesk/internal/services"
	"github.com/diewo77/solodesk/internal/storage"
	"gorm.io/gorm"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	DB            *gorm.DB
	Tokens        *auth.Tokens
	Storage       storage.Storage
	Mailer        mailer.Sender
	Notifications *services.NotificationService
	MaxUpload     int64
	// UploadDir is served under /uploads/ when set.
	UploadDir string
}

// App is the main application handler that sets up all routes.
type App struct {
	mux  *http.ServeMux
	deps Deps
}

// NewApp creates a new application with all routes configured.
func NewApp(deps Deps) *App {
	if deps.Notifications == nil {
		deps.Notifications = services.NewNotificationService(deps.DB)
	}
	if deps.Mailer == nil {
		deps.Mailer = mailer.LogSender{}
	}
	app := &App{mux: http.NewServeMux(), deps: deps}
	app.setupRoutes()
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	db := a.deps.DB
	notifications := a.deps.Notifications

	projectSvc := services.NewProjectService(db)
	taskSvc := services.NewTaskService(db)

	authH := handlers.NewAuthHandler(db, a.deps.Tokens, notifications)
	clientH := handlers.NewClientHandler(services.NewClientService(db, notifications))
	projectH := handlers.NewProjectHandler(projectSvc, taskSvc)
	taskH := handlers.NewTaskHandler(taskSvc)
	invoiceH := handlers.NewInvoiceHandler(services.NewInvoiceService(db))
	receiptH := handlers.NewReceiptHandler(services.NewReceiptService(db, a.deps.Mailer))
	analyticsH := handlers.NewAnalyticsHandler(analytics.New(db), notifications)
	notificationH := handlers.NewNotificationHandler(notifications)

	// Public routes
	a.mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	a.mux.HandleFunc("GET /healthz", a.healthz)
	a.mux.HandleFunc("POST /api/auth/register", authH.Register)
	a.mux.HandleFunc("POST /api/auth/login", authH.Login)
	if a.deps.UploadDir != "" {
		a.mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(a.deps.UploadDir))))
	}

	// Authenticated routes
	a.handle("GET /api/auth/me", authH.Me)

	a.handle("GET /api/clients", clientH.List)
	a.handle("POST /api/clients", clientH.Create)
	a.handle("GET /api/clients/{id}", clientH.Get)
	a.handle("PUT /api/clients/{id}", clientH.Update)
	a.handle("DELETE /api/clients/{id}", clientH.Delete)
	a.handle("POST /api/clients/{id}/notes", clientH.AddNote)

	a.handle("GET /api/projects", projectH.List)
	a.handle("POST /api/projects", projectH.Create)
	a.handle("GET /api/projects/{id}", projectH.Get)
	a.handle("PUT /api/projects/{id}", projectH.Update)
	a.handle("DELETE /api/projects/{id}", projectH.Archive)
	a.handle("POST /api/projects/{id}/notes", projectH.AddNote)
	a.handle("GET /api/projects/{id}/tasks", projectH.ListTasks)
	a.handle("POST /api/projects/{id}/tasks", projectH.CreateTask)

	a.handle("GET /api/tasks/{id}", taskH.Get)
	a.handle("PUT /api/tasks/{id}", taskH.Update)
	a.handle("DELETE /api/tasks/{id}", taskH.Archive)
	a.handle("PATCH /api/tasks/{id}/toggle", taskH.Toggle)

	a.handle("GET /api/invoices", invoiceH.List)
	a.handle("POST /api/invoices", invoiceH.Create)
	a.handle("GET /api/invoices/{id}", invoiceH.Get)
	a.handle("PUT /api/invoices/{id}", invoiceH.Update)
	a.handle("DELETE /api/invoices/{id}", invoiceH.Delete)

	a.handle("GET /api/receipts", receiptH.List)
	a.handle("POST /api/receipts", receiptH.Create)
	a.handle("GET /api/receipts/{id}", receiptH.Get)
	a.handle("POST /api/receipts/{id}/send", receiptH.Send)

	a.handle("GET /api/analytics", analyticsH.Overview)
	a.handle("GET /api/analytics/revenue", analyticsH.Revenue)
	a.handle("GET /api/analytics/clients", analyticsH.Clients)
	a.handle("GET /api/analytics/projects", analyticsH.Projects)
	a.handle("GET /api/analytics/time", analyticsH.Time)
	a.handle("GET /api/analytics/report", analyticsH.Report)
	a.handle("GET /api/dashboard", analyticsH.Dashboard)

	a.handle("GET /api/notifications", notificationH.List)
	a.handle("GET /api/notifications/unread-count", notificationH.UnreadCount)
	a.handle("POST /api/notifications/mark-as-read", notificationH.MarkRead)
	a.handle("POST /api/notifications/mark-all-as-read", notificationH.MarkAllRead)

	if a.deps.Storage != nil {
		fileH := handlers.NewFileHandler(a.deps.Storage, a.deps.MaxUpload)
		a.handle("POST /api/files/upload", fileH.Upload)
		a.handle("DELETE /api/files/{filename}", fileH.Delete)
	}
}

// handle registers a route behind bearer token authentication.
func (a *App) handle(pattern string, h http.HandlerFunc) {
	a.mux.Handle(pattern, a.deps.Tokens.RequireAuth(h))
}

// healthz performs a lightweight DB check.
func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	if err := a.deps.DB.WithContext(r.Context()).Exec("SELECT 1").Error; err != nil {
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				httpx.JSONError(w, http.StatusInternalServerError, "Internal server error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
