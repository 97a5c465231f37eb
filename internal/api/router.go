package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/postboard-be/internal/api/handlers"
	"github.com/isdelr/postboard-be/internal/auth"
	"github.com/isdelr/postboard-be/internal/config"
	"github.com/isdelr/postboard-be/internal/services"
	"github.com/isdelr/postboard-be/internal/websocket"
)

// Services bundles the service layer the router dispatches to.
type Services struct {
	Users       services.UserServiceProvider
	Posts       services.PostServiceProvider
	Events      services.EventServiceProvider
	Maintenance services.MaintenanceServiceProvider
}

// NewRouter creates and configures a new Chi router.
func NewRouter(cfg *config.Config, issuer *auth.TokenIssuer, hub *websocket.Hub, svc Services) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(auth.Authenticate(issuer, svc.Users))

	// Initialize handlers
	userHandler := handlers.NewUserHandler(svc.Users, svc.Maintenance, issuer, cfg.IsProduction())
	postHandler := handlers.NewPostHandler(svc.Posts)
	eventHandler := handlers.NewEventHandler(svc.Events)
	healthHandler := handlers.NewHealthHandler(svc.Maintenance)
	wsHandler := handlers.NewWebSocketHandler(hub, cfg.AllowedOrigins)

	r.Get("/healthz", healthHandler.Check)

	r.Post("/signup", userHandler.Signup)
	r.Post("/signin", userHandler.Signin)
	if cfg.EnableClearRoute {
		r.Get("/clear", userHandler.Clear)
	}

	r.Route("/posts", func(r chi.Router) {
		r.Post("/", postHandler.Create)
		r.Route("/{post_id}", func(r chi.Router) {
			r.Get("/", postHandler.Get)
			r.Put("/", postHandler.Update)
			r.Delete("/", postHandler.Delete)
		})
	})

	r.Get("/events", eventHandler.GetRecent)
	r.Get("/ws/posts", wsHandler.Serve)

	return r
}
