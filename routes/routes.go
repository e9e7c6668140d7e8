package routes

import (
	"github.com/campushq/event-registration/handlers"
	"github.com/campushq/event-registration/middleware"
	"github.com/campushq/event-registration/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func SetupRoutes(
	router *chi.Mux,
	auth *middleware.Authenticator,
	authHandler *handlers.AuthHandler,
	eventHandler *handlers.EventHandler,
	registrationHandler *handlers.RegistrationHandler,
	dashboardHandler *handlers.DashboardHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Post("/users/signup", authHandler.Signup)
	router.Post("/users/signin", authHandler.Signin)

	router.Route("/events", func(r chi.Router) {
		// Public browsing routes.
		r.Get("/", eventHandler.List)
		r.Get("/{eventID}", eventHandler.Get)

		// Participant routes.
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Post("/{eventID}/registrations", registrationHandler.Register)
		})

		// Coordinator/admin routes.
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(middleware.Authorize(models.RoleCoordinator, models.RoleAdmin))

			r.Post("/", eventHandler.Create)
			r.Put("/{eventID}", eventHandler.Update)
			r.Patch("/{eventID}/status", eventHandler.UpdateStatus)
			r.Delete("/{eventID}", eventHandler.Delete)
			r.Post("/{eventID}/image", eventHandler.UploadImage)
			r.Get("/{eventID}/registrations", registrationHandler.ListForEvent)
		})
	})

	router.Route("/registrations", func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Get("/mine", registrationHandler.ListMine)
		r.Post("/{registrationID}/cancel", registrationHandler.Cancel)
		r.Post("/{registrationID}/proof", registrationHandler.AttachProof)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authorize(models.RoleCoordinator, models.RoleAdmin))
			r.Post("/{registrationID}/approve", registrationHandler.Approve)
			r.Post("/{registrationID}/reject", registrationHandler.Reject)
		})
	})

	router.Group(func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Use(middleware.Authorize(models.RoleCoordinator, models.RoleAdmin))
		r.Get("/dashboard", dashboardHandler.Summaries)
	})

	router.Get("/ws/events/{eventID}", webSocketHandler.ServeWs)
}
