package routes

import (
	"net/http"

	_ "github.com/Dosada05/arena-escrow/docs"
	"github.com/Dosada05/arena-escrow/handlers"
	"github.com/Dosada05/arena-escrow/middleware"
	"github.com/Dosada05/arena-escrow/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	JWTSecret      string
	AllowedOrigins []string
}

func SetupRoutes(
	router chi.Router,
	opts Options,
	matchHandler *handlers.MatchHandler,
	reviewHandler *handlers.ReviewHandler,
	accountHandler *handlers.AccountHandler,
	adminHandler *handlers.AdminHandler,
	dashboardHandler *handlers.DashboardHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(opts.JWTSecret)

	router.Get("/healthz", handlers.Health)
	router.Get("/swagger/*", httpSwagger.WrapHandler)

	router.Route("/ws", func(r chi.Router) {
		r.Get("/lobby", webSocketHandler.ServeLobby)
		r.Get("/matches/{matchID}", webSocketHandler.ServeMatch)
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/", matchHandler.ListOpenMatches)
		r.Get("/{matchID}", matchHandler.GetMatch)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/", matchHandler.CreateMatch)
			r.Post("/{matchID}/join", matchHandler.JoinSlot)
			r.Post("/{matchID}/proof", matchHandler.SubmitProof)
			r.Post("/{matchID}/proof/upload", matchHandler.UploadProof)
			r.Post("/{matchID}/cancel", matchHandler.CancelMatch)
		})
	})

	router.Route("/me", func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/matches", matchHandler.ListMyMatches)
		r.Get("/account", accountHandler.MyAccount)
		r.Get("/ledger", accountHandler.MyLedger)
	})

	router.Route("/review", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(middleware.RequireRole(models.RoleArbiter, models.RoleAdmin))
		r.Get("/matches", reviewHandler.ListQueue)
		r.Post("/matches/{matchID}/approve", reviewHandler.ApprovePayout)
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(middleware.RequireRole(models.RoleAdmin))
		r.Post("/accounts", adminHandler.OpenAccount)
		r.Post("/accounts/{userID}/deposit", adminHandler.Deposit)
		r.Post("/accounts/{userID}/withdraw", adminHandler.Withdraw)
		r.Post("/matches/cancel-open", adminHandler.CancelOpenMatches)
		r.Get("/stats", dashboardHandler.Stats)
	})
}
