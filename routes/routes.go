package routes

import (
	"github.com/Baku-1/kingdom-tournament-sub000/handlers"
	"github.com/Baku-1/kingdom-tournament-sub000/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	tournamentHandler *handlers.TournamentHandler,
	registrationHandler *handlers.RegistrationHandler,
	rewardHandler *handlers.RewardHandler,
	entryFeeHandler *handlers.EntryFeeHandler,
	walletHandler *handlers.WalletHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate([]byte(jwtSecret))

	router.Post("/auth/signup", authHandler.SignUpHandler)
	router.Post("/auth/signin", authHandler.SignInHandler)

	router.Route("/tournaments", func(r chi.Router) {
		// Public read surface
		r.Get("/", tournamentHandler.ListHandler)
		r.Get("/{tournamentID}", tournamentHandler.GetByIDHandler)
		r.Get("/{tournamentID}/positions/{position}", tournamentHandler.GetPositionHandler)
		r.Get("/{tournamentID}/participants", tournamentHandler.ListParticipantsHandler)
		r.Get("/{tournamentID}/participants/{userID}", tournamentHandler.RegistrationStatusHandler)

		// Fee distribution is permissionless by design
		r.Post("/{tournamentID}/fees/distribute", entryFeeHandler.DistributeHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/", tournamentHandler.CreateHandler)
			r.Post("/{tournamentID}/cancel", tournamentHandler.CancelHandler)
			r.Put("/{tournamentID}/banner", tournamentHandler.UploadBannerHandler)

			r.Post("/{tournamentID}/register", registrationHandler.RegisterHandler)
			r.Post("/{tournamentID}/register-paid", registrationHandler.RegisterWithFeeHandler)

			r.Post("/{tournamentID}/winners", rewardHandler.DeclareWinnerHandler)
			r.Post("/{tournamentID}/winners/batch", rewardHandler.DeclareWinnersHandler)
			r.Post("/{tournamentID}/positions/{position}/claim", rewardHandler.ClaimRewardHandler)

			r.Post("/{tournamentID}/fees/refund", entryFeeHandler.RefundHandler)
		})
	})

	router.Route("/wallet", func(r chi.Router) {
		r.Use(authenticate)
		r.Post("/deposit", walletHandler.DepositHandler)
		r.Post("/approve", walletHandler.ApproveHandler)
		r.Get("/balances", walletHandler.BalancesHandler)
		r.Get("/allowances/{asset}", walletHandler.AllowanceHandler)
	})

	router.Get("/ws/tournaments", webSocketHandler.SubscribeLobbyHandler)
	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.SubscribeTournamentHandler)
}
