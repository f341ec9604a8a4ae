// Package rest assembles the chi router for the API.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"sidebet-backend/interfaces/http/rest/handlers"
	"sidebet-backend/interfaces/http/rest/middleware"
	"sidebet-backend/pkg/auth"
	"sidebet-backend/pkg/common"
	apperrors "sidebet-backend/pkg/errors"
)

// Handlers groups the API handlers the router mounts.
type Handlers struct {
	Users       *handlers.UserHandler
	Leagues     *handlers.LeagueHandler
	Marketplace *handlers.MarketplaceHandler
	Bids        *handlers.BidHandler
	Bets        *handlers.BetHandler
	Outcomes    *handlers.OutcomeHandler
}

// Options configures the router.
type Options struct {
	AllowedOrigin string
	Authenticator *middleware.Authenticator
	// RateLimiter throttles per authenticated user; IPRateLimiter throttles
	// per remote address before authentication runs.
	RateLimiter   auth.RateLimiter
	IPRateLimiter auth.RateLimiter
	ErrorHandler  *apperrors.ErrorHandler
	Logger        *zap.Logger
}

// NewRouter builds the full route tree. Everything under /api requires a
// bearer token; /health does not.
func NewRouter(h Handlers, opts Options) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(opts.Logger))
	r.Use(opts.ErrorHandler.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{opts.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		common.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.IPRateLimiter, opts.Logger))
		r.Use(opts.Authenticator.Middleware)
		r.Use(middleware.RateLimit(opts.RateLimiter, opts.Logger))

		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.Users.Create)
			r.Get("/me", h.Users.Me)
			r.Put("/me/display-name", h.Users.UpdateDisplayName)
			r.Get("/me/leagues", h.Leagues.MyLeagues)
			r.Get("/me/bids", h.Bids.MyBids)
			r.Get("/me/bets", h.Bets.MyBets)
			r.Get("/me/bets/{betID}", h.Bets.MyBet)
			r.Get("/me/outcomes", h.Outcomes.MyOutcomes)
			r.Get("/{userID}", h.Users.Get)
		})

		r.Route("/leagues", func(r chi.Router) {
			r.Post("/", h.Leagues.Create)
			r.Get("/{leagueID}", h.Leagues.Get)
			r.Post("/{leagueID}/join", h.Leagues.Join)
			r.Get("/{leagueID}/members", h.Leagues.Members)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.Marketplace.List)
			r.Post("/", h.Marketplace.Create)
			r.Get("/{eventID}", h.Marketplace.Get)
			r.Get("/{eventID}/bids", h.Bids.ByEvent)
			r.Get("/{eventID}/bets", h.Bets.ByEvent)
		})

		r.Route("/bids", func(r chi.Router) {
			r.Post("/", h.Bids.Place)
			r.Put("/{bidID}", h.Bids.Update)
			r.Delete("/{bidID}", h.Bids.Cancel)
		})

		r.Get("/bets", h.Bets.ByDate)

		r.Get("/rankings", h.Outcomes.Rankings)
	})

	return r
}
