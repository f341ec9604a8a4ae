package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"sidebet-backend/application/ports"
	"sidebet-backend/domain/entities"
	"sidebet-backend/pkg/auth"
	"sidebet-backend/pkg/common"
	apperrors "sidebet-backend/pkg/errors"
	"sidebet-backend/pkg/utils"
)

// LeagueHandler serves league and membership operations.
type LeagueHandler struct {
	leagues      ports.LeagueRepository
	users        ports.UserRepository
	errorHandler *apperrors.ErrorHandler
	logger       *zap.Logger
}

// NewLeagueHandler creates a league handler.
func NewLeagueHandler(leagues ports.LeagueRepository, users ports.UserRepository, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *LeagueHandler {
	return &LeagueHandler{leagues: leagues, users: users, errorHandler: errorHandler, logger: logger.Named("leagues")}
}

type createLeagueRequest struct {
	Name string `json:"name" validate:"required,min=2,max=60"`
}

// Create starts a league with the caller as admin and first member.
func (h *LeagueHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.IdentityFromContext(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	var req createLeagueRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	user, err := h.users.GetByID(r.Context(), identity.Subject)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	now := time.Now().UTC()
	league := &entities.League{
		ID:          uuid.New().String(),
		Name:        req.Name,
		AdminUserID: identity.Subject,
		CreatedAt:   now,
	}
	admin := &entities.Membership{
		UserID:      identity.Subject,
		LeagueID:    league.ID,
		DisplayName: user.DisplayName,
		JoinedAt:    now,
	}
	if err := h.leagues.Create(r.Context(), identity, league, admin); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, toLeagueResponse(league))
}

// Get returns league metadata.
func (h *LeagueHandler) Get(w http.ResponseWriter, r *http.Request) {
	league, err := h.leagues.GetByID(r.Context(), chi.URLParam(r, "leagueID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, toLeagueResponse(league))
}

// Join adds the caller to a league.
func (h *LeagueHandler) Join(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.IdentityFromContext(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	leagueID := chi.URLParam(r, "leagueID")

	// The league must exist before a membership may point at it.
	if _, err := h.leagues.GetByID(r.Context(), leagueID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	user, err := h.users.GetByID(r.Context(), identity.Subject)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	membership := &entities.Membership{
		UserID:      identity.Subject,
		LeagueID:    leagueID,
		DisplayName: user.DisplayName,
		JoinedAt:    time.Now().UTC(),
	}
	if err := h.leagues.Join(r.Context(), identity, membership); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, toMembershipResponses([]*entities.Membership{membership})[0])
}

// Members lists a league's member display names.
func (h *LeagueHandler) Members(w http.ResponseWriter, r *http.Request) {
	members, err := h.leagues.ListMembers(r.Context(), chi.URLParam(r, "leagueID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, toMembershipResponses(members))
}

// MyLeagues lists the caller's memberships.
func (h *LeagueHandler) MyLeagues(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.IdentityFromContext(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	memberships, err := h.leagues.ListForUser(r.Context(), identity.Subject)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, toMembershipResponses(memberships))
}
