package handlers

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"sidebet-backend/application/ports"
	"sidebet-backend/pkg/auth"
	"sidebet-backend/pkg/common"
	apperrors "sidebet-backend/pkg/errors"
)

// OutcomeHandler serves settled outcomes and the season leaderboard.
type OutcomeHandler struct {
	outcomes     ports.OutcomeRepository
	errorHandler *apperrors.ErrorHandler
	logger       *zap.Logger
}

// NewOutcomeHandler creates an outcome handler.
func NewOutcomeHandler(outcomes ports.OutcomeRepository, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *OutcomeHandler {
	return &OutcomeHandler{outcomes: outcomes, errorHandler: errorHandler, logger: logger.Named("outcomes")}
}

// MyOutcomes pages the caller's settled outcomes.
func (h *OutcomeHandler) MyOutcomes(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.IdentityFromContext(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	limit, token := pageParams(r)

	page, err := h.outcomes.ListByUser(r.Context(), identity.Subject, limit, token)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	resp := outcomePageResponse{NextToken: page.NextToken, Outcomes: make([]outcomeResponse, 0, len(page.Outcomes))}
	for _, o := range page.Outcomes {
		resp.Outcomes = append(resp.Outcomes, outcomeResponse{
			BetID:     o.BetID,
			EventID:   o.EventID,
			Season:    o.Season,
			Score:     o.Score,
			CreatedAt: o.CreatedAt,
		})
	}
	common.RespondJSON(w, http.StatusOK, resp)
}

// Rankings returns the season leaderboard, defaulting to the current year.
func (h *OutcomeHandler) Rankings(w http.ResponseWriter, r *http.Request) {
	season := r.URL.Query().Get("season")
	if season == "" {
		season = strconv.Itoa(time.Now().UTC().Year())
	} else if _, err := strconv.Atoi(season); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError("season must be a year"))
		return
	}
	limit, _ := pageParams(r)

	entries, err := h.outcomes.GetRankings(r.Context(), season, limit)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	resp := make([]rankingResponse, 0, len(entries))
	for i, e := range entries {
		resp = append(resp, rankingResponse{Rank: i + 1, UserID: e.UserID, Score: e.Score})
	}
	common.RespondJSON(w, http.StatusOK, resp)
}
