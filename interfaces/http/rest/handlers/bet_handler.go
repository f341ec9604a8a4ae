package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"sidebet-backend/application/ports"
	"sidebet-backend/pkg/auth"
	"sidebet-backend/pkg/common"
	apperrors "sidebet-backend/pkg/errors"
)

// BetHandler serves read access to matched bets. Bets are only ever created
// by the lock job, so the surface is GET-only.
type BetHandler struct {
	bets         ports.BetRepository
	errorHandler *apperrors.ErrorHandler
	logger       *zap.Logger
}

// NewBetHandler creates a bet handler.
func NewBetHandler(bets ports.BetRepository, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *BetHandler {
	return &BetHandler{bets: bets, errorHandler: errorHandler, logger: logger.Named("bets")}
}

// MyBets pages the caller's bets.
func (h *BetHandler) MyBets(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.IdentityFromContext(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	limit, token := pageParams(r)

	page, err := h.bets.ListByUser(r.Context(), identity.Subject, limit, token)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	resp := betPageResponse{NextToken: page.NextToken, Bets: make([]betResponse, 0, len(page.Bets))}
	for _, b := range page.Bets {
		resp.Bets = append(resp.Bets, toBetResponse(b))
	}
	common.RespondJSON(w, http.StatusOK, resp)
}

// ByEvent lists every bet matched on one event.
func (h *BetHandler) ByEvent(w http.ResponseWriter, r *http.Request) {
	bets, err := h.bets.ListByEvent(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	resp := make([]betResponse, 0, len(bets))
	for _, b := range bets {
		resp = append(resp, toBetResponse(b))
	}
	common.RespondJSON(w, http.StatusOK, resp)
}

// ByDate pages the bets whose event falls on one calendar date, defaulting
// to today.
func (h *BetHandler) ByDate(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError("date must be YYYY-MM-DD"))
		return
	}
	limit, token := pageParams(r)

	page, err := h.bets.ListByDate(r.Context(), date, limit, token)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	resp := betPageResponse{NextToken: page.NextToken, Bets: make([]betResponse, 0, len(page.Bets))}
	for _, b := range page.Bets {
		resp.Bets = append(resp.Bets, toBetResponse(b))
	}
	common.RespondJSON(w, http.StatusOK, resp)
}

// MyBet returns one of the caller's bets.
func (h *BetHandler) MyBet(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.IdentityFromContext(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	bet, err := h.bets.GetByID(r.Context(), identity.Subject, chi.URLParam(r, "betID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, toBetResponse(bet))
}
