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

// bidExpiryGrace keeps expired bid rows around long enough for the lock job
// before the table's TTL reaps them.
const bidExpiryGrace = 24 * time.Hour

// BidHandler serves bid placement and management.
type BidHandler struct {
	bids         ports.BidRepository
	events       ports.EventRepository
	errorHandler *apperrors.ErrorHandler
	logger       *zap.Logger
}

// NewBidHandler creates a bid handler.
func NewBidHandler(bids ports.BidRepository, events ports.EventRepository, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *BidHandler {
	return &BidHandler{bids: bids, events: events, errorHandler: errorHandler, logger: logger.Named("bids")}
}

type placeBidRequest struct {
	EventID string `json:"eventId" validate:"required"`
	Side    string `json:"side" validate:"required,oneof=HOME AWAY"`
	Amount  int64  `json:"amount" validate:"required,min=1,max=1000000"`
}

// Place creates a bid on an open event. The write is transactional with a
// check that the event is still open, so a bid racing the lock job loses
// cleanly.
func (h *BidHandler) Place(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.IdentityFromContext(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	var req placeBidRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	event, err := h.events.GetByID(r.Context(), req.EventID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if event.Status != entities.EventOpen {
		h.errorHandler.Handle(w, r, apperrors.NewConflictError("event is no longer accepting bids"))
		return
	}

	bid := &entities.Bid{
		ID:        uuid.New().String(),
		UserID:    identity.Subject,
		EventID:   event.ID,
		Side:      entities.Side(req.Side),
		Amount:    req.Amount,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.bids.Create(r.Context(), identity, bid, event.StartTime.Add(bidExpiryGrace)); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, toBidResponse(bid))
}

type updateBidRequest struct {
	Side   string `json:"side" validate:"required,oneof=HOME AWAY"`
	Amount int64  `json:"amount" validate:"required,min=1,max=1000000"`
}

// Update changes the side or amount of the caller's bid while the event is
// still open.
func (h *BidHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.IdentityFromContext(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	bidID := chi.URLParam(r, "bidID")

	bid, err := h.bids.GetByID(r.Context(), identity.Subject, bidID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	var req updateBidRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	event, err := h.events.GetByID(r.Context(), bid.EventID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	bid.Side = entities.Side(req.Side)
	bid.Amount = req.Amount
	if err := h.bids.Update(r.Context(), identity, bid, event.StartTime.Add(bidExpiryGrace)); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, toBidResponse(bid))
}

// Cancel withdraws the caller's bid.
func (h *BidHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.IdentityFromContext(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	bidID := chi.URLParam(r, "bidID")

	if _, err := h.bids.GetByID(r.Context(), identity.Subject, bidID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if err := h.bids.Delete(r.Context(), identity, identity.Subject, bidID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ByEvent lists the open bids on one event so callers can see the other
// side of the market before committing.
func (h *BidHandler) ByEvent(w http.ResponseWriter, r *http.Request) {
	bids, err := h.bids.ListByEvent(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	resp := make([]bidResponse, 0, len(bids))
	for _, b := range bids {
		resp = append(resp, toBidResponse(b))
	}
	common.RespondJSON(w, http.StatusOK, resp)
}

// MyBids pages the caller's open bids.
func (h *BidHandler) MyBids(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.IdentityFromContext(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	limit, token := pageParams(r)

	page, err := h.bids.ListByUser(r.Context(), identity.Subject, limit, token)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	resp := bidPageResponse{NextToken: page.NextToken, Bids: make([]bidResponse, 0, len(page.Bids))}
	for _, b := range page.Bids {
		resp.Bids = append(resp.Bids, toBidResponse(b))
	}
	common.RespondJSON(w, http.StatusOK, resp)
}
