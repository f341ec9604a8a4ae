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

// MarketplaceHandler serves event browsing and manual event creation.
type MarketplaceHandler struct {
	events       ports.EventRepository
	bids         ports.BidRepository
	scheduler    ports.LockScheduler
	errorHandler *apperrors.ErrorHandler
	logger       *zap.Logger
}

// NewMarketplaceHandler creates a marketplace handler.
func NewMarketplaceHandler(events ports.EventRepository, bids ports.BidRepository, scheduler ports.LockScheduler, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *MarketplaceHandler {
	return &MarketplaceHandler{
		events:       events,
		bids:         bids,
		scheduler:    scheduler,
		errorHandler: errorHandler,
		logger:       logger.Named("marketplace"),
	}
}

// List pages the events of one calendar date, defaulting to today.
func (h *MarketplaceHandler) List(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError("date must be YYYY-MM-DD"))
		return
	}
	limit, token := pageParams(r)

	page, err := h.events.ListByDate(r.Context(), date, limit, token)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	resp := eventPageResponse{NextToken: page.NextToken, Events: make([]eventResponse, 0, len(page.Events))}
	for _, e := range page.Events {
		resp.Events = append(resp.Events, toEventResponse(e))
	}
	common.RespondJSON(w, http.StatusOK, resp)
}

// Get returns one event. While the market is open the per-side amounts are
// the live open interest summed from bids; after locking they are the
// matched totals stored on the event.
func (h *MarketplaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.GetByID(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	resp := toEventResponse(event)
	if event.Status == entities.EventOpen {
		openBids, err := h.bids.ListByEvent(r.Context(), event.ID)
		if err != nil {
			h.errorHandler.Handle(w, r, err)
			return
		}
		resp.HomeAmount, resp.AwayAmount = 0, 0
		for _, b := range openBids {
			if b.Side == entities.SideHome {
				resp.HomeAmount += b.Amount
			} else {
				resp.AwayAmount += b.Amount
			}
		}
	}
	common.RespondJSON(w, http.StatusOK, resp)
}

type createEventRequest struct {
	Kind       string `json:"kind" validate:"required,oneof=nfl cfb"`
	HomeTeam   string `json:"homeTeam" validate:"required"`
	AwayTeam   string `json:"awayTeam" validate:"required"`
	HomeAbbrev string `json:"homeAbbrev" validate:"omitempty,max=6"`
	AwayAbbrev string `json:"awayAbbrev" validate:"omitempty,max=6"`
	Spread     string `json:"spread"`
	StartTime  string `json:"startTime" validate:"required"`
}

// Create adds a manual event to the marketplace and schedules its lock
// trigger. Manual events have no feed id, so the resolution job leaves them
// alone until a score source exists.
func (h *MarketplaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.IdentityFromContext(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if err := auth.Authorize(identity, auth.ActionCreateEvent, identity.Subject); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	var req createEventRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}
	start, err := utils.ParseRFC3339(req.StartTime)
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError("startTime must be RFC3339"))
		return
	}
	now := time.Now().UTC()
	if !start.After(now) {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError("startTime must be in the future"))
		return
	}

	event := &entities.MarketplaceEvent{
		ID:         uuid.New().String(),
		Kind:       req.Kind,
		HomeTeam:   req.HomeTeam,
		AwayTeam:   req.AwayTeam,
		HomeAbbrev: req.HomeAbbrev,
		AwayAbbrev: req.AwayAbbrev,
		Spread:     req.Spread,
		StartTime:  start.UTC(),
		Status:     entities.EventOpen,
		CreatedAt:  now,
	}
	if err := h.events.Create(r.Context(), event); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if _, err := h.scheduler.ScheduleLock(r.Context(), event.ID, event.StartTime); err != nil {
		// The event exists; the daily sweep locks it if no trigger fires.
		h.logger.Warn("lock trigger not scheduled",
			zap.String("event_id", event.ID), zap.Error(err))
	}
	common.RespondJSON(w, http.StatusCreated, toEventResponse(event))
}
