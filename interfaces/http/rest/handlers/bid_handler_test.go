package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	dynamorepo "sidebet-backend/infrastructure/persistence/dynamodb"
	"sidebet-backend/domain/entities"
	"sidebet-backend/infrastructure/persistence/memory"
	"sidebet-backend/pkg/auth"
	apperrors "sidebet-backend/pkg/errors"
)

func newBidHandlerFixture(t *testing.T) (*BidHandler, *dynamorepo.EventRepository) {
	t.Helper()
	store := memory.NewStore()
	logger := zap.NewNop()
	events := dynamorepo.NewEventRepository(store, logger)
	bids := dynamorepo.NewBidRepository(store, logger)
	return NewBidHandler(bids, events, apperrors.NewErrorHandler(logger, true), logger), events
}

func authedRequest(t *testing.T, method, target, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	identity := auth.Identity{Subject: "u-1", Scopes: []string{"openid"}}
	return req.WithContext(auth.SetIdentity(req.Context(), identity))
}

func TestPlaceBid(t *testing.T) {
	handler, events := newBidHandlerFixture(t)
	start := time.Now().UTC().Add(48 * time.Hour)
	require.NoError(t, events.Create(context.Background(), &entities.MarketplaceEvent{
		ID: "evt-1", Kind: "nfl", StartTime: start,
		Status: entities.EventOpen, CreatedAt: time.Now().UTC(),
	}))

	rec := httptest.NewRecorder()
	handler.Place(rec, authedRequest(t, http.MethodPost, "/api/bids",
		`{"eventId":"evt-1","side":"HOME","amount":100}`))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			ID      string `json:"id"`
			EventID string `json:"eventId"`
			Side    string `json:"side"`
			Amount  int64  `json:"amount"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Data.ID)
	assert.Equal(t, "evt-1", resp.Data.EventID)
	assert.Equal(t, "HOME", resp.Data.Side)
	assert.Equal(t, int64(100), resp.Data.Amount)
}

func TestPlaceBidOnLockedEvent(t *testing.T) {
	handler, events := newBidHandlerFixture(t)
	require.NoError(t, events.Create(context.Background(), &entities.MarketplaceEvent{
		ID: "evt-1", Kind: "nfl", StartTime: time.Now().UTC(),
		Status: entities.EventLocked, CreatedAt: time.Now().UTC(),
	}))

	rec := httptest.NewRecorder()
	handler.Place(rec, authedRequest(t, http.MethodPost, "/api/bids",
		`{"eventId":"evt-1","side":"AWAY","amount":50}`))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPlaceBidValidation(t *testing.T) {
	handler, _ := newBidHandlerFixture(t)

	cases := map[string]string{
		"missing event":   `{"side":"HOME","amount":100}`,
		"bad side":        `{"eventId":"evt-1","side":"OVER","amount":100}`,
		"zero amount":     `{"eventId":"evt-1","side":"HOME","amount":0}`,
		"negative amount": `{"eventId":"evt-1","side":"HOME","amount":-5}`,
		"not json":        `{`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.Place(rec, authedRequest(t, http.MethodPost, "/api/bids", body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestPlaceBidUnauthenticated(t *testing.T) {
	handler, _ := newBidHandlerFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/bids",
		strings.NewReader(`{"eventId":"evt-1","side":"HOME","amount":100}`))
	handler.Place(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCancelBid(t *testing.T) {
	handler, events := newBidHandlerFixture(t)
	start := time.Now().UTC().Add(48 * time.Hour)
	require.NoError(t, events.Create(context.Background(), &entities.MarketplaceEvent{
		ID: "evt-1", Kind: "nfl", StartTime: start,
		Status: entities.EventOpen, CreatedAt: time.Now().UTC(),
	}))

	place := httptest.NewRecorder()
	handler.Place(place, authedRequest(t, http.MethodPost, "/api/bids",
		`{"eventId":"evt-1","side":"HOME","amount":100}`))
	require.Equal(t, http.StatusCreated, place.Code)

	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(place.Body.Bytes(), &resp))

	req := authedRequest(t, http.MethodDelete, "/api/bids/"+resp.Data.ID, "")
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("bidID", resp.Data.ID)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	cancel := httptest.NewRecorder()
	handler.Cancel(cancel, req)
	assert.Equal(t, http.StatusNoContent, cancel.Code)

	list := httptest.NewRecorder()
	handler.MyBids(list, authedRequest(t, http.MethodGet, "/api/users/me/bids", ""))
	require.Equal(t, http.StatusOK, list.Code)
	assert.NotContains(t, list.Body.String(), resp.Data.ID)
}
