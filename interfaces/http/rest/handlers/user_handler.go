package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"sidebet-backend/application/ports"
	"sidebet-backend/domain/entities"
	"sidebet-backend/pkg/auth"
	"sidebet-backend/pkg/common"
	apperrors "sidebet-backend/pkg/errors"
	"sidebet-backend/pkg/utils"
)

// UserHandler serves profile operations.
type UserHandler struct {
	users        ports.UserRepository
	errorHandler *apperrors.ErrorHandler
	logger       *zap.Logger
}

// NewUserHandler creates a user handler.
func NewUserHandler(users ports.UserRepository, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, errorHandler: errorHandler, logger: logger.Named("users")}
}

type createUserRequest struct {
	DisplayName string `json:"displayName" validate:"required,min=2,max=40"`
}

// Create registers the caller's profile. The profile id is the token
// subject; a second registration conflicts.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.IdentityFromContext(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	var req createUserRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	now := time.Now().UTC()
	user := &entities.User{
		ID:          identity.Subject,
		DisplayName: req.DisplayName,
		Email:       identity.Email,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.users.Create(r.Context(), identity, user); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, toUserResponse(user))
}

// Me returns the caller's own profile.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.IdentityFromContext(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	user, err := h.users.GetByID(r.Context(), identity.Subject)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, toUserResponse(user))
}

// Get returns a public profile by id.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	// Email stays private to its owner.
	resp := toUserResponse(user)
	resp.Email = ""
	common.RespondJSON(w, http.StatusOK, resp)
}

type updateDisplayNameRequest struct {
	DisplayName string `json:"displayName" validate:"required,min=2,max=40"`
}

// UpdateDisplayName renames the caller's profile.
func (h *UserHandler) UpdateDisplayName(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.IdentityFromContext(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	var req updateDisplayNameRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	user, err := h.users.UpdateDisplayName(r.Context(), identity, identity.Subject, req.DisplayName)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, toUserResponse(user))
}
