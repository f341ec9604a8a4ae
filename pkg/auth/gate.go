package auth

import (
	"fmt"

	apperrors "sidebet-backend/pkg/errors"
)

// ScopeOpenID is the minimum scope every API operation requires.
const ScopeOpenID = "openid"

// Action names a mutating operation checked by the authorization gate.
// Read routes need no per-action check: the authentication middleware
// already requires the openid scope on every request.
type Action string

const (
	ActionCreateUser        Action = "user:create"
	ActionUpdateDisplayName Action = "user:update-name"
	ActionCreateLeague      Action = "league:create"
	ActionJoinLeague        Action = "league:join"
	ActionCreateEvent       Action = "marketplace:create"
	ActionCreateBid         Action = "bid:create"
	ActionUpdateBid         Action = "bid:update"
	ActionCancelBid         Action = "bid:cancel"
)

// ownedActions mutate entities belonging to a specific user; the gate
// compares the resource owner against the caller's subject for these.
var ownedActions = map[Action]bool{
	ActionCreateUser:        true,
	ActionUpdateDisplayName: true,
	ActionCreateLeague:      true,
	ActionJoinLeague:        true,
	ActionCreateBid:         true,
	ActionUpdateBid:         true,
	ActionCancelBid:         true,
}

// Authorize maps a verified identity and scope set to an allow/deny decision
// for one action. Pure function, no I/O: repositories call it before any
// mutating store access.
func Authorize(id Identity, action Action, resourceOwnerID string) error {
	if id.Subject == "" {
		return apperrors.NewUnauthorizedError("missing subject")
	}
	if !id.HasScope(ScopeOpenID) {
		return apperrors.NewForbiddenError(fmt.Sprintf("scope %q required for %s", ScopeOpenID, action))
	}
	if ownedActions[action] && resourceOwnerID != id.Subject {
		return apperrors.NewForbiddenError(fmt.Sprintf("%s not permitted on another user's resource", action))
	}
	return nil
}
