package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "sidebet-backend/pkg/errors"
)

func TestAuthorize(t *testing.T) {
	alice := Identity{Subject: "user-alice", Scopes: []string{"openid", "email"}}

	t.Run("allows unowned action with openid scope", func(t *testing.T) {
		err := Authorize(alice, ActionCreateEvent, "")
		assert.NoError(t, err)
	})

	t.Run("allows owned action on own resource", func(t *testing.T) {
		err := Authorize(alice, ActionCreateBid, "user-alice")
		assert.NoError(t, err)
	})

	t.Run("denies owned action on another user's resource", func(t *testing.T) {
		err := Authorize(alice, ActionUpdateBid, "user-bob")
		assert.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))
	})

	t.Run("denies without openid scope", func(t *testing.T) {
		noScope := Identity{Subject: "user-alice", Scopes: []string{"email"}}
		err := Authorize(noScope, ActionCreateEvent, "")
		assert.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))
	})

	t.Run("denies empty subject", func(t *testing.T) {
		err := Authorize(Identity{Scopes: []string{"openid"}}, ActionCreateEvent, "")
		assert.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
	})

	t.Run("unowned actions are not ownership checked", func(t *testing.T) {
		err := Authorize(alice, ActionCreateEvent, "user-bob")
		assert.NoError(t, err)
	})
}
