package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NewValidationError("bad"), fiber.StatusBadRequest},
		{NewSelfReferenceError("self"), fiber.StatusBadRequest},
		{NewUnauthorizedError("no"), fiber.StatusUnauthorized},
		{NewNotFoundError("User", "X"), fiber.StatusNotFound},
		{NewAlreadyPendingError(), fiber.StatusConflict},
		{NewAlreadyFriendsError(), fiber.StatusConflict},
		{NewCannotSendError(), fiber.StatusConflict},
		{NewUnavailableError(errors.New("timeout")), fiber.StatusInternalServerError},
		{NewInternalError(errors.New("boom")), fiber.StatusInternalServerError},
		{errors.New("plain"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestAppError_IsMatchesCodeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("send request: %w", NewAlreadyPendingError())
	assert.ErrorIs(t, err, ErrAlreadyPending)
	assert.NotErrorIs(t, err, ErrAlreadyFriends)
	assert.Equal(t, CodeAlreadyPending, ErrorCode(err))
}

func TestIsOnline(t *testing.T) {
	now := time.Now()
	recent := now.Add(-2 * time.Minute)
	stale := now.Add(-10 * time.Minute)

	assert.False(t, IsOnline(nil, now, 5*time.Minute))
	assert.True(t, IsOnline(&recent, now, 5*time.Minute))
	assert.False(t, IsOnline(&stale, now, 5*time.Minute))
}

func TestNotification_ActorSnapshot(t *testing.T) {
	rel := &Relationship{ID: 5, RequesterID: 1, AddresseeID: 2}
	actor := &Account{ID: 1, PublicUID: "AAA111", DisplayName: "Alice"}

	n := NewNotification(rel, 2, NotificationRequest, "hi", actor)
	assert.Equal(t, uint(5), n.RelationshipID)
	assert.Equal(t, uint(2), n.RecipientUserID)

	got := decodeActor(n.Payload)
	if assert.NotNil(t, got) {
		assert.Equal(t, "AAA111", got.UID)
		assert.Equal(t, "Alice", got.DisplayName)
	}
	assert.Nil(t, decodeActor(NewNotification(rel, 2, NotificationRequest, "", nil).Payload))
	assert.Nil(t, decodeActor([]byte("not json")))
}

func TestNotificationRow_ViewKeepsActorSnapshot(t *testing.T) {
	rel := &Relationship{ID: 5, RequesterID: 1, AddresseeID: 2}
	n := NewNotification(rel, 2, NotificationRequest, "hi", &Account{ID: 1, PublicUID: "AAA111", DisplayName: "Alice"})

	row := NotificationRow{ID: 9, RelationshipID: 5, Payload: n.Payload, OtherID: 1, OtherUID: "AAA111", OtherDisplayName: "Alice Renamed"}
	view := row.View(time.Now(), time.Minute)
	assert.Equal(t, "Alice Renamed", view.FromUser.DisplayName)
	if assert.NotNil(t, view.Actor) {
		assert.Equal(t, "Alice", view.Actor.DisplayName)
	}

	assert.Nil(t, (&NotificationRow{}).View(time.Now(), time.Minute).Actor)
}
