package service

import (
	"context"
	"errors"

	"habitpal/internal/models"
	"habitpal/internal/observability"
	"habitpal/internal/repository"
)

// SearchUserByIdentifier looks up an account by public UID and reports the
// caller's relationship with it. It has no side effects.
func (s *RelationshipService) SearchUserByIdentifier(ctx context.Context, publicUID string, requesterID uint) (result *models.UserSearchResult, err error) {
	ctx, done := s.begin(ctx, "search_user", requesterID, publicUID)
	defer done(&err)

	uid, err := normalizeUID(publicUID)
	if err != nil {
		return nil, err
	}

	return retryRead(ctx, func(ctx context.Context) (*models.UserSearchResult, error) {
		account, err := activeAccountByUID(ctx, s.store.Accounts(), uid)
		if err != nil {
			return nil, err
		}
		if account.ID == requesterID {
			return nil, models.NewSelfReferenceError("You cannot search for yourself")
		}

		rel, err := s.store.Relationships().GetBetween(ctx, requesterID, account.ID)
		if err != nil {
			return nil, err
		}

		res := &models.UserSearchResult{
			AccountSummary: account.Summary(s.now(), s.presenceWindow),
			CanSendRequest: models.CanSendRequest(rel),
		}
		if rel != nil {
			status := rel.Status
			id := rel.ID
			res.RelationshipStatus = &status
			res.RelationshipID = &id
		}
		return res, nil
	})
}

// SendFriendRequest creates a pending relationship and a request
// notification for the target in one transaction.
func (s *RelationshipService) SendFriendRequest(ctx context.Context, requesterID uint, targetUID, message string) (err error) {
	ctx, done := s.begin(ctx, "send_friend_request", requesterID, targetUID)
	defer done(&err)

	uid, err := normalizeUID(targetUID)
	if err != nil {
		return err
	}
	message, err = validateMessage("message", message)
	if err != nil {
		return err
	}

	var (
		requester *models.Account
		target    *models.Account
		rel       *models.Relationship
	)
	err = s.runEffects(ctx,
		effect{"resolve parties", func(ctx context.Context, tx repository.Store) error {
			var err error
			if target, err = activeAccountByUID(ctx, tx.Accounts(), uid); err != nil {
				return err
			}
			if target.ID == requesterID {
				return models.NewSelfReferenceError("You cannot send a friend request to yourself")
			}
			if requester, err = activeAccountByID(ctx, tx.Accounts(), requesterID); err != nil {
				if errors.Is(err, models.ErrNotFound) {
					return models.NewUnauthorizedError("Requesting account is not available")
				}
				return err
			}
			return nil
		}},
		effect{"check existing", func(ctx context.Context, tx repository.Store) error {
			existing, err := tx.Relationships().GetBetween(ctx, requesterID, target.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				return models.RequestConflict(existing.Status)
			}
			return nil
		}},
		effect{"insert relationship", func(ctx context.Context, tx repository.Store) error {
			rel = &models.Relationship{
				RequesterID:      requesterID,
				AddresseeID:      target.ID,
				Status:           models.StatusPending,
				RequesterMessage: message,
			}
			return tx.Relationships().Create(ctx, rel)
		}},
		effect{"notify addressee", func(ctx context.Context, tx repository.Store) error {
			return tx.Notifications().Create(ctx, models.NewNotification(rel, target.ID, models.NotificationRequest, message, requester))
		}},
	)
	if repository.IsConflict(err) {
		return s.resolveRequestConflict(ctx, requesterID, target)
	}
	if err != nil {
		return err
	}

	s.publish(ctx,
		userEvent{target.ID, models.RealtimeEvent{Type: models.EventFriendRequestReceived, Payload: models.EventPayload{
			RelationshipID: rel.ID, Status: rel.Status, Message: message, User: actorSnapshot(requester),
		}}},
		userEvent{requesterID, models.RealtimeEvent{Type: models.EventFriendRequestSent, Payload: models.EventPayload{
			RelationshipID: rel.ID, Status: rel.Status, Message: message, User: actorSnapshot(target),
		}}},
	)
	return nil
}

// resolveRequestConflict re-reads the row that won a concurrent insert and
// maps its status to the caller's error. A row that vanished again is a
// transient condition.
func (s *RelationshipService) resolveRequestConflict(ctx context.Context, requesterID uint, target *models.Account) error {
	if target == nil {
		return models.NewUnavailableError(nil)
	}
	existing, err := s.store.Relationships().GetBetween(ctx, requesterID, target.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return models.NewUnavailableError(repository.ErrConflict)
	}
	return models.RequestConflict(existing.Status)
}

// ListFriendRequests lists pending requests received by or sent from userID,
// newest first.
func (s *RelationshipService) ListFriendRequests(ctx context.Context, userID uint, direction models.RequestDirection) (views []models.RequestView, err error) {
	ctx, done := s.begin(ctx, "list_friend_requests", userID, direction)
	defer done(&err)

	if direction != models.DirectionReceived && direction != models.DirectionSent {
		return nil, models.NewValidationError("type must be 'received' or 'sent'")
	}

	rows, err := retryRead(ctx, func(ctx context.Context) ([]models.RequestRow, error) {
		return s.store.Relationships().ListPending(ctx, userID, direction)
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	views = make([]models.RequestView, 0, len(rows))
	for i := range rows {
		views = append(views, rows[i].View(now, s.presenceWindow))
	}
	return views, nil
}

// HandleFriendRequest accepts or declines a pending request addressed to
// userID. Accepting provisions the private conversation in the same
// transaction, so a provisioning failure leaves the request pending.
func (s *RelationshipService) HandleFriendRequest(ctx context.Context, userID, relationshipID uint, action models.RelationshipAction, reply string) (err error) {
	ctx, done := s.begin(ctx, "handle_friend_request", userID, relationshipID)
	defer done(&err)

	if action != models.ActionAccept && action != models.ActionDecline {
		return models.NewValidationError("action must be 'accept' or 'decline'")
	}
	reply, err = validateMessage("message", reply)
	if err != nil {
		return err
	}

	var (
		rel       *models.Relationship
		addressee *models.Account
		next      models.RelationshipStatus
		cols      = map[string]interface{}{}
	)
	notFound := models.NewNotFoundError("Friend request", relationshipID)

	effects := []effect{
		{"load request", func(ctx context.Context, tx repository.Store) error {
			var err error
			rel, err = tx.Relationships().GetByID(ctx, relationshipID)
			if err != nil {
				return err
			}
			// Foreign and already-handled ids look exactly like missing ones.
			if rel.AddresseeID != userID || rel.Status != models.StatusPending {
				return notFound
			}
			if next, err = models.Transition(rel.Status, action); err != nil {
				return notFound
			}
			if addressee, err = tx.Accounts().GetByID(ctx, userID); err != nil {
				return err
			}
			return nil
		}},
	}
	if action == models.ActionAccept {
		effects = append(effects, effect{"provision conversation", func(ctx context.Context, tx repository.Store) error {
			ref, err := s.provisioner.Provision(ctx, tx, rel)
			if err != nil {
				return err
			}
			cols["conversation_ref"] = ref
			return nil
		}})
	} else {
		cols["reject_reason"] = reply
	}
	effects = append(effects,
		effect{"update status", func(ctx context.Context, tx repository.Store) error {
			ok, err := tx.Relationships().Transition(ctx, rel.ID, models.StatusPending, next, cols)
			if err != nil {
				return err
			}
			if !ok {
				return notFound
			}
			return nil
		}},
		effect{"notify requester", func(ctx context.Context, tx repository.Store) error {
			return tx.Notifications().Create(ctx, models.NewNotification(rel, rel.RequesterID, models.NotificationTypeFor(next), reply, addressee))
		}},
	)

	if err := s.runEffects(ctx, effects...); err != nil {
		return err
	}

	payload := models.EventPayload{RelationshipID: rel.ID, Status: next, Message: reply, User: actorSnapshot(addressee)}
	if next == models.StatusAccepted {
		observability.ConversationsProvisioned.Inc()
		if ref, ok := cols["conversation_ref"].(string); ok {
			payload.ConversationRef = &ref
		}
		s.publish(ctx, userEvent{rel.RequesterID, models.RealtimeEvent{Type: models.EventFriendRequestAccepted, Payload: payload}})
		return nil
	}
	s.publish(ctx, userEvent{rel.RequesterID, models.RealtimeEvent{Type: models.EventFriendRequestRejected, Payload: payload}})
	return nil
}

// CancelFriendRequest lets the requester withdraw a pending request. The row
// and its notifications are removed.
func (s *RelationshipService) CancelFriendRequest(ctx context.Context, userID, relationshipID uint) (err error) {
	ctx, done := s.begin(ctx, "cancel_friend_request", userID, relationshipID)
	defer done(&err)

	var rel *models.Relationship
	notFound := models.NewNotFoundError("Friend request", relationshipID)
	err = s.runEffects(ctx,
		effect{"load request", func(ctx context.Context, tx repository.Store) error {
			var err error
			if rel, err = tx.Relationships().GetByID(ctx, relationshipID); err != nil {
				return err
			}
			if rel.RequesterID != userID || rel.Status != models.StatusPending {
				return notFound
			}
			return nil
		}},
		effect{"delete notifications", func(ctx context.Context, tx repository.Store) error {
			return tx.Notifications().DeleteByRelationship(ctx, rel.ID)
		}},
		effect{"delete request", func(ctx context.Context, tx repository.Store) error {
			err := tx.Relationships().Delete(ctx, rel.ID, models.StatusPending)
			if errors.Is(err, models.ErrNotFound) {
				return notFound
			}
			return err
		}},
	)
	if err != nil {
		return err
	}

	s.publish(ctx, userEvent{rel.AddresseeID, models.RealtimeEvent{Type: models.EventFriendRequestCancelled, Payload: models.EventPayload{
		RelationshipID: rel.ID,
	}}})
	return nil
}
