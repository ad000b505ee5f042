package server

import (
	"habitpal/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SendFriendRequestInput is the body of POST /friends/request.
type SendFriendRequestInput struct {
	UID     string `json:"uid"`
	Message string `json:"message"`
}

// HandleFriendRequestInput is the body of POST /friends/requests/{id}/handle.
type HandleFriendRequestInput struct {
	Action  string `json:"action"`
	Message string `json:"message"`
}

// SearchUser handles GET /api/friends/search/:uid
// @Summary Find a user by public UID
// @Description Returns the account and the caller's relationship with it
// @Tags friends
// @Produce json
// @Param uid path string true "Public UID"
// @Success 200 {object} models.UserSearchResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /friends/search/{uid} [get]
func (s *Server) SearchUser(c *fiber.Ctx) error {
	result, err := s.relationships.SearchUserByIdentifier(c.UserContext(), c.Params("uid"), currentUserID(c))
	return respond(c, err, func() error { return c.JSON(result) })
}

// SendFriendRequest handles POST /api/friends/request
// @Summary Send a friend request
// @Tags friends
// @Accept json
// @Produce json
// @Param request body SendFriendRequestInput true "Target UID and optional message"
// @Success 200 {object} object{success=bool}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /friends/request [post]
func (s *Server) SendFriendRequest(c *fiber.Ctx) error {
	var in SendFriendRequestInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	err := s.relationships.SendFriendRequest(c.UserContext(), currentUserID(c), in.UID, in.Message)
	return respond(c, err, func() error { return success(c) })
}

// ListFriendRequests handles GET /api/friends/requests
// @Summary List pending friend requests
// @Tags friends
// @Produce json
// @Param type query string false "received (default) or sent"
// @Success 200 {array} models.RequestView
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /friends/requests [get]
func (s *Server) ListFriendRequests(c *fiber.Ctx) error {
	direction, err := models.ParseRequestDirection(c.Query("type"))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	views, err := s.relationships.ListFriendRequests(c.UserContext(), currentUserID(c), direction)
	return respond(c, err, func() error { return c.JSON(views) })
}

// HandleFriendRequest handles POST /api/friends/requests/:id/handle
// @Summary Accept or decline a friend request
// @Tags friends
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param request body HandleFriendRequestInput true "accept or decline"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /friends/requests/{id}/handle [post]
func (s *Server) HandleFriendRequest(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var in HandleFriendRequestInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	action, err := models.ParseHandleAction(in.Action)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	err = s.relationships.HandleFriendRequest(c.UserContext(), currentUserID(c), id, action, in.Message)
	return respond(c, err, func() error {
		msg := "Friend request accepted"
		if action == models.ActionDecline {
			msg = "Friend request declined"
		}
		return c.JSON(fiber.Map{"success": true, "message": msg})
	})
}

// CancelFriendRequest handles DELETE /api/friends/requests/:id
// @Summary Cancel a sent friend request
// @Tags friends
// @Param id path int true "Request ID"
// @Success 200 {object} object{success=bool}
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /friends/requests/{id} [delete]
func (s *Server) CancelFriendRequest(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	err = s.relationships.CancelFriendRequest(c.UserContext(), currentUserID(c), id)
	return respond(c, err, func() error { return success(c) })
}

// ListFriends handles GET /api/friends
// @Summary List friends
// @Description Starred first, then by latest message, then by last activity
// @Tags friends
// @Produce json
// @Success 200 {array} models.FriendView
// @Security BearerAuth
// @Router /friends [get]
func (s *Server) ListFriends(c *fiber.Ctx) error {
	views, err := s.relationships.ListFriends(c.UserContext(), currentUserID(c))
	return respond(c, err, func() error { return c.JSON(views) })
}

// RemoveFriend handles DELETE /api/friends/:otherUserId
// @Summary Remove a friend
// @Tags friends
// @Param otherUserId path int true "Friend's user ID"
// @Success 200 {object} object{success=bool}
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /friends/{otherUserId} [delete]
func (s *Server) RemoveFriend(c *fiber.Ctx) error {
	otherID, err := parseID(c, "otherUserId")
	if err != nil {
		return nil
	}
	err = s.relationships.RemoveFriend(c.UserContext(), currentUserID(c), otherID)
	return respond(c, err, func() error { return success(c) })
}

// UpdateFriendSettings handles PATCH /api/friends/:otherUserId/settings
// @Summary Update alias, star and mute for a friend
// @Tags friends
// @Accept json
// @Param otherUserId path int true "Friend's user ID"
// @Param request body models.FriendSettingsPatch true "Fields to change"
// @Success 200 {object} object{success=bool}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /friends/{otherUserId}/settings [patch]
func (s *Server) UpdateFriendSettings(c *fiber.Ctx) error {
	otherID, err := parseID(c, "otherUserId")
	if err != nil {
		return nil
	}
	var patch models.FriendSettingsPatch
	if err := parseBody(c, &patch); err != nil {
		return nil
	}
	err = s.relationships.UpdateFriendSettings(c.UserContext(), currentUserID(c), otherID, patch)
	return respond(c, err, func() error { return success(c) })
}

// BlockUser handles POST /api/friends/:otherUserId/block
// @Summary Block a user
// @Tags friends
// @Param otherUserId path int true "User ID to block"
// @Success 200 {object} object{success=bool}
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /friends/{otherUserId}/block [post]
func (s *Server) BlockUser(c *fiber.Ctx) error {
	otherID, err := parseID(c, "otherUserId")
	if err != nil {
		return nil
	}
	err = s.relationships.BlockUser(c.UserContext(), currentUserID(c), otherID)
	return respond(c, err, func() error { return success(c) })
}
