package server

import (
	"habitpal/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListNotifications handles GET /api/friends/notifications
// @Summary List relationship notifications
// @Tags notifications
// @Produce json
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.NotificationView
// @Security BearerAuth
// @Router /friends/notifications [get]
func (s *Server) ListNotifications(c *fiber.Ctx) error {
	page := parsePagination(c, service.DefaultNotificationLimit)
	views, err := s.relationships.ListNotifications(c.UserContext(), currentUserID(c), page.Limit, page.Offset)
	return respond(c, err, func() error { return c.JSON(views) })
}

// UnreadNotificationCount handles GET /api/friends/notifications/unread-count
// @Summary Count unread notifications
// @Tags notifications
// @Produce json
// @Success 200 {object} object{count=int}
// @Security BearerAuth
// @Router /friends/notifications/unread-count [get]
func (s *Server) UnreadNotificationCount(c *fiber.Ctx) error {
	n, err := s.relationships.UnreadNotificationCount(c.UserContext(), currentUserID(c))
	return respond(c, err, func() error { return c.JSON(fiber.Map{"count": n}) })
}

// MarkNotificationRead handles PATCH /api/friends/notifications/:id/read
// @Summary Mark a notification read
// @Tags notifications
// @Param id path int true "Notification ID"
// @Success 200 {object} object{success=bool}
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /friends/notifications/{id}/read [patch]
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	err = s.relationships.MarkNotificationRead(c.UserContext(), currentUserID(c), id)
	return respond(c, err, func() error { return success(c) })
}

// MarkAllNotificationsRead handles POST /api/friends/notifications/read-all
// @Summary Mark every notification read
// @Tags notifications
// @Success 200 {object} object{success=bool,updated=int}
// @Security BearerAuth
// @Router /friends/notifications/read-all [post]
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	n, err := s.relationships.MarkAllNotificationsRead(c.UserContext(), currentUserID(c))
	return respond(c, err, func() error { return c.JSON(fiber.Map{"success": true, "updated": n}) })
}
