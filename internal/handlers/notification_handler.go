package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Bijoy-Prasad-Modi/Twitter-Clone/internal/models"
	"github.com/Bijoy-Prasad-Modi/Twitter-Clone/internal/repositories"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notificationRepository repositories.NotificationRepository
	userRepository         repositories.UserRepository
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifRepo repositories.NotificationRepository, userRepo repositories.UserRepository) *NotificationHandler {
	return &NotificationHandler{
		notificationRepository: notifRepo,
		userRepository:         userRepo,
	}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.DELETE("/notifications", h.DeleteNotifications)
}

// GetNotifications returns the actor's notifications, newest first, with
// each sender's display identity populated. Listing marks every unread
// notification as read (read-on-list; there is no separate mark-read
// operation). The returned items carry their read flags as they were
// before the flip.
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	ctx := c.Request().Context()

	notifications, err := h.notificationRepository.GetByRecipient(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	views, err := h.enrichNotifications(ctx, notifications)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.notificationRepository.MarkAllRead(ctx, userID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, views)
}

// DeleteNotifications deletes every notification addressed to the actor.
// Nothing to delete is an error, not a no-op success.
func (h *NotificationHandler) DeleteNotifications(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	count, err := h.notificationRepository.DeleteAllForRecipient(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if count == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "No notifications to delete")
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Notifications deleted successfully"})
}

// enrichNotifications expands each sender reference into a display
// identity, caching lookups per request
func (h *NotificationHandler) enrichNotifications(ctx context.Context, notifications []models.Notification) ([]models.NotificationView, error) {
	views := make([]models.NotificationView, 0, len(notifications))
	userCache := make(map[primitive.ObjectID]models.UserCompact)

	for _, n := range notifications {
		from, ok := userCache[n.From]
		if !ok {
			user, err := h.userRepository.GetUserByID(ctx, n.From)
			if err != nil {
				if err != repositories.ErrUserNotFound {
					return nil, err
				}
				from = models.UserCompact{ID: n.From}
			} else {
				// username and avatar only; never credential fields
				from = models.UserCompact{
					ID:         user.ID,
					Username:   user.Username,
					ProfileImg: user.ProfileImg,
				}
			}
			userCache[n.From] = from
		}

		views = append(views, models.NotificationView{
			ID:        n.ID,
			Type:      n.Type,
			From:      from,
			Content:   n.Content,
			Post:      n.Post,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		})
	}
	return views, nil
}
