package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/Bijoy-Prasad-Modi/Twitter-Clone/internal/models"
	"github.com/Bijoy-Prasad-Modi/Twitter-Clone/internal/repositories"
	"github.com/Bijoy-Prasad-Modi/Twitter-Clone/pkg/media"
)

const suggestedUsersLimit = 4

// UserHandler handles user profile and follow HTTP requests
type UserHandler struct {
	userRepository         repositories.UserRepository
	notificationRepository repositories.NotificationRepository
	mediaStore             media.Uploader
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository, notifRepo repositories.NotificationRepository, mediaStore media.Uploader) *UserHandler {
	return &UserHandler{
		userRepository:         userRepo,
		notificationRepository: notifRepo,
		mediaStore:             mediaStore,
	}
}

// RegisterUserRoutes registers user-related routes
func (h *UserHandler) RegisterUserRoutes(g *echo.Group) {
	g.GET("/users/profile/:username", h.GetUserProfile)
	g.GET("/users/suggested", h.GetSuggestedUsers)
	g.POST("/users/follow/:id", h.FollowUnfollowUser)
	g.POST("/users/update", h.UpdateUser)
}

// GetUserProfile returns a user's public profile by username
func (h *UserHandler) GetUserProfile(c echo.Context) error {
	user, err := h.userRepository.GetUserByUsername(c.Request().Context(), c.Param("username"))
	if err != nil {
		if err == repositories.ErrUserNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, user)
}

// FollowUnfollowUser toggles the actor's follow on the target user.
// Following notifies the target; unfollowing is silent.
func (h *UserHandler) FollowUnfollowUser(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	targetID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}
	if targetID == userID {
		return echo.NewHTTPError(http.StatusBadRequest, "You can't follow/unfollow yourself")
	}

	ctx := c.Request().Context()

	actor, err := h.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		if err == repositories.ErrUserNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if _, err := h.userRepository.GetUserByID(ctx, targetID); err != nil {
		if err == repositories.ErrUserNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if containsID(actor.Following, targetID) {
		if err := h.userRepository.Unfollow(ctx, userID, targetID); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, echo.Map{"message": "User unfollowed successfully"})
	}

	if err := h.userRepository.Follow(ctx, userID, targetID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	notif := &models.Notification{
		From: userID,
		To:   targetID,
		Type: models.NotificationTypeFollow,
	}
	if err := h.notificationRepository.CreateNotification(ctx, notif); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "User followed successfully"})
}

// GetSuggestedUsers returns a small sample of users the actor does not follow
func (h *UserHandler) GetSuggestedUsers(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	ctx := c.Request().Context()

	actor, err := h.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		if err == repositories.ErrUserNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	exclude := append([]primitive.ObjectID{userID}, actor.Following...)
	users, err := h.userRepository.GetSuggestedUsers(ctx, exclude, 10)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if len(users) > suggestedUsersLimit {
		users = users[:suggestedUsersLimit]
	}

	return c.JSON(http.StatusOK, users)
}

// UpdateUser updates the actor's profile, optionally changing the password
// and uploading new profile/cover images
func (h *UserHandler) UpdateUser(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()

	user, err := h.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		if err == repositories.ErrUserNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if (req.CurrentPassword == "") != (req.NewPassword == "") {
		return echo.NewHTTPError(http.StatusBadRequest, "Please provide both current password and new password")
	}
	if req.CurrentPassword != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Current password is incorrect")
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
		}
		user.Password = string(hashed)
	}

	if url, err := h.replaceImage(user.ProfileImg, req.ProfileImg); err != nil {
		return err
	} else if url != "" {
		user.ProfileImg = url
	}
	if url, err := h.replaceImage(user.CoverImg, req.CoverImg); err != nil {
		return err
	} else if url != "" {
		user.CoverImg = url
	}

	if req.FullName != "" {
		user.FullName = req.FullName
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.Username != "" {
		user.Username = req.Username
	}
	if req.Bio != "" {
		user.Bio = req.Bio
	}
	if req.Link != "" {
		user.Link = req.Link
	}

	if err := h.userRepository.UpdateUser(ctx, user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, user)
}

// replaceImage uploads a new image payload and removes the one it replaces.
// Returns the new URL, or "" when no new image was provided.
func (h *UserHandler) replaceImage(oldURL, payload string) (string, error) {
	if payload == "" {
		return "", nil
	}
	if !strings.HasPrefix(payload, "data:") {
		// Already a URL; nothing to upload
		return payload, nil
	}

	data, contentType, err := parseDataURL(payload)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "Invalid image payload")
	}
	url, err := h.mediaStore.Upload(data, contentType)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if oldURL != "" {
		_ = h.mediaStore.Delete(oldURL)
	}
	return url, nil
}
