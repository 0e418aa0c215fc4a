package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/follow-graph/internal/middleware"
	"github.com/anonto42/follow-graph/internal/models"
	"github.com/anonto42/follow-graph/internal/repositories"
	"github.com/anonto42/follow-graph/internal/services"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// FollowHandler handles follow/unfollow HTTP requests
type FollowHandler struct {
	followService          services.FollowService
	userRepository         repositories.UserRepository
	notificationRepository repositories.NotificationRepository
}

// NewFollowHandler creates a new FollowHandler. notifRepo may be nil.
func NewFollowHandler(followService services.FollowService, userRepo repositories.UserRepository, notifRepo repositories.NotificationRepository) *FollowHandler {
	return &FollowHandler{
		followService:          followService,
		userRepository:         userRepo,
		notificationRepository: notifRepo,
	}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/follows", h.FollowUser)
	g.DELETE("/follows", h.UnfollowUser)
}

// bindFollowRequest decodes the body. A non-string username is an
// unmarshal type error and comes back as a 400 from the binder.
func bindFollowRequest(c echo.Context) (*models.FollowRequest, error) {
	var req models.FollowRequest
	if err := c.Bind(&req); err != nil {
		return nil, err
	}
	if err := c.Validate(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

// FollowUser follows the user named in the request body
func (h *FollowHandler) FollowUser(c echo.Context) error {
	currentUserID, ok := getUserIDFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	req, err := bindFollowRequest(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.followService.Create(ctx, req.Username, currentUserID); err != nil {
		return serviceError(c, err)
	}

	h.notifyFollow(ctx, c, req.Username)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"following": true}})
}

// UnfollowUser removes the follow edge to the user named in the request body
func (h *FollowHandler) UnfollowUser(c echo.Context) error {
	currentUserID, ok := getUserIDFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	req, err := bindFollowRequest(c)
	if err != nil {
		return err
	}

	if err := h.followService.Delete(c.Request().Context(), req.Username, currentUserID); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"following": false}})
}

// notifyFollow records a follow notification for the followed user. Failures
// are logged only; the edge already exists.
func (h *FollowHandler) notifyFollow(ctx context.Context, c echo.Context, followedUsername string) {
	if h.notificationRepository == nil {
		return
	}
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return
	}

	target, err := h.userRepository.GetUserByUsername(ctx, followedUsername)
	if err != nil {
		log.WithError(err).WithField("username", followedUsername).Warn("follow notification: target lookup failed")
		return
	}

	notif := &models.Notification{
		Type:        models.NotificationTypeFollow,
		ActorID:     claims.UserID,
		RecipientID: target.ID.Hex(),
		TargetID:    claims.UserID,
		TargetType:  "user",
		Message:     claims.Username + " started following you",
	}
	if err := h.notificationRepository.CreateNotification(ctx, notif); err != nil {
		log.WithError(err).WithField("recipient_id", notif.RecipientID).Warn("failed to create follow notification")
	}
}
