package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/anonto42/follow-graph/internal/models"
	"github.com/anonto42/follow-graph/internal/repositories"
	"github.com/anonto42/follow-graph/internal/services"
	"github.com/labstack/echo/v4"
)

// ProfileHandler serves profile pages with their follow graph
type ProfileHandler struct {
	userRepository repositories.UserRepository
	followService  services.FollowService
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(userRepo repositories.UserRepository, followService services.FollowService) *ProfileHandler {
	return &ProfileHandler{userRepository: userRepo, followService: followService}
}

// RegisterProfileRoutes registers profile-related routes
func (h *ProfileHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetOwnProfile)
	g.PUT("/profile", h.UpdateProfile)
	g.DELETE("/profile", h.DeleteProfile)
	g.GET("/users/search", h.SearchUsers)
	g.GET("/profile/:username", h.GetProfile)
	g.GET("/profile/:username/followers", h.GetFollowers)
	g.GET("/profile/:username/following", h.GetFollowing)
}

// loadProfile resolves the profile user and builds the shared summary
func (h *ProfileHandler) loadProfile(c echo.Context) (*models.User, *models.ProfileSummary, error) {
	user, err := h.userRepository.GetUserByUsername(c.Request().Context(), c.Param("username"))
	if err != nil {
		return nil, nil, userLookupError(err)
	}

	summary, err := h.summarize(c, user)
	if err != nil {
		return nil, nil, err
	}
	return user, summary, nil
}

// currentUser loads the authenticated user's document
func (h *ProfileHandler) currentUser(c echo.Context) (*models.User, error) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	user, err := h.userRepository.GetUserByID(c.Request().Context(), userID)
	if err != nil {
		return nil, userLookupError(err)
	}
	return user, nil
}

func userLookupError(err error) error {
	if errors.Is(err, repositories.ErrUserNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "User profile not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

// summarize builds the profile summary of user as seen by the visitor
func (h *ProfileHandler) summarize(c echo.Context, user *models.User) (*models.ProfileSummary, error) {
	ctx := c.Request().Context()
	summary := &models.ProfileSummary{Username: user.Username, Avatar: user.Avatar()}

	var err error
	if visitorID, ok := getUserIDFromContext(c); ok {
		summary.IsVisitorsProfile = visitorID == user.ID
		if !summary.IsVisitorsProfile {
			summary.IsFollowing, err = h.followService.IsFollowing(ctx, user.ID, visitorID)
			if err != nil {
				return nil, queryFailure(err)
			}
		}
	}

	if summary.Counts.Followers, err = h.followService.CountFollowers(ctx, user.ID); err != nil {
		return nil, queryFailure(err)
	}
	if summary.Counts.Following, err = h.followService.CountFollowing(ctx, user.ID); err != nil {
		return nil, queryFailure(err)
	}
	return summary, nil
}

// GetOwnProfile returns the authenticated user's profile summary and email
func (h *ProfileHandler) GetOwnProfile(c echo.Context) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}
	summary, err := h.summarize(c, user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"profile": summary,
			"email":   user.Email,
		},
	})
}

// UpdateProfile changes the authenticated user's username and/or email
func (h *ProfileHandler) UpdateProfile(c echo.Context) error {
	var req models.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.currentUser(c)
	if err != nil {
		return err
	}
	if req.Username != "" {
		user.Username = req.Username
	}
	if req.Email != "" {
		user.Email = strings.ToLower(req.Email)
	}

	if err := h.userRepository.UpdateUser(c.Request().Context(), user); err != nil {
		if errors.Is(err, repositories.ErrUserExists) {
			return echo.NewHTTPError(http.StatusConflict, "Username or email already registered")
		}
		return userLookupError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"username": user.Username, "email": user.Email, "avatar": user.Avatar()},
	})
}

// DeleteProfile deletes the authenticated user together with their follow
// edges in both directions.
func (h *ProfileHandler) DeleteProfile(c echo.Context) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.followService.RemoveUser(ctx, user.ID); err != nil {
		return queryFailure(err)
	}
	if err := h.userRepository.DeleteUser(ctx, user.ID); err != nil {
		return userLookupError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// SearchUsers finds users by a partial username
func (h *ProfileHandler) SearchUsers(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Search query 'q' is required")
	}

	users, err := h.userRepository.SearchUsers(c.Request().Context(), query, 20)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	results := make([]models.UserCompact, 0, len(users))
	for i := range users {
		results = append(results, users[i].ToCompact())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"users": results}})
}

// GetProfile returns a user's profile summary
func (h *ProfileHandler) GetProfile(c echo.Context) error {
	_, summary, err := h.loadProfile(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": summary})
}

// GetFollowers returns the users following the profile user
func (h *ProfileHandler) GetFollowers(c echo.Context) error {
	user, summary, err := h.loadProfile(c)
	if err != nil {
		return err
	}

	followers, err := h.followService.GetFollowers(c.Request().Context(), user.ID)
	if err != nil {
		return queryFailure(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"profile":   summary,
			"followers": followers,
		},
	})
}

// GetFollowing returns the users the profile user follows
func (h *ProfileHandler) GetFollowing(c echo.Context) error {
	user, summary, err := h.loadProfile(c)
	if err != nil {
		return err
	}

	following, err := h.followService.GetFollowing(c.Request().Context(), user.ID)
	if err != nil {
		return queryFailure(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"profile":   summary,
			"following": following,
		},
	})
}
