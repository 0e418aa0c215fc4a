package services

import (
	"context"
	"errors"

	"github.com/anonto42/follow-graph/internal/models"
	"github.com/anonto42/follow-graph/internal/repositories"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Action is the edge mutation a follow request is validated for
type Action string

const (
	ActionCreate Action = "create"
	ActionDelete Action = "delete"
)

// FollowService manages follow edges between users
type FollowService interface {
	Create(ctx context.Context, followedUsername string, authorID primitive.ObjectID) error
	Delete(ctx context.Context, followedUsername string, authorID primitive.ObjectID) error
	IsFollowing(ctx context.Context, targetID, visitorID primitive.ObjectID) (bool, error)
	GetFollowers(ctx context.Context, userID primitive.ObjectID) ([]models.UserCompact, error)
	GetFollowing(ctx context.Context, userID primitive.ObjectID) ([]models.UserCompact, error)
	CountFollowers(ctx context.Context, userID primitive.ObjectID) (int64, error)
	CountFollowing(ctx context.Context, userID primitive.ObjectID) (int64, error)
	RemoveUser(ctx context.Context, userID primitive.ObjectID) error
}

type followService struct {
	users   repositories.UserRepository
	follows repositories.FollowRepository
	counts  repositories.FollowCountCache // nil disables caching
}

// NewFollowService creates a FollowService. counts may be nil.
func NewFollowService(users repositories.UserRepository, follows repositories.FollowRepository, counts repositories.FollowCountCache) FollowService {
	return &followService{users: users, follows: follows, counts: counts}
}

// followRequest holds the state of one create/delete attempt
type followRequest struct {
	followedUsername string
	authorID         primitive.ObjectID
	followID         primitive.ObjectID
	resolved         bool
	errors           []string
}

// validate runs every check and accumulates messages. Only store failures
// stop it early.
func (s *followService) validate(ctx context.Context, req *followRequest, action Action) error {
	target, err := s.users.GetUserByUsername(ctx, req.followedUsername)
	switch {
	case err == nil:
		req.followID = target.ID
		req.resolved = true
	case errors.Is(err, repositories.ErrUserNotFound):
		req.errors = append(req.errors, MsgUserDoesNotExist)
	default:
		return &QueryError{Op: "find user", Err: err}
	}

	exists := false
	if req.resolved {
		exists, err = s.follows.IsFollowing(ctx, req.followID, req.authorID)
		if err != nil {
			return &QueryError{Op: "find follow", Err: err}
		}
	}

	if action == ActionCreate && exists {
		req.errors = append(req.errors, MsgAlreadyFollowing)
	}
	if action == ActionDelete && !exists {
		req.errors = append(req.errors, MsgNotFollowing)
	}

	// an unresolved target has no id to compare against
	if req.resolved && req.followID == req.authorID {
		req.errors = append(req.errors, MsgCannotFollowSelf)
	}
	return nil
}

func (s *followService) Create(ctx context.Context, followedUsername string, authorID primitive.ObjectID) error {
	req := &followRequest{followedUsername: followedUsername, authorID: authorID}
	if err := s.validate(ctx, req, ActionCreate); err != nil {
		return err
	}
	if len(req.errors) > 0 {
		return &ValidationError{Messages: req.errors}
	}

	err := s.follows.CreateFollow(ctx, &models.Follow{FollowID: req.followID, AuthorID: req.authorID})
	if err != nil {
		if errors.Is(err, repositories.ErrAlreadyFollowing) {
			return &ValidationError{Messages: []string{MsgAlreadyFollowing}}
		}
		log.WithError(err).WithFields(log.Fields{
			"follow_id": req.followID.Hex(),
			"author_id": req.authorID.Hex(),
		}).Error("failed to create follow")
		return &QueryError{Op: "insert follow", Err: err}
	}

	s.invalidateCounts(ctx, req.followID, req.authorID)
	return nil
}

func (s *followService) Delete(ctx context.Context, followedUsername string, authorID primitive.ObjectID) error {
	req := &followRequest{followedUsername: followedUsername, authorID: authorID}
	if err := s.validate(ctx, req, ActionDelete); err != nil {
		return err
	}
	if len(req.errors) > 0 {
		return &ValidationError{Messages: req.errors}
	}

	if err := s.follows.DeleteFollow(ctx, req.followID, req.authorID); err != nil {
		if errors.Is(err, repositories.ErrFollowNotFound) {
			return &ValidationError{Messages: []string{MsgNotFollowing}}
		}
		log.WithError(err).WithFields(log.Fields{
			"follow_id": req.followID.Hex(),
			"author_id": req.authorID.Hex(),
		}).Error("failed to delete follow")
		return &QueryError{Op: "delete follow", Err: err}
	}

	s.invalidateCounts(ctx, req.followID, req.authorID)
	return nil
}

func (s *followService) IsFollowing(ctx context.Context, targetID, visitorID primitive.ObjectID) (bool, error) {
	ok, err := s.follows.IsFollowing(ctx, targetID, visitorID)
	if err != nil {
		return false, &QueryError{Op: "find follow", Err: err}
	}
	return ok, nil
}

func (s *followService) GetFollowers(ctx context.Context, userID primitive.ObjectID) ([]models.UserCompact, error) {
	docs, err := s.follows.GetFollowers(ctx, userID)
	if err != nil {
		return nil, &QueryError{Op: "aggregate followers", Err: err}
	}
	return toCompact(docs), nil
}

func (s *followService) GetFollowing(ctx context.Context, userID primitive.ObjectID) ([]models.UserCompact, error) {
	docs, err := s.follows.GetFollowing(ctx, userID)
	if err != nil {
		return nil, &QueryError{Op: "aggregate following", Err: err}
	}
	return toCompact(docs), nil
}

func (s *followService) CountFollowers(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.count(ctx, repositories.FollowersCount, userID, s.follows.CountFollowers)
}

func (s *followService) CountFollowing(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.count(ctx, repositories.FollowingCount, userID, s.follows.CountFollowing)
}

// count reads through the cache when one is configured. Cache failures are
// logged and never fail the request. A load that races a write can cache a
// count that is one edge off; the entry TTL bounds how long it is served.
func (s *followService) count(ctx context.Context, kind repositories.CountKind, userID primitive.ObjectID,
	load func(context.Context, primitive.ObjectID) (int64, error)) (int64, error) {
	key := userID.Hex()
	if s.counts != nil {
		n, found, err := s.counts.Get(ctx, kind, key)
		if err != nil {
			log.WithError(err).WithField("user_id", key).Warnf("redis get %s count failed, falling back to db", kind)
		}
		if found {
			return n, nil
		}
	}

	n, err := load(ctx, userID)
	if err != nil {
		return 0, &QueryError{Op: "count " + string(kind), Err: err}
	}

	if s.counts != nil {
		if err := s.counts.Set(ctx, kind, key, n); err != nil {
			log.WithError(err).WithField("user_id", key).Warnf("failed to cache %s count", kind)
		}
	}
	return n, nil
}

func (s *followService) invalidateCounts(ctx context.Context, followID, authorID primitive.ObjectID) {
	if s.counts == nil {
		return
	}
	if err := s.counts.Invalidate(ctx, followID.Hex(), authorID.Hex()); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"follow_id": followID.Hex(),
			"author_id": authorID.Hex(),
		}).Warn("failed to invalidate follow counts")
	}
}

// RemoveUser drops every follow edge of a user being deleted and the cached
// counts of everyone on the other side of those edges.
func (s *followService) RemoveUser(ctx context.Context, userID primitive.ObjectID) error {
	followers, following, err := s.follows.DeleteUserEdges(ctx, userID)
	if err != nil {
		return &QueryError{Op: "delete user edges", Err: err}
	}

	for _, authorID := range followers {
		s.invalidateCounts(ctx, userID, authorID)
	}
	for _, followID := range following {
		s.invalidateCounts(ctx, followID, userID)
	}
	log.WithFields(log.Fields{
		"user_id":   userID.Hex(),
		"followers": len(followers),
		"following": len(following),
	}).Info("removed follow edges of deleted user")
	return nil
}

func toCompact(docs []models.FollowUserDoc) []models.UserCompact {
	out := make([]models.UserCompact, 0, len(docs))
	for _, d := range docs {
		u := models.User{Username: d.Username, Email: d.Email}
		out = append(out, u.ToCompact())
	}
	return out
}

var _ FollowService = (*followService)(nil)
