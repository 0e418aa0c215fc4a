package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Follow is a directed edge in the "follows" collection: AuthorID follows FollowID
type Follow struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	FollowID  primitive.ObjectID `json:"follow_id" bson:"followId"` // user being followed
	AuthorID  primitive.ObjectID `json:"author_id" bson:"authorId"` // follower
	CreatedAt time.Time          `json:"created_at" bson:"createdAt"`
}

// FollowUserDoc is the projection produced by the follows -> users lookup
type FollowUserDoc struct {
	Username string `bson:"username"`
	Email    string `bson:"email"`
}

// FollowRequest is the body of POST/DELETE /follows.
// Username is a string on the wire; any other JSON type fails binding.
type FollowRequest struct {
	Username string `json:"username" validate:"required,max=30"`
}

// FollowCounts groups both sides of a user's follow graph
type FollowCounts struct {
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
}

// ProfileSummary is returned by the profile endpoints
type ProfileSummary struct {
	Username          string       `json:"username"`
	Avatar            string       `json:"avatar"`
	IsFollowing       bool         `json:"isFollowing"`
	IsVisitorsProfile bool         `json:"isVisitorsProfile"`
	Counts            FollowCounts `json:"counts"`
}
