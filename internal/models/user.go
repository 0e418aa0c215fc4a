package models

import (
	"crypto/md5"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a member account stored in the MongoDB "users" collection
type User struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Username    string             `json:"username" bson:"username"`
	Email       string             `json:"email" bson:"email"`
	Password    string             `json:"-" bson:"password,omitempty"`                        // bcrypt hash
	FirebaseUID string             `json:"firebase_uid,omitempty" bson:"firebaseUid,omitempty"` // set after a Firebase login
	CreatedAt   time.Time          `json:"created_at" bson:"createdAt"`
}

// Avatar returns the Gravatar URL derived from the user's email
func (u *User) Avatar() string {
	return AvatarFor(u.Email)
}

// ToCompact returns the public view of a user used in follow lists
func (u *User) ToCompact() UserCompact {
	return UserCompact{Username: u.Username, Avatar: u.Avatar()}
}

// AvatarFor builds a 128px Gravatar URL for an email address.
func AvatarFor(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://gravatar.com/avatar/%x?s=128", sum)
}

// UserCompact is the {username, avatar} pair returned by follower/following queries
type UserCompact struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type SignupRequest struct {
	Username string `json:"username" validate:"required,alphanum,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type SigninRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest holds the editable profile fields; empty fields are left unchanged
type UpdateProfileRequest struct {
	Username string `json:"username" validate:"omitempty,alphanum,min=3,max=30"`
	Email    string `json:"email" validate:"omitempty,email"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID   string `json:"user_id"` // hex ObjectID
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}
