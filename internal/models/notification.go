package models

import "time"

const NotificationTypeFollow = "follow"

// Notification represents a user notification (PostgreSQL).
// Actor and recipient are hex ObjectIDs of Mongo users.
type Notification struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Type        string    `json:"type" gorm:"size:30;index"`
	ActorID     string    `json:"actor_id" gorm:"size:24;index"`
	RecipientID string    `json:"recipient_id" gorm:"size:24;index"`
	TargetID    string    `json:"target_id"`
	TargetType  string    `json:"target_type" gorm:"size:20"`
	Message     string    `json:"message"`
	IsRead      bool      `json:"is_read" gorm:"default:false;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}
