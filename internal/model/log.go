package model

import "time"

// NotificationEvent is a security or access notification kept in the event log.
type NotificationEvent struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	EventType string    `json:"event_type" gorm:"index;not null"`
	Details   string    `json:"details"`
	SourceIP  string    `json:"source_ip"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}
