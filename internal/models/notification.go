package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification is a per-user event record.
// Lifecycle: unread -> read -> archived (30 days after being read).
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	UserID        uint             `gorm:"index;not null" json:"userId"`
	Type          NotificationType `gorm:"size:40;not null;index" json:"type"`
	Title         string           `gorm:"size:255;not null" json:"title"`
	Message       string           `gorm:"type:text" json:"message"`
	RelatedEntity EntityRef        `gorm:"embedded;embeddedPrefix:related_" json:"relatedEntity"`
	Priority      string           `gorm:"size:10;not null" json:"priority"`

	IsRead     bool       `gorm:"index;not null" json:"isRead"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
	IsArchived bool       `gorm:"index;not null" json:"isArchived"`
	ArchivedAt *time.Time `json:"archivedAt,omitempty"`
}

// BeforeSave fills the default priority.
func (n *Notification) BeforeSave(_ *gorm.DB) error {
	if n.Priority == "" {
		n.Priority = NotificationPriorityMedium
	}
	return nil
}
