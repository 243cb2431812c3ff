package models

import "time"

// HistoryEntry is one append-only audit row attached to a project or a task.
// Rows are never updated or deleted.
type HistoryEntry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	EntityType  string    `gorm:"size:20;not null;index:idx_history_entity" json:"entityType"`
	EntityID    uint      `gorm:"not null;index:idx_history_entity" json:"entityId"`
	Action      string    `gorm:"size:50;not null" json:"action"`
	Description string    `gorm:"size:500" json:"description"`
	Reason      string    `gorm:"size:255" json:"reason,omitempty"`
	PerformedBy uint      `json:"performedBy"`
	PerformedAt time.Time `gorm:"not null" json:"performedAt"`
}

// History actions.
const (
	ActionCreated       = "created"
	ActionUpdated       = "updated"
	ActionStatusChanged = "status_changed"
	ActionArchived      = "archived"
	ActionCompleted     = "completed"
	ActionReopened      = "reopened"
	ActionNoteAdded     = "note_added"
)

// ReasonProjectArchived tags task history rows written by the project cascade.
const ReasonProjectArchived = "archived due to project deletion"
