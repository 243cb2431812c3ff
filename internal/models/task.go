package models

import (
	"time"

	"gorm.io/gorm"
)

// Task is a unit of work inside exactly one project.
type Task struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	UserID    uint     `gorm:"index;not null" json:"userId"`
	ProjectID uint     `gorm:"index;not null" json:"projectId"`
	Project   *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`

	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	Completed   bool       `gorm:"index;not null" json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CompletedBy *uint      `json:"completedBy,omitempty"`

	DueDate        *time.Time `gorm:"index" json:"dueDate,omitempty"`
	Priority       Priority   `gorm:"size:10;not null" json:"priority"`
	Type           TaskType   `gorm:"size:20;not null" json:"type"`
	EstimatedHours float64    `json:"estimatedHours"`
	ActualHours    float64    `json:"actualHours"`
	AssignedTo     string     `gorm:"size:255" json:"assignedTo,omitempty"`
	// order is a reserved word in SQL
	Order int `gorm:"column:sort_order;not null;default:0" json:"order"`

	IsArchived bool       `gorm:"index;not null" json:"isArchived"`
	ArchivedAt *time.Time `json:"archivedAt,omitempty"`
	ArchivedBy *uint      `json:"archivedBy,omitempty"`

	History []HistoryEntry `gorm:"polymorphic:Entity;polymorphicValue:task" json:"history,omitempty"`
}

// IsOverdue reports whether an open task is past its due date.
func (t *Task) IsOverdue(now time.Time) bool {
	return !t.Completed && t.DueDate != nil && t.DueDate.Before(now)
}

// BeforeSave fills enum defaults.
func (t *Task) BeforeSave(_ *gorm.DB) error {
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Type == "" {
		t.Type = TaskTypeTask
	}
	return nil
}
