package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Project is a unit of billable work for one client.
// Progress is a cache recomputed from tasks on every detail fetch.
type Project struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// UserID is the owner of this project
	UserID uint `gorm:"index;not null" json:"userId"`

	Name        string  `gorm:"size:255;not null" json:"name"`
	Description string  `gorm:"type:text" json:"description,omitempty"`
	ClientID    uint    `gorm:"index;not null" json:"clientId"`
	Client      *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	Status   ProjectStatus `gorm:"size:20;not null;index" json:"status"`
	Priority Priority      `gorm:"size:10;not null" json:"priority"`

	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	DueDate     *time.Time `gorm:"index" json:"dueDate,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	Budget     float64 `json:"budget"`
	HourlyRate float64 `json:"hourlyRate"`
	Progress   int     `gorm:"not null;default:0" json:"progress"`

	Tags        datatypes.JSONSlice[string]     `json:"tags"`
	Notes       datatypes.JSONSlice[Note]       `json:"notes"`
	Attachments datatypes.JSONSlice[Attachment] `json:"attachments"`

	IsArchived bool       `gorm:"index;not null" json:"isArchived"`
	ArchivedAt *time.Time `json:"archivedAt,omitempty"`
	ArchivedBy *uint      `json:"archivedBy,omitempty"`

	History []HistoryEntry `gorm:"polymorphic:Entity;polymorphicValue:project" json:"history,omitempty"`
	Tasks   []Task         `gorm:"foreignKey:ProjectID" json:"tasks,omitempty"`
}

// IsCompleted reports whether the project reached the Completed status.
func (p *Project) IsCompleted() bool {
	return p.Status == ProjectStatusCompleted
}

// BeforeSave fills enum defaults and empty JSON lists.
func (p *Project) BeforeSave(_ *gorm.DB) error {
	if p.Status == "" {
		p.Status = ProjectStatusNotStarted
	}
	if p.Priority == "" {
		p.Priority = PriorityMedium
	}
	if p.Tags == nil {
		p.Tags = datatypes.JSONSlice[string]{}
	}
	if p.Notes == nil {
		p.Notes = datatypes.JSONSlice[Note]{}
	}
	if p.Attachments == nil {
		p.Attachments = datatypes.JSONSlice[Attachment]{}
	}
	return nil
}
