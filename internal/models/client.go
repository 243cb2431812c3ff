package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Client represents a customer record owned by one user.
// The (user_id, email) pair is unique.
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// UserID is the owner of this client
	UserID uint `gorm:"not null;uniqueIndex:idx_client_owner_email" json:"userId"`

	Name    string       `gorm:"size:255;not null;index" json:"name"`
	Email   string       `gorm:"size:255;not null;uniqueIndex:idx_client_owner_email" json:"email"`
	Phone   string       `gorm:"size:50" json:"phone,omitempty"`
	Company string       `gorm:"size:255" json:"company,omitempty"`
	Address string       `gorm:"size:500" json:"address,omitempty"`
	Type    ClientType   `gorm:"size:20;not null" json:"type"`
	Status  ClientStatus `gorm:"size:20;not null;index" json:"status"`

	Tags          datatypes.JSONSlice[string]     `json:"tags"`
	Notes         datatypes.JSONSlice[Note]       `json:"notes"`
	Attachments   datatypes.JSONSlice[Attachment] `json:"attachments"`
	Links         datatypes.JSONSlice[Link]       `json:"links"`
	LastContacted *time.Time                      `json:"lastContacted,omitempty"`
}

// BeforeSave normalises the email and fills enum defaults.
func (c *Client) BeforeSave(_ *gorm.DB) error {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	if c.Type == "" {
		c.Type = ClientTypeIndividual
	}
	if c.Status == "" {
		c.Status = ClientStatusLead
	}
	if c.Tags == nil {
		c.Tags = datatypes.JSONSlice[string]{}
	}
	if c.Notes == nil {
		c.Notes = datatypes.JSONSlice[Note]{}
	}
	if c.Attachments == nil {
		c.Attachments = datatypes.JSONSlice[Attachment]{}
	}
	if c.Links == nil {
		c.Links = datatypes.JSONSlice[Link]{}
	}
	return nil
}
