package models

import "time"

// Note is an entry of the ordered notes list kept on clients and projects.
type Note struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Attachment is file metadata returned by the upload endpoint.
type Attachment struct {
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Size       int64     `json:"size,omitempty"`
	MimeType   string    `json:"mimeType,omitempty"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Link is a titled URL on a client record.
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// EntityRef is a polymorphic pointer to another record.
type EntityRef struct {
	Type string `gorm:"size:20" json:"type,omitempty"`
	ID   uint   `json:"id,omitempty"`
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{
		&User{}, &Client{}, &Project{}, &Task{}, &HistoryEntry{},
		&Invoice{}, &Receipt{}, &Notification{}, &EmailTemplate{},
	}
}
