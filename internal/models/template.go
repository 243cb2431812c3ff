package models

import "time"

// EmailTemplate holds an owner-specific e-mail layout rendered with text/template.
type EmailTemplate struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	UserID    uint   `gorm:"index;not null" json:"userId"`
	Type      string `gorm:"size:50;not null;index" json:"type"` // ex: "receipt"
	Name      string `gorm:"size:255" json:"name"`
	Subject   string `gorm:"size:255;not null" json:"subject"`
	Body      string `gorm:"type:text;not null" json:"body"`
	IsDefault bool   `json:"isDefault"`
}

// TemplateTypeReceipt is used when e-mailing receipts.
const TemplateTypeReceipt = "receipt"
