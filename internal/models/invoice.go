package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Invoice represents a billing document.
// Client details are denormalized; there is no stored client reference.
type Invoice struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// UserID is the owner of this invoice
	UserID uint `gorm:"not null;uniqueIndex:idx_invoice_owner_number" json:"userId"`

	// Number is unique per owner.
	Number string `gorm:"size:50;not null;uniqueIndex:idx_invoice_owner_number" json:"number"`

	ClientName  string `gorm:"size:255;not null" json:"clientName"`
	ClientEmail string `gorm:"size:255;not null;index" json:"clientEmail"`
	ProjectID   *uint  `gorm:"index" json:"projectId,omitempty"`

	// Amounts as supplied by the caller; Total is never derived from Items.
	Amount   float64 `json:"amount"`
	Tax      float64 `json:"tax"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
	Currency string  `gorm:"size:3;not null" json:"currency"`

	Status    InvoiceStatus `gorm:"size:20;not null;index" json:"status"`
	IssueDate time.Time     `gorm:"not null;index" json:"issueDate"`
	DueDate   *time.Time    `gorm:"index" json:"dueDate,omitempty"`
	PaidDate  *time.Time    `json:"paidDate,omitempty"`

	Notes string                           `gorm:"type:text" json:"notes,omitempty"`
	Items datatypes.JSONSlice[InvoiceItem] `json:"items"`
}

// InvoiceItem represents a line item on an invoice.
type InvoiceItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount"`
	TaskID      *uint   `json:"taskId,omitempty"`
}

// IsDraft returns true if the invoice is in draft status.
func (i *Invoice) IsDraft() bool {
	return i.Status == InvoiceStatusDraft
}

// IsPaid returns true once a payment was recorded.
func (i *Invoice) IsPaid() bool {
	return i.Status == InvoiceStatusPaid
}

// IsOverdue reports whether an unpaid, issued invoice is past due.
func (i *Invoice) IsOverdue(now time.Time) bool {
	if i.Status == InvoiceStatusOverdue {
		return true
	}
	return i.Status == InvoiceStatusPending && i.DueDate != nil && i.DueDate.Before(now)
}

// BeforeSave fills defaults.
func (i *Invoice) BeforeSave(_ *gorm.DB) error {
	if i.Status == "" {
		i.Status = InvoiceStatusDraft
	}
	if i.Currency == "" {
		i.Currency = "USD"
	}
	if i.IssueDate.IsZero() {
		i.IssueDate = time.Now().UTC()
	}
	if i.Items == nil {
		i.Items = datatypes.JSONSlice[InvoiceItem]{}
	}
	return nil
}

// GenerateInvoiceNumber generates the next invoice number for a user.
// Format: INV-YYYY-NNNN (e.g., INV-2025-0001)
func GenerateInvoiceNumber(db *gorm.DB, userID uint, year int) (string, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	var count int64
	err := db.Model(&Invoice{}).
		Where("user_id = ? AND issue_date >= ? AND issue_date < ?", userID, start, start.AddDate(1, 0, 0)).
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("INV-%d-%04d", year, count+1), nil
}
