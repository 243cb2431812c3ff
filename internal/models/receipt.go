package models

import "time"

// Receipt records the payment of one invoice. At most one receipt exists per invoice.
type Receipt struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	UserID        uint     `gorm:"index;not null" json:"userId"`
	ReceiptNumber string   `gorm:"size:20;uniqueIndex;not null" json:"receiptNumber"`
	InvoiceID     uint     `gorm:"index;not null" json:"invoiceId"`
	Invoice       *Invoice `gorm:"foreignKey:InvoiceID" json:"invoice,omitempty"`
	// ClientID is resolved from the invoice's client email at creation time.
	ClientID uint `gorm:"index;not null" json:"clientId"`

	Amount        float64   `gorm:"not null" json:"amount"`
	Currency      string    `gorm:"size:3;not null" json:"currency"`
	PaymentMethod string    `gorm:"size:50;not null" json:"paymentMethod"`
	PaymentDate   time.Time `gorm:"not null;index" json:"paymentDate"`
	Notes         string    `gorm:"type:text" json:"notes,omitempty"`

	EmailSentAt *time.Time `json:"emailSentAt,omitempty"`
}
