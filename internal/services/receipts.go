package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/diewo77/solodesk/internal/apperr"
	"github.com/diewo77/solodesk/internal/mailer"
	"github.com/diewo77/solodesk/internal/models"
	"github.com/diewo77/solodesk/internal/policy"
	"github.com/diewo77/solodesk/validation"
	"gorm.io/gorm"
)

const (
	// receiptNumberAttempts bounds the search for a free random receipt number.
	receiptNumberAttempts = 10
	// DefaultPaymentMethod is stored when the caller gives none.
	DefaultPaymentMethod = "bank_transfer"
)

// ReceiptInput is the body of a receipt creation request.
type ReceiptInput struct {
	InvoiceID     uint       `json:"invoiceId"`
	Amount        any        `json:"amount"`
	PaymentMethod string     `json:"paymentMethod"`
	PaymentDate   *time.Time `json:"paymentDate"`
	Notes         string     `json:"notes"`
}

// ReceiptFilter holds the list query parameters.
type ReceiptFilter struct {
	InvoiceID uint
	ClientID  uint
	From      *time.Time
	To        *time.Time
}

// ReceiptService records payments against invoices and e-mails receipts.
type ReceiptService struct {
	DB        *gorm.DB
	Mailer    mailer.Sender
	Templates TemplateStore
	Now       Clock
	// NextNumber proposes a receipt number; uniqueness is checked by the caller.
	NextNumber      func(year int) string
	TemplateTimeout time.Duration
}

func NewReceiptService(db *gorm.DB, m mailer.Sender) *ReceiptService {
	return &ReceiptService{
		DB:              db,
		Mailer:          m,
		Templates:       GormTemplateStore{DB: db},
		Now:             utcNow,
		NextNumber:      RandomReceiptNumber,
		TemplateTimeout: TemplateLookupTimeout,
	}
}

// RandomReceiptNumber returns RCP-<year>-<4 random digits>.
func RandomReceiptNumber(year int) string {
	return fmt.Sprintf("RCP-%d-%04d", year, rand.IntN(10000))
}

func (s *ReceiptService) uniqueNumber(tx *gorm.DB, year int) (string, error) {
	for i := 0; i < receiptNumberAttempts; i++ {
		candidate := s.NextNumber(year)
		var count int64
		if err := tx.Model(&models.Receipt{}).Where("receipt_number = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free receipt number after %d attempts", receiptNumberAttempts)
}

// Create records the payment of an owned invoice: it refuses a second receipt for the same invoice,
// resolves the client by the invoice's client email, marks the invoice paid and emits payment_received.
func (s *ReceiptService) Create(ctx context.Context, userID uint, in ReceiptInput) (*models.Receipt, error) {
	v := make(validation.Violations)
	if in.InvoiceID == 0 {
		v["invoiceId"] = "required"
	}
	amount, hasAmount, ok := CoerceAmount(in.Amount)
	if !ok {
		v["amount"] = "must_be_numeric"
	} else if hasAmount {
		validation.PositiveFloat("amount", amount, v)
	}
	if !v.Empty() {
		return nil, apperr.Invalid("Invalid receipt", v)
	}

	now := s.Now()
	var rcpt models.Receipt
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.Scopes(policy.ByIDOwnedBy(in.InvoiceID, userID)).First(&inv).Error; err != nil {
			return lookupErr(err, "Invoice not found")
		}

		var existing int64
		if err := tx.Model(&models.Receipt{}).Where("invoice_id = ?", inv.ID).Count(&existing).Error; err != nil {
			return apperr.Dependency("failed to check existing receipts", err)
		}
		if existing > 0 {
			return apperr.Conflict("Receipt already exists for this invoice")
		}

		// Clients are linked by e-mail only; renaming a client's e-mail breaks this lookup.
		var client models.Client
		err := tx.Where("user_id = ? AND email = ?", userID, strings.ToLower(strings.TrimSpace(inv.ClientEmail))).First(&client).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Invalid("Client not found for invoice with email: "+inv.ClientEmail, nil)
			}
			return apperr.Dependency("failed to resolve client", err)
		}

		paymentDate := now
		if in.PaymentDate != nil {
			paymentDate = in.PaymentDate.UTC()
		}
		number, err := s.uniqueNumber(tx, paymentDate.Year())
		if err != nil {
			return apperr.Dependency("failed to generate receipt number", err)
		}
		if !hasAmount {
			amount = inv.Total
		}
		method := strings.TrimSpace(in.PaymentMethod)
		if method == "" {
			method = DefaultPaymentMethod
		}
		rcpt = models.Receipt{
			UserID:        userID,
			ReceiptNumber: number,
			InvoiceID:     inv.ID,
			ClientID:      client.ID,
			Amount:        amount,
			Currency:      inv.Currency,
			PaymentMethod: method,
			PaymentDate:   paymentDate,
			Notes:         in.Notes,
		}
		if err := tx.Omit("Invoice").Create(&rcpt).Error; err != nil {
			if isDuplicate(err) {
				return apperr.Conflict("Receipt number already exists")
			}
			return apperr.Dependency("failed to create receipt", err)
		}

		err = tx.Model(&models.Invoice{}).Where("id = ?", inv.ID).UpdateColumns(map[string]any{
			"status":     models.InvoiceStatusPaid,
			"paid_date":  paymentDate,
			"updated_at": now,
		}).Error
		if err != nil {
			return apperr.Dependency("failed to mark invoice as paid", err)
		}
		inv.Status = models.InvoiceStatusPaid
		inv.PaidDate = ptrTime(paymentDate)
		rcpt.Invoice = &inv

		return notify(tx, &models.Notification{
			UserID:        userID,
			Type:          models.NotificationPaymentReceived,
			Title:         "Payment received",
			Message:       fmt.Sprintf("Payment of %.2f %s received for invoice %s", amount, inv.Currency, inv.Number),
			RelatedEntity: models.EntityRef{Type: models.EntityReceipt, ID: rcpt.ID},
			Priority:      models.NotificationPriorityMedium,
		})
	})
	if err != nil {
		return nil, err
	}
	return &rcpt, nil
}

// Get loads one owned receipt with its invoice.
func (s *ReceiptService) Get(ctx context.Context, userID, id uint) (*models.Receipt, error) {
	var r models.Receipt
	err := s.DB.WithContext(ctx).Preload("Invoice").
		Scopes(policy.ByIDOwnedBy(id, userID)).First(&r).Error
	if err != nil {
		return nil, lookupErr(err, "Receipt not found")
	}
	return &r, nil
}

// List returns the owner's receipts, newest payment first.
func (s *ReceiptService) List(ctx context.Context, userID uint, f ReceiptFilter) ([]models.Receipt, error) {
	q := s.DB.WithContext(ctx).Scopes(policy.OwnedBy(userID))
	if f.InvoiceID != 0 {
		q = q.Where("invoice_id = ?", f.InvoiceID)
	}
	if f.ClientID != 0 {
		q = q.Where("client_id = ?", f.ClientID)
	}
	if f.From != nil {
		q = q.Where("payment_date >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("payment_date <= ?", f.To.UTC())
	}
	receipts := []models.Receipt{}
	if err := q.Preload("Invoice").Order("payment_date DESC, id DESC").Find(&receipts).Error; err != nil {
		return nil, apperr.Dependency("failed to list receipts", err)
	}
	return receipts, nil
}

// Send renders the owner's receipt template (or the default one) and e-mails it to the
// invoice's client address, then stamps emailSentAt.
func (s *ReceiptService) Send(ctx context.Context, userID, id uint) (*models.Receipt, error) {
	r, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if r.Invoice == nil {
		return nil, apperr.NotFound("Invoice not found")
	}
	tmpl := lookupTemplate(ctx, s.Templates, userID, models.TemplateTypeReceipt, s.TemplateTimeout, DefaultReceiptTemplate)
	data := ReceiptEmailData{
		ReceiptNumber: r.ReceiptNumber,
		InvoiceNumber: r.Invoice.Number,
		ClientName:    r.Invoice.ClientName,
		Amount:        r.Amount,
		Currency:      r.Currency,
		PaymentMethod: r.PaymentMethod,
		PaymentDate:   r.PaymentDate,
		Notes:         r.Notes,
	}
	subject, body, err := renderEmail(tmpl, data)
	if err != nil {
		// owner template failed to parse or execute
		subject, body, err = renderEmail(DefaultReceiptTemplate, data)
		if err != nil {
			return nil, apperr.Dependency("failed to render receipt email", err)
		}
	}
	if err := s.Mailer.Send(ctx, mailer.Message{To: r.Invoice.ClientEmail, Subject: subject, HTML: body}); err != nil {
		return nil, apperr.Dependency("failed to send receipt email", err)
	}
	now := s.Now()
	if err := s.DB.WithContext(ctx).Model(&models.Receipt{}).Where("id = ?", r.ID).
		UpdateColumns(map[string]any{"email_sent_at": now, "updated_at": now}).Error; err != nil {
		return nil, apperr.Dependency("failed to update receipt", err)
	}
	r.EmailSentAt = ptrTime(now)
	return r, nil
}
