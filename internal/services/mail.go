package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"log"
	texttemplate "text/template"
	"time"

	"github.com/diewo77/solodesk/internal/models"
	"gorm.io/gorm"
)

// TemplateLookupTimeout bounds the e-mail template lookup before falling back to the default.
const TemplateLookupTimeout = 5 * time.Second

// DefaultReceiptTemplate is used when the owner has no receipt template or the lookup fails.
var DefaultReceiptTemplate = models.EmailTemplate{
	Type:    models.TemplateTypeReceipt,
	Name:    "Default receipt",
	Subject: "Receipt {{.ReceiptNumber}} for invoice {{.InvoiceNumber}}",
	Body: `<p>Hello {{.ClientName}},</p>
<p>We received your payment of {{printf "%.2f" .Amount}} {{.Currency}} on {{.PaymentDate.Format "2006-01-02"}} for invoice {{.InvoiceNumber}}.</p>
<p>Receipt number: <strong>{{.ReceiptNumber}}</strong><br>Payment method: {{.PaymentMethod}}</p>
{{if .Notes}}<p>{{.Notes}}</p>{{end}}
<p>Thank you for your business.</p>`,
	IsDefault: true,
}

// TemplateStore finds an owner's e-mail template of a given type.
type TemplateStore interface {
	FindTemplate(ctx context.Context, userID uint, typ string) (*models.EmailTemplate, error)
}

// GormTemplateStore reads email_templates, preferring the owner's default template.
type GormTemplateStore struct {
	DB *gorm.DB
}

func (s GormTemplateStore) FindTemplate(ctx context.Context, userID uint, typ string) (*models.EmailTemplate, error) {
	var t models.EmailTemplate
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND type = ?", userID, typ).
		Order("is_default DESC, updated_at DESC").
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// lookupTemplate returns the owner's template, or fallback when the store fails,
// finds nothing, or does not answer within timeout.
func lookupTemplate(ctx context.Context, store TemplateStore, userID uint, typ string, timeout time.Duration, fallback models.EmailTemplate) models.EmailTemplate {
	if store == nil {
		return fallback
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		t   *models.EmailTemplate
		err error
	}
	ch := make(chan result, 1)
	go func() {
		t, err := store.FindTemplate(ctx, userID, typ)
		ch <- result{t, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			if !errors.Is(r.err, gorm.ErrRecordNotFound) {
				log.Printf("[mail] template lookup failed for user %d: %v, using default", userID, r.err)
			}
			return fallback
		}
		return *r.t
	case <-ctx.Done():
		log.Printf("[mail] template lookup timed out for user %d, using default", userID)
		return fallback
	}
}

// ReceiptEmailData is the data available to receipt templates.
type ReceiptEmailData struct {
	ReceiptNumber string
	InvoiceNumber string
	ClientName    string
	Amount        float64
	Currency      string
	PaymentMethod string
	PaymentDate   time.Time
	Notes         string
}

// renderEmail executes a template; the subject is plain text and the body is HTML-escaped.
func renderEmail(t models.EmailTemplate, data any) (subject, body string, err error) {
	st, err := texttemplate.New("subject").Parse(t.Subject)
	if err != nil {
		return "", "", fmt.Errorf("parse subject: %w", err)
	}
	bt, err := htmltemplate.New("body").Parse(t.Body)
	if err != nil {
		return "", "", fmt.Errorf("parse body: %w", err)
	}
	var sb, bb bytes.Buffer
	if err := st.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}
	if err := bt.Execute(&bb, data); err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}
	return sb.String(), bb.String(), nil
}
