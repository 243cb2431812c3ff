package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/solodesk/internal/apperr"
	"github.com/diewo77/solodesk/internal/models"
	"github.com/diewo77/solodesk/internal/policy"
	"github.com/diewo77/solodesk/validation"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InvoiceItemInput is one line item as sent by the client. Numbers may be JSON numbers or numeric strings.
type InvoiceItemInput struct {
	Description string `json:"description"`
	Quantity    any    `json:"quantity"`
	Rate        any    `json:"rate"`
	Amount      any    `json:"amount"`
	TaskID      *uint  `json:"taskId"`
}

// InvoiceInput carries the writable invoice fields. Nil fields are left untouched on update.
type InvoiceInput struct {
	Number      *string             `json:"number"`
	ClientName  *string             `json:"clientName"`
	ClientEmail *string             `json:"clientEmail"`
	ProjectID   *uint               `json:"projectId"`
	Amount      any                 `json:"amount"`
	Tax         any                 `json:"tax"`
	Discount    any                 `json:"discount"`
	Total       any                 `json:"total"`
	Currency    *string             `json:"currency"`
	Status      *string             `json:"status"`
	IssueDate   *time.Time          `json:"issueDate"`
	DueDate     *time.Time          `json:"dueDate"`
	PaidDate    *time.Time          `json:"paidDate"`
	Notes       *string             `json:"notes"`
	Items       *[]InvoiceItemInput `json:"items"`
}

// InvoiceFilter holds the list query parameters.
type InvoiceFilter struct {
	Search    string
	Status    string
	ProjectID uint
	SortBy    string
	SortOrder string
}

var invoiceSortColumns = map[string]string{
	"number":     "number",
	"clientName": "client_name",
	"total":      "total",
	"status":     "status",
	"issueDate":  "issue_date",
	"dueDate":    "due_date",
	"createdAt":  "created_at",
}

type InvoiceService struct {
	DB  *gorm.DB
	Now Clock
}

func NewInvoiceService(db *gorm.DB) *InvoiceService {
	return &InvoiceService{DB: db, Now: utcNow}
}

// CoerceAmount converts a JSON number or numeric string to a float without rounding.
// ok is false for any other value; a nil value yields present=false.
func CoerceAmount(raw any) (value float64, present, ok bool) {
	var d decimal.Decimal
	switch v := raw.(type) {
	case nil:
		return 0, false, true
	case float64:
		d = decimal.NewFromFloat(v)
	case int:
		d = decimal.NewFromInt(int64(v))
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return 0, true, false
		}
		d = parsed
	default:
		return 0, true, false
	}
	f, _ := d.Float64()
	return f, true, true
}

func coerceInto(field string, raw any, dst *float64, v validation.Violations) bool {
	f, present, ok := CoerceAmount(raw)
	if !ok {
		v[field] = "must_be_numeric"
		return false
	}
	if present {
		*dst = f
	}
	return present
}

func (in InvoiceInput) apply(inv *models.Invoice, v validation.Violations) {
	if in.Number != nil {
		inv.Number = strings.TrimSpace(*in.Number)
	}
	if in.ClientName != nil {
		inv.ClientName = strings.TrimSpace(*in.ClientName)
	}
	if in.ClientEmail != nil {
		inv.ClientEmail = strings.ToLower(strings.TrimSpace(*in.ClientEmail))
	}
	if in.ProjectID != nil {
		if *in.ProjectID == 0 {
			inv.ProjectID = nil
		} else {
			inv.ProjectID = ptrUint(*in.ProjectID)
		}
	}
	coerceInto("amount", in.Amount, &inv.Amount, v)
	coerceInto("tax", in.Tax, &inv.Tax, v)
	coerceInto("discount", in.Discount, &inv.Discount, v)
	coerceInto("total", in.Total, &inv.Total, v)
	if in.Currency != nil {
		inv.Currency = strings.ToUpper(strings.TrimSpace(*in.Currency))
	}
	if in.Status != nil {
		inv.Status = models.InvoiceStatus(*in.Status)
	}
	if in.IssueDate != nil {
		inv.IssueDate = in.IssueDate.UTC()
	}
	if in.DueDate != nil {
		inv.DueDate = utcPtr(in.DueDate)
	}
	if in.PaidDate != nil {
		inv.PaidDate = utcPtr(in.PaidDate)
	}
	if in.Notes != nil {
		inv.Notes = *in.Notes
	}
	if in.Items != nil {
		items := make(datatypes.JSONSlice[models.InvoiceItem], 0, len(*in.Items))
		for i, it := range *in.Items {
			item := models.InvoiceItem{Description: it.Description, TaskID: it.TaskID}
			coerceInto(fmt.Sprintf("items[%d].quantity", i), it.Quantity, &item.Quantity, v)
			coerceInto(fmt.Sprintf("items[%d].rate", i), it.Rate, &item.Rate, v)
			coerceInto(fmt.Sprintf("items[%d].amount", i), it.Amount, &item.Amount, v)
			items = append(items, item)
		}
		inv.Items = items
	}
}

func validateInvoice(inv *models.Invoice, v validation.Violations) {
	validation.Required("clientName", inv.ClientName, v)
	validation.Required("clientEmail", inv.ClientEmail, v)
	validation.Email("clientEmail", inv.ClientEmail, v)
	validation.OneOf("status", string(inv.Status), models.InvoiceStatuses, v)
	validation.NonNegativeFloat("amount", inv.Amount, v)
	validation.NonNegativeFloat("tax", inv.Tax, v)
	validation.NonNegativeFloat("discount", inv.Discount, v)
	validation.NonNegativeFloat("total", inv.Total, v)
	if inv.Currency != "" && len(inv.Currency) != 3 {
		v["currency"] = "invalid_currency"
	}
	for i, it := range inv.Items {
		validation.Required(fmt.Sprintf("items[%d].description", i), it.Description, v)
	}
}

func (s *InvoiceService) numberTaken(tx *gorm.DB, userID uint, number string, exceptID uint) (bool, error) {
	var count int64
	q := tx.Model(&models.Invoice{}).Where("user_id = ? AND number = ?", userID, number)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

func (s *InvoiceService) ownedProject(tx *gorm.DB, userID uint, projectID *uint) error {
	if projectID == nil {
		return nil
	}
	var count int64
	if err := tx.Model(&models.Project{}).Scopes(policy.ByIDOwnedBy(*projectID, userID)).Count(&count).Error; err != nil {
		return apperr.Dependency("failed to check project", err)
	}
	if count == 0 {
		return apperr.NotFound("Project not found")
	}
	return nil
}

func invoiceSentNotification(inv *models.Invoice) *models.Notification {
	return &models.Notification{
		UserID:        inv.UserID,
		Type:          models.NotificationInvoiceSent,
		Title:         "Invoice sent",
		Message:       fmt.Sprintf("Invoice %s was sent to %s", inv.Number, inv.ClientName),
		RelatedEntity: models.EntityRef{Type: models.EntityInvoice, ID: inv.ID},
		Priority:      models.NotificationPriorityLow,
	}
}

// Create stores a new invoice. An empty number is generated as INV-<year>-<seq>.
// When total is omitted it defaults to amount + tax - discount; items never affect it.
func (s *InvoiceService) Create(ctx context.Context, userID uint, in InvoiceInput) (*models.Invoice, error) {
	inv := models.Invoice{UserID: userID}
	v := make(validation.Violations)
	in.apply(&inv, v)
	if in.Total == nil {
		inv.Total, _ = decimal.NewFromFloat(inv.Amount).
			Add(decimal.NewFromFloat(inv.Tax)).
			Sub(decimal.NewFromFloat(inv.Discount)).
			Round(2).Float64()
	}
	if inv.IssueDate.IsZero() {
		inv.IssueDate = s.Now()
	}
	validateInvoice(&inv, v)
	if !v.Empty() {
		return nil, apperr.Invalid("Invalid invoice", v)
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ownedProject(tx, userID, inv.ProjectID); err != nil {
			return err
		}
		if inv.Number == "" {
			number, err := models.GenerateInvoiceNumber(tx, userID, inv.IssueDate.Year())
			if err != nil {
				return apperr.Dependency("failed to generate invoice number", err)
			}
			inv.Number = number
		}
		taken, err := s.numberTaken(tx, userID, inv.Number, 0)
		if err != nil {
			return apperr.Dependency("failed to check invoice number", err)
		}
		if taken {
			return apperr.Conflict("Invoice number already exists")
		}
		if err := tx.Create(&inv).Error; err != nil {
			if isDuplicate(err) {
				return apperr.Conflict("Invoice number already exists")
			}
			return apperr.Dependency("failed to create invoice", err)
		}
		if inv.Status == models.InvoiceStatusPending {
			return notify(tx, invoiceSentNotification(&inv))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Get loads one owned invoice.
func (s *InvoiceService) Get(ctx context.Context, userID, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	if err := s.DB.WithContext(ctx).Scopes(policy.ByIDOwnedBy(id, userID)).First(&inv).Error; err != nil {
		return nil, lookupErr(err, "Invoice not found")
	}
	return &inv, nil
}

// List returns the owner's invoices matching f.
func (s *InvoiceService) List(ctx context.Context, userID uint, f InvoiceFilter) ([]models.Invoice, error) {
	q := s.DB.WithContext(ctx).Scopes(policy.OwnedBy(userID))
	if f.Search != "" {
		p := likePattern(f.Search)
		q = q.Where("LOWER(number) LIKE ? OR LOWER(client_name) LIKE ? OR LOWER(client_email) LIKE ?", p, p, p)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ProjectID != 0 {
		q = q.Where("project_id = ?", f.ProjectID)
	}
	col, ok := invoiceSortColumns[f.SortBy]
	if !ok {
		col = "issue_date"
	}
	invoices := []models.Invoice{}
	if err := q.Order(col + " " + sortDirection(f.SortOrder)).Order("id DESC").Find(&invoices).Error; err != nil {
		return nil, apperr.Dependency("failed to list invoices", err)
	}
	return invoices, nil
}

// Update applies in to an owned invoice. Moving to pending emits invoice_sent; moving to paid
// stamps paidDate when absent.
func (s *InvoiceService) Update(ctx context.Context, userID, id uint, in InvoiceInput) (*models.Invoice, error) {
	var inv *models.Invoice
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var loaded models.Invoice
		if err := tx.Scopes(policy.ByIDOwnedBy(id, userID)).First(&loaded).Error; err != nil {
			return lookupErr(err, "Invoice not found")
		}
		inv = &loaded
		prevStatus := inv.Status
		prevProject := inv.ProjectID
		v := make(validation.Violations)
		in.apply(inv, v)
		validateInvoice(inv, v)
		if inv.Number == "" {
			v["number"] = "required"
		}
		if !v.Empty() {
			return apperr.Invalid("Invalid invoice", v)
		}
		if inv.ProjectID != nil && (prevProject == nil || *prevProject != *inv.ProjectID) {
			if err := s.ownedProject(tx, userID, inv.ProjectID); err != nil {
				return err
			}
		}
		taken, err := s.numberTaken(tx, userID, inv.Number, inv.ID)
		if err != nil {
			return apperr.Dependency("failed to check invoice number", err)
		}
		if taken {
			return apperr.Conflict("Invoice number already exists")
		}
		if inv.Status == models.InvoiceStatusPaid && inv.PaidDate == nil {
			inv.PaidDate = ptrTime(s.Now())
		}
		if err := tx.Save(inv).Error; err != nil {
			if isDuplicate(err) {
				return apperr.Conflict("Invoice number already exists")
			}
			return apperr.Dependency("failed to update invoice", err)
		}
		if prevStatus != inv.Status && inv.Status == models.InvoiceStatusPending {
			return notify(tx, invoiceSentNotification(inv))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// Delete removes an owned invoice. Invoices with a receipt are kept.
func (s *InvoiceService) Delete(ctx context.Context, userID, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var receipts int64
		if err := tx.Model(&models.Receipt{}).Where("invoice_id = ? AND user_id = ?", id, userID).Count(&receipts).Error; err != nil {
			return apperr.Dependency("failed to check receipts", err)
		}
		if receipts > 0 {
			return apperr.Invalid("Cannot delete an invoice that has a receipt", nil)
		}
		res := tx.Scopes(policy.ByIDOwnedBy(id, userID)).Delete(&models.Invoice{})
		if res.Error != nil {
			return apperr.Dependency("failed to delete invoice", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("Invoice not found")
		}
		return nil
	})
}
