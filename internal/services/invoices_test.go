package services

import (
	"testing"

	"github.com/diewo77/solodesk/internal/apperr"
	"github.com/diewo77/solodesk/internal/models"
	"github.com/diewo77/solodesk/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceAmount(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		want    float64
		present bool
		ok      bool
	}{
		{"nil", nil, 0, false, true},
		{"number", 1000.0, 1000, true, true},
		{"int", 12, 12, true, true},
		{"numeric string", "1250.50", 1250.5, true, true},
		{"padded string", " 99.999 ", 99.999, true, true},
		{"fractional hours", 0.125, 0.125, true, true},
		{"precise rate", "1.3333", 1.3333, true, true},
		{"word", "ten", 0, true, false},
		{"bool", true, 0, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, present, ok := CoerceAmount(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.present, present)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateInvoiceGeneratesNumber(t *testing.T) {
	f := newFixture(t)
	inv, err := f.invoices.Create(f.ctx, f.user.ID, InvoiceInput{
		ClientName: strPtr("Acme Co"), ClientEmail: strPtr("a@acme.com"),
		Amount: "1000", Tax: 200.0, Discount: "50",
		Items: &[]InvoiceItemInput{{Description: "Design", Quantity: "10", Rate: 100.0, Amount: "999"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-0001", inv.Number)
	assert.Equal(t, models.InvoiceStatusDraft, inv.Status)
	assert.Equal(t, "USD", inv.Currency)
	assert.Equal(t, 1150.0, inv.Total)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, 10.0, inv.Items[0].Quantity)

	second, err := f.invoices.Create(f.ctx, f.user.ID, InvoiceInput{
		ClientName: strPtr("Acme Co"), ClientEmail: strPtr("a@acme.com"), Amount: 10.0, Total: "12.5",
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-0002", second.Number)
	assert.Equal(t, 12.5, second.Total, "an explicit total is kept as is")
}

func TestCreateInvoiceKeepsItemPrecision(t *testing.T) {
	f := newFixture(t)
	inv, err := f.invoices.Create(f.ctx, f.user.ID, InvoiceInput{
		ClientName: strPtr("Acme Co"), ClientEmail: strPtr("a@acme.com"),
		Amount: "10.005", Tax: 0.0, Discount: 0.0,
		Items: &[]InvoiceItemInput{{Description: "Review", Quantity: 0.125, Rate: "1.3333", Amount: "0.1667"}},
	})
	require.NoError(t, err)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, 0.125, inv.Items[0].Quantity)
	assert.Equal(t, 1.3333, inv.Items[0].Rate)
	assert.Equal(t, 10.005, inv.Amount)
	assert.Equal(t, 10.01, inv.Total, "a derived total is rounded to cents")

	stored, err := f.invoices.Get(f.ctx, f.user.ID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.3333, stored.Items[0].Rate)
}

func TestCreateInvoiceRejectsNonNumeric(t *testing.T) {
	f := newFixture(t)
	_, err := f.invoices.Create(f.ctx, f.user.ID, InvoiceInput{
		ClientName: strPtr("Acme Co"), ClientEmail: strPtr("a@acme.com"), Amount: "a lot",
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidInput))
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "must_be_numeric", ae.Details.(validation.Violations)["amount"])
}

func TestInvoiceNumberConflict(t *testing.T) {
	f := newFixture(t)
	in := InvoiceInput{Number: strPtr("INV-2024-0007"), ClientName: strPtr("Acme Co"), ClientEmail: strPtr("a@acme.com"), Amount: 1.0}
	_, err := f.invoices.Create(f.ctx, f.user.ID, in)
	require.NoError(t, err)
	_, err = f.invoices.Create(f.ctx, f.user.ID, in)
	assert.True(t, apperr.Is(err, apperr.CodeAlreadyExists))

	// numbers are unique per owner
	other := f.otherUser(t)
	_, err = f.invoices.Create(f.ctx, other.ID, in)
	assert.NoError(t, err)
}

func TestUpdateInvoiceStatus(t *testing.T) {
	f := newFixture(t)
	inv, err := f.invoices.Create(f.ctx, f.user.ID, InvoiceInput{ClientName: strPtr("Acme Co"), ClientEmail: strPtr("a@acme.com"), Amount: 300.0})
	require.NoError(t, err)

	got, err := f.invoices.Update(f.ctx, f.user.ID, inv.ID, InvoiceInput{Status: strPtr(string(models.InvoiceStatusPending))})
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPending, got.Status)
	assert.Equal(t, int64(1), countNotifications(t, f, models.NotificationInvoiceSent))

	got, err = f.invoices.Update(f.ctx, f.user.ID, inv.ID, InvoiceInput{Status: strPtr(string(models.InvoiceStatusPaid))})
	require.NoError(t, err)
	require.NotNil(t, got.PaidDate)
	assert.True(t, got.PaidDate.Equal(testNow))
	assert.Equal(t, 300.0, got.Total)

	_, err = f.invoices.Update(f.ctx, f.user.ID, inv.ID, InvoiceInput{Status: strPtr("cancelled")})
	assert.True(t, apperr.Is(err, apperr.CodeInvalidInput))
}

func TestDeleteInvoiceWithReceiptRefused(t *testing.T) {
	f := newFixture(t)
	f.client(t, "Acme Co", "a@acme.com")
	inv := f.invoice(t, "INV-2024-0001", "a@acme.com", 100.0)
	_, err := f.receipts.Create(f.ctx, f.user.ID, ReceiptInput{InvoiceID: inv.ID})
	require.NoError(t, err)

	err = f.invoices.Delete(f.ctx, f.user.ID, inv.ID)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidInput))

	draft, err := f.invoices.Create(f.ctx, f.user.ID, InvoiceInput{ClientName: strPtr("Acme Co"), ClientEmail: strPtr("a@acme.com"), Amount: 1.0})
	require.NoError(t, err)
	require.NoError(t, f.invoices.Delete(f.ctx, f.user.ID, draft.ID))
	err = f.invoices.Delete(f.ctx, f.user.ID, draft.ID)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestInvoiceListFilters(t *testing.T) {
	f := newFixture(t)
	issued := testNow.AddDate(0, -1, 0)
	_, err := f.invoices.Create(f.ctx, f.user.ID, InvoiceInput{ClientName: strPtr("Acme Co"), ClientEmail: strPtr("a@acme.com"), Amount: 1.0, IssueDate: &issued})
	require.NoError(t, err)
	_, err = f.invoices.Create(f.ctx, f.user.ID, InvoiceInput{
		ClientName: strPtr("Globex"), ClientEmail: strPtr("g@globex.com"), Amount: 2.0,
		Status: strPtr(string(models.InvoiceStatusPending)),
	})
	require.NoError(t, err)

	all, err := f.invoices.List(f.ctx, f.user.ID, InvoiceFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Globex", all[0].ClientName, "newest issue date first")

	pending, err := f.invoices.List(f.ctx, f.user.ID, InvoiceFilter{Status: string(models.InvoiceStatusPending)})
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	search, err := f.invoices.List(f.ctx, f.user.ID, InvoiceFilter{Search: "ACME"})
	require.NoError(t, err)
	assert.Len(t, search, 1)
}
