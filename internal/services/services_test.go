package services

import (
	"context"
	"testing"
	"time"

	"github.com/diewo77/solodesk/internal/db/dbtest"
	"github.com/diewo77/solodesk/internal/mailer"
	"github.com/diewo77/solodesk/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func strPtr(s string) *string { return &s }

func uintPtr(v uint) *uint { return &v }

// fixture wires every service on one throwaway database with a fixed clock.
type fixture struct {
	db            *gorm.DB
	ctx           context.Context
	user          models.User
	clients       *ClientService
	projects      *ProjectService
	tasks         *TaskService
	invoices      *InvoiceService
	receipts      *ReceiptService
	notifications *NotificationService
	mail          *recordingMailer
}

type recordingMailer struct {
	sent []mailer.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := dbtest.New(t)
	f := &fixture{db: gdb, ctx: context.Background(), mail: &recordingMailer{}}

	f.user = models.User{Email: "owner@example.com", Name: "Owner", Password: "hash"}
	require.NoError(t, gdb.Create(&f.user).Error)

	f.notifications = NewNotificationService(gdb)
	f.notifications.Now = fixedClock
	f.clients = NewClientService(gdb, f.notifications)
	f.clients.Now = fixedClock
	f.projects = NewProjectService(gdb)
	f.projects.Now = fixedClock
	f.tasks = NewTaskService(gdb)
	f.tasks.Now = fixedClock
	f.invoices = NewInvoiceService(gdb)
	f.invoices.Now = fixedClock
	f.receipts = NewReceiptService(gdb, f.mail)
	f.receipts.Now = fixedClock
	return f
}

func (f *fixture) client(t *testing.T, name, email string) *models.Client {
	t.Helper()
	c, err := f.clients.Create(f.ctx, f.user.ID, ClientInput{Name: strPtr(name), Email: strPtr(email)})
	require.NoError(t, err)
	return c
}

func (f *fixture) project(t *testing.T, clientID uint, name string, due *time.Time, status models.ProjectStatus) *models.Project {
	t.Helper()
	in := ProjectInput{Name: strPtr(name), ClientID: uintPtr(clientID), DueDate: due}
	if status != "" {
		in.Status = strPtr(string(status))
	}
	p, err := f.projects.Create(f.ctx, f.user.ID, in)
	require.NoError(t, err)
	return p
}

func (f *fixture) task(t *testing.T, projectID uint, name string) *models.Task {
	t.Helper()
	task, err := f.tasks.Create(f.ctx, f.user.ID, projectID, TaskInput{Name: strPtr(name)})
	require.NoError(t, err)
	return task
}

func (f *fixture) otherUser(t *testing.T) models.User {
	t.Helper()
	u := models.User{Email: "other@example.com", Password: "hash"}
	require.NoError(t, f.db.Create(&u).Error)
	return u
}
