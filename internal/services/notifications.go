package services

import (
	"context"
	"fmt"
	"time"

	"github.com/diewo77/solodesk/internal/apperr"
	"github.com/diewo77/solodesk/internal/models"
	"gorm.io/gorm"
)

const (
	// DedupWindow is the lookback used to avoid notifying twice for the same entity.
	DedupWindow = 24 * time.Hour
	// DueSoonWindow is how far ahead the sweep looks for deadlines.
	DueSoonWindow = 24 * time.Hour
	// ReadRetention is how long a read notification stays visible before archival.
	ReadRetention = 30 * 24 * time.Hour
)

// NotificationService creates, lists and sweeps notifications.
type NotificationService struct {
	DB  *gorm.DB
	Now Clock
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db, Now: utcNow}
}

// SweepResult counts the notifications created by one sweep.
type SweepResult struct {
	ProjectsDueSoon int `json:"projectsDueSoon"`
	TasksDueSoon    int `json:"tasksDueSoon"`
	InvoicesOverdue int `json:"invoicesOverdue"`
}

// Total is the number of notifications created.
func (r SweepResult) Total() int {
	return r.ProjectsDueSoon + r.TasksDueSoon + r.InvoicesOverdue
}

// NotificationFilter narrows List.
type NotificationFilter struct {
	UnreadOnly bool
	Type       string
	Limit      int
	Offset     int
}

// Notify stores a notification for its owner.
func (s *NotificationService) Notify(ctx context.Context, n *models.Notification) error {
	return notify(s.DB.WithContext(ctx), n)
}

func notify(tx *gorm.DB, n *models.Notification) error {
	if err := tx.Create(n).Error; err != nil {
		return apperr.Dependency("failed to create notification", err)
	}
	return nil
}

// notifyOnce creates n unless a notification of the same type for the same entity
// was created for the same user since now-DedupWindow.
func notifyOnce(tx *gorm.DB, n *models.Notification, now time.Time) (bool, error) {
	var count int64
	err := tx.Model(&models.Notification{}).
		Where("user_id = ? AND type = ? AND related_type = ? AND related_id = ? AND created_at >= ?",
			n.UserID, n.Type, n.RelatedEntity.Type, n.RelatedEntity.ID, now.Add(-DedupWindow)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	n.CreatedAt = now
	n.UpdatedAt = now
	if err := tx.Create(n).Error; err != nil {
		return false, err
	}
	return true, nil
}

// Sweep emits due-soon and overdue notifications for every user. Running it repeatedly
// inside the dedup window creates nothing new.
func (s *NotificationService) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	var res SweepResult
	tx := s.DB.WithContext(ctx)
	horizon := now.Add(DueSoonWindow)

	var projects []models.Project
	err := tx.Where("due_date > ? AND due_date <= ? AND status <> ? AND is_archived = ?",
		now, horizon, models.ProjectStatusCompleted, false).
		Find(&projects).Error
	if err != nil {
		return res, apperr.Dependency("failed to query projects due soon", err)
	}
	for _, p := range projects {
		created, err := notifyOnce(tx, &models.Notification{
			UserID:        p.UserID,
			Type:          models.NotificationProjectDueSoon,
			Title:         "Project due soon",
			Message:       fmt.Sprintf("Project %q is due on %s", p.Name, p.DueDate.Format(time.RFC1123)),
			RelatedEntity: models.EntityRef{Type: models.EntityProject, ID: p.ID},
			Priority:      models.NotificationPriorityHigh,
		}, now)
		if err != nil {
			return res, apperr.Dependency("failed to create project notification", err)
		}
		if created {
			res.ProjectsDueSoon++
		}
	}

	var tasks []models.Task
	err = tx.Where("due_date > ? AND due_date <= ? AND completed = ? AND is_archived = ?",
		now, horizon, false, false).
		Find(&tasks).Error
	if err != nil {
		return res, apperr.Dependency("failed to query tasks due soon", err)
	}
	for _, t := range tasks {
		created, err := notifyOnce(tx, &models.Notification{
			UserID:        t.UserID,
			Type:          models.NotificationTaskDueSoon,
			Title:         "Task due soon",
			Message:       fmt.Sprintf("Task %q is due on %s", t.Name, t.DueDate.Format(time.RFC1123)),
			RelatedEntity: models.EntityRef{Type: models.EntityTask, ID: t.ID},
			Priority:      models.NotificationPriorityMedium,
		}, now)
		if err != nil {
			return res, apperr.Dependency("failed to create task notification", err)
		}
		if created {
			res.TasksDueSoon++
		}
	}

	var invoices []models.Invoice
	err = tx.Where("status = ? AND due_date IS NOT NULL AND due_date < ?", models.InvoiceStatusPending, now).
		Find(&invoices).Error
	if err != nil {
		return res, apperr.Dependency("failed to query overdue invoices", err)
	}
	for _, inv := range invoices {
		var created bool
		err := tx.Transaction(func(itx *gorm.DB) error {
			if err := itx.Model(&models.Invoice{}).Where("id = ?", inv.ID).
				UpdateColumns(map[string]any{"status": models.InvoiceStatusOverdue, "updated_at": now}).Error; err != nil {
				return err
			}
			var err error
			created, err = notifyOnce(itx, &models.Notification{
				UserID:        inv.UserID,
				Type:          models.NotificationInvoiceOverdue,
				Title:         "Invoice overdue",
				Message:       fmt.Sprintf("Invoice %s for %s is overdue", inv.Number, inv.ClientName),
				RelatedEntity: models.EntityRef{Type: models.EntityInvoice, ID: inv.ID},
				Priority:      models.NotificationPriorityHigh,
			}, now)
			return err
		})
		if err != nil {
			return res, apperr.Dependency("failed to flag overdue invoice", err)
		}
		if created {
			res.InvoicesOverdue++
		}
	}
	return res, nil
}

// ArchiveRead archives notifications read at least ReadRetention before now.
// Unread notifications are never archived.
func (s *NotificationService) ArchiveRead(ctx context.Context, now time.Time) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("is_read = ? AND is_archived = ? AND read_at IS NOT NULL AND read_at <= ?", true, false, now.Add(-ReadRetention)).
		UpdateColumns(map[string]any{"is_archived": true, "archived_at": now, "updated_at": now})
	if res.Error != nil {
		return 0, apperr.Dependency("failed to archive notifications", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *NotificationService) visible(ctx context.Context, userID uint) *gorm.DB {
	return s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_archived = ?", userID, false)
}

// List returns the non-archived notifications of a user, newest first, with the total count.
func (s *NotificationService) List(ctx context.Context, userID uint, f NotificationFilter) ([]models.Notification, int64, error) {
	q := s.visible(ctx, userID)
	if f.UnreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Dependency("failed to count notifications", err)
	}
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	items := []models.Notification{}
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Offset(f.Offset).Find(&items).Error; err != nil {
		return nil, 0, apperr.Dependency("failed to list notifications", err)
	}
	return items, total, nil
}

// UnreadCount counts unread, non-archived notifications.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var n int64
	if err := s.visible(ctx, userID).Where("is_read = ?", false).Count(&n).Error; err != nil {
		return 0, apperr.Dependency("failed to count notifications", err)
	}
	return n, nil
}

// MarkRead marks the given notifications of the user as read. Foreign ids are ignored.
func (s *NotificationService) MarkRead(ctx context.Context, userID uint, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, apperr.Invalid("ids are required", nil)
	}
	now := s.Now()
	res := s.visible(ctx, userID).
		Where("id IN ? AND is_read = ?", ids, false).
		UpdateColumns(map[string]any{"is_read": true, "read_at": now, "updated_at": now})
	if res.Error != nil {
		return 0, apperr.Dependency("failed to mark notifications as read", res.Error)
	}
	return res.RowsAffected, nil
}

// MarkAllRead marks every unread notification of the user as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	now := s.Now()
	res := s.visible(ctx, userID).
		Where("is_read = ?", false).
		UpdateColumns(map[string]any{"is_read": true, "read_at": now, "updated_at": now})
	if res.Error != nil {
		return 0, apperr.Dependency("failed to mark notifications as read", res.Error)
	}
	return res.RowsAffected, nil
}
