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
	"gorm.io/gorm"
)

// TaskInput carries the writable task fields. Nil fields are left untouched on update.
type TaskInput struct {
	Name           *string    `json:"name"`
	Description    *string    `json:"description"`
	DueDate        *time.Time `json:"dueDate"`
	Priority       *string    `json:"priority"`
	Type           *string    `json:"type"`
	EstimatedHours *float64   `json:"estimatedHours"`
	ActualHours    *float64   `json:"actualHours"`
	AssignedTo     *string    `json:"assignedTo"`
	Order          *int       `json:"order"`
}

// TaskService owns task writes and the completion toggle.
type TaskService struct {
	DB  *gorm.DB
	Now Clock
}

func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{DB: db, Now: utcNow}
}

func (in TaskInput) apply(t *models.Task) {
	if in.Name != nil {
		t.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.DueDate != nil {
		t.DueDate = utcPtr(in.DueDate)
	}
	if in.Priority != nil {
		t.Priority = models.Priority(*in.Priority)
	}
	if in.Type != nil {
		t.Type = models.TaskType(*in.Type)
	}
	if in.EstimatedHours != nil {
		t.EstimatedHours = *in.EstimatedHours
	}
	if in.ActualHours != nil {
		t.ActualHours = *in.ActualHours
	}
	if in.AssignedTo != nil {
		t.AssignedTo = *in.AssignedTo
	}
	if in.Order != nil {
		t.Order = *in.Order
	}
}

func validateTask(t *models.Task) validation.Violations {
	v := make(validation.Violations)
	validation.Required("name", t.Name, v)
	validation.OneOf("priority", string(t.Priority), models.Priorities, v)
	validation.OneOf("type", string(t.Type), models.TaskTypes, v)
	validation.NonNegativeFloat("estimatedHours", t.EstimatedHours, v)
	validation.NonNegativeFloat("actualHours", t.ActualHours, v)
	return v
}

// Create adds a task at the end of an owned, non-archived project.
func (s *TaskService) Create(ctx context.Context, userID, projectID uint, in TaskInput) (*models.Task, error) {
	t := models.Task{UserID: userID, ProjectID: projectID}
	in.apply(&t)
	if v := validateTask(&t); !v.Empty() {
		return nil, apperr.Invalid("Invalid task", v)
	}
	now := s.Now()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := tx.Scopes(policy.ByIDOwnedBy(projectID, userID)).First(&p).Error; err != nil {
			return lookupErr(err, "Project not found")
		}
		if p.IsArchived {
			return apperr.Invalid("Cannot add tasks to an archived project", nil)
		}
		if in.Order == nil {
			var maxOrder int
			row := tx.Model(&models.Task{}).Where("project_id = ?", projectID).
				Select("COALESCE(MAX(sort_order), -1)").Row()
			if err := row.Scan(&maxOrder); err != nil {
				return apperr.Dependency("failed to compute task order", err)
			}
			t.Order = maxOrder + 1
		}
		if err := tx.Omit("Project", "History").Create(&t).Error; err != nil {
			return apperr.Dependency("failed to create task", err)
		}
		if err := appendHistory(tx, models.EntityTask, t.ID, models.ActionCreated, "Task created", userID, now); err != nil {
			return apperr.Dependency("failed to record history", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TaskService) load(tx *gorm.DB, userID, id uint) (*models.Task, error) {
	var t models.Task
	if err := tx.Scopes(policy.ByIDOwnedBy(id, userID)).First(&t).Error; err != nil {
		return nil, lookupErr(err, "Task not found")
	}
	return &t, nil
}

// Get loads one owned task with its history.
func (s *TaskService) Get(ctx context.Context, userID, id uint) (*models.Task, error) {
	var t models.Task
	err := s.DB.WithContext(ctx).Scopes(policy.ByIDOwnedBy(id, userID)).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("performed_at ASC, id ASC") }).
		First(&t).Error
	if err != nil {
		return nil, lookupErr(err, "Task not found")
	}
	return &t, nil
}

// ListByProject returns the tasks of an owned project in display order.
func (s *TaskService) ListByProject(ctx context.Context, userID, projectID uint, includeArchived bool) ([]models.Task, error) {
	tx := s.DB.WithContext(ctx)
	var count int64
	if err := tx.Model(&models.Project{}).Scopes(policy.ByIDOwnedBy(projectID, userID)).Count(&count).Error; err != nil {
		return nil, apperr.Dependency("failed to load project", err)
	}
	if count == 0 {
		return nil, apperr.NotFound("Project not found")
	}
	q := tx.Where("project_id = ? AND user_id = ?", projectID, userID)
	if !includeArchived {
		q = q.Where("is_archived = ?", false)
	}
	tasks := []models.Task{}
	if err := q.Order("sort_order ASC, id ASC").Find(&tasks).Error; err != nil {
		return nil, apperr.Dependency("failed to list tasks", err)
	}
	return tasks, nil
}

// Update applies in to an owned, non-archived task.
func (s *TaskService) Update(ctx context.Context, userID, id uint, in TaskInput) (*models.Task, error) {
	now := s.Now()
	var t *models.Task
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if t, err = s.load(tx, userID, id); err != nil {
			return err
		}
		if t.IsArchived {
			return apperr.Invalid("Task is archived", nil)
		}
		in.apply(t)
		if v := validateTask(t); !v.Empty() {
			return apperr.Invalid("Invalid task", v)
		}
		if err := tx.Omit("Project", "History").Save(t).Error; err != nil {
			return apperr.Dependency("failed to update task", err)
		}
		if err := appendHistory(tx, models.EntityTask, t.ID, models.ActionUpdated, "Task updated", userID, now); err != nil {
			return apperr.Dependency("failed to record history", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ToggleCompleted flips the completion flag. Completing stamps completedAt/completedBy and
// emits task_completed; reopening clears both.
func (s *TaskService) ToggleCompleted(ctx context.Context, userID, id uint) (*models.Task, error) {
	now := s.Now()
	var t *models.Task
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if t, err = s.load(tx, userID, id); err != nil {
			return err
		}
		if t.IsArchived {
			return apperr.Invalid("Task is archived", nil)
		}
		t.Completed = !t.Completed
		action, desc := models.ActionReopened, "Task reopened"
		if t.Completed {
			t.CompletedAt = ptrTime(now)
			t.CompletedBy = ptrUint(userID)
			action, desc = models.ActionCompleted, "Task completed"
		} else {
			t.CompletedAt = nil
			t.CompletedBy = nil
		}
		err = tx.Model(&models.Task{}).Where("id = ?", t.ID).UpdateColumns(map[string]any{
			"completed":    t.Completed,
			"completed_at": t.CompletedAt,
			"completed_by": t.CompletedBy,
			"updated_at":   now,
		}).Error
		if err != nil {
			return apperr.Dependency("failed to toggle task", err)
		}
		t.UpdatedAt = now
		if err := appendHistory(tx, models.EntityTask, t.ID, action, desc, userID, now); err != nil {
			return apperr.Dependency("failed to record history", err)
		}
		if t.Completed {
			return notify(tx, &models.Notification{
				UserID:        userID,
				Type:          models.NotificationTaskCompleted,
				Title:         "Task completed",
				Message:       fmt.Sprintf("Task %q was completed", t.Name),
				RelatedEntity: models.EntityRef{Type: models.EntityTask, ID: t.ID},
				Priority:      models.NotificationPriorityLow,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Archive soft-archives a single task.
func (s *TaskService) Archive(ctx context.Context, userID, id uint) (*models.Task, error) {
	now := s.Now()
	var t *models.Task
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if t, err = s.load(tx, userID, id); err != nil {
			return err
		}
		if t.IsArchived {
			return apperr.Invalid("Task is already archived", nil)
		}
		t.IsArchived = true
		t.ArchivedAt = ptrTime(now)
		t.ArchivedBy = ptrUint(userID)
		err = tx.Model(&models.Task{}).Where("id = ?", t.ID).UpdateColumns(map[string]any{
			"is_archived": true,
			"archived_at": now,
			"archived_by": userID,
			"updated_at":  now,
		}).Error
		if err != nil {
			return apperr.Dependency("failed to archive task", err)
		}
		if err := appendHistory(tx, models.EntityTask, t.ID, models.ActionArchived, "Task archived", userID, now); err != nil {
			return apperr.Dependency("failed to record history", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}
