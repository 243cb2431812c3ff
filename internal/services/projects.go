package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/diewo77/solodesk/internal/apperr"
	"github.com/diewo77/solodesk/internal/models"
	"github.com/diewo77/solodesk/internal/policy"
	"github.com/diewo77/solodesk/validation"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProjectInput carries the writable project fields. Nil fields are left untouched on update.
type ProjectInput struct {
	Name        *string              `json:"name"`
	Description *string              `json:"description"`
	ClientID    *uint                `json:"clientId"`
	Status      *string              `json:"status"`
	Priority    *string              `json:"priority"`
	StartDate   *time.Time           `json:"startDate"`
	EndDate     *time.Time           `json:"endDate"`
	DueDate     *time.Time           `json:"dueDate"`
	Budget      *float64             `json:"budget"`
	HourlyRate  *float64             `json:"hourlyRate"`
	Tags        *[]string            `json:"tags"`
	Attachments *[]models.Attachment `json:"attachments"`
	// Tasks seeds the project on creation and is ignored on update.
	Tasks []TaskInput `json:"tasks"`
}

// ProjectFilter holds the list query parameters.
type ProjectFilter struct {
	Search          string
	Status          string
	Priority        string
	ClientID        uint
	Tag             string
	IncludeArchived bool
	SortBy          string
	SortOrder       string
}

var projectSortColumns = map[string]string{
	"name":      "name",
	"status":    "status",
	"priority":  "priority",
	"dueDate":   "due_date",
	"startDate": "start_date",
	"budget":    "budget",
	"progress":  "progress",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// ProjectService owns project writes, the archive cascade and progress bookkeeping.
type ProjectService struct {
	DB  *gorm.DB
	Now Clock
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{DB: db, Now: utcNow}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func (in ProjectInput) apply(p *models.Project) {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.ClientID != nil {
		p.ClientID = *in.ClientID
	}
	if in.Status != nil {
		p.Status = models.ProjectStatus(*in.Status)
	}
	if in.Priority != nil {
		p.Priority = models.Priority(*in.Priority)
	}
	if in.StartDate != nil {
		p.StartDate = utcPtr(in.StartDate)
	}
	if in.EndDate != nil {
		p.EndDate = utcPtr(in.EndDate)
	}
	if in.DueDate != nil {
		p.DueDate = utcPtr(in.DueDate)
	}
	if in.Budget != nil {
		p.Budget = *in.Budget
	}
	if in.HourlyRate != nil {
		p.HourlyRate = *in.HourlyRate
	}
	if in.Tags != nil {
		p.Tags = datatypes.JSONSlice[string](*in.Tags)
	}
	if in.Attachments != nil {
		p.Attachments = datatypes.JSONSlice[models.Attachment](*in.Attachments)
	}
}

func validateProject(p *models.Project) validation.Violations {
	v := make(validation.Violations)
	validation.Required("name", p.Name, v)
	if p.ClientID == 0 {
		v["clientId"] = "required"
	}
	validation.OneOf("status", string(p.Status), models.ProjectStatuses, v)
	validation.OneOf("priority", string(p.Priority), models.Priorities, v)
	validation.NonNegativeFloat("budget", p.Budget, v)
	validation.NonNegativeFloat("hourlyRate", p.HourlyRate, v)
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		v["endDate"] = "must_be_after_start"
	}
	return v
}

func (s *ProjectService) ownedClient(tx *gorm.DB, userID, clientID uint) error {
	var count int64
	if err := tx.Model(&models.Client{}).Scopes(policy.ByIDOwnedBy(clientID, userID)).Count(&count).Error; err != nil {
		return apperr.Dependency("failed to check client", err)
	}
	if count == 0 {
		return apperr.NotFound("Client not found")
	}
	return nil
}

// Create stores a project for an owned client and records its creation.
func (s *ProjectService) Create(ctx context.Context, userID uint, in ProjectInput) (*models.Project, error) {
	p := models.Project{UserID: userID}
	in.apply(&p)
	v := validateProject(&p)
	seeds := make([]models.Task, len(in.Tasks))
	for i, ti := range in.Tasks {
		seeds[i] = models.Task{UserID: userID, Order: i}
		ti.apply(&seeds[i])
		for field, msg := range validateTask(&seeds[i]) {
			v[fmt.Sprintf("tasks[%d].%s", i, field)] = msg
		}
	}
	if !v.Empty() {
		return nil, apperr.Invalid("Invalid project", v)
	}
	now := s.Now()
	if p.Status == models.ProjectStatusCompleted {
		p.CompletedAt = ptrTime(now)
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ownedClient(tx, userID, p.ClientID); err != nil {
			return err
		}
		if err := tx.Omit("Client", "Tasks", "History").Create(&p).Error; err != nil {
			return apperr.Dependency("failed to create project", err)
		}
		if err := appendHistory(tx, models.EntityProject, p.ID, models.ActionCreated, "Project created", userID, now); err != nil {
			return apperr.Dependency("failed to record history", err)
		}
		for i := range seeds {
			seeds[i].ProjectID = p.ID
			if err := tx.Omit("Project", "History").Create(&seeds[i]).Error; err != nil {
				return apperr.Dependency("failed to create task", err)
			}
			if err := appendHistory(tx, models.EntityTask, seeds[i].ID, models.ActionCreated, "Task created", userID, now); err != nil {
				return apperr.Dependency("failed to record history", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.Tasks = seeds
	return &p, nil
}

func (s *ProjectService) load(tx *gorm.DB, userID, id uint) (*models.Project, error) {
	var p models.Project
	if err := tx.Scopes(policy.ByIDOwnedBy(id, userID)).First(&p).Error; err != nil {
		return nil, lookupErr(err, "Project not found")
	}
	return &p, nil
}

// Get loads a project with its client, history and active tasks, refreshing the progress cache.
func (s *ProjectService) Get(ctx context.Context, userID, id uint) (*models.Project, error) {
	tx := s.DB.WithContext(ctx)
	var p models.Project
	err := tx.Scopes(policy.ByIDOwnedBy(id, userID)).
		Preload("Client").
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("performed_at ASC, id ASC") }).
		Preload("Tasks", "is_archived = ?", false, func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, id ASC") }).
		First(&p).Error
	if err != nil {
		return nil, lookupErr(err, "Project not found")
	}
	progress, err := s.ComputeProgress(ctx, userID, p.ID)
	if err != nil {
		return nil, err
	}
	p.Progress = progress
	return &p, nil
}

// List returns the owner's projects matching f, with their client preloaded.
func (s *ProjectService) List(ctx context.Context, userID uint, f ProjectFilter) ([]models.Project, error) {
	q := s.DB.WithContext(ctx).Scopes(policy.OwnedBy(userID))
	if !f.IncludeArchived {
		q = q.Where("is_archived = ?", false)
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", p, p)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	if f.ClientID != 0 {
		q = q.Where("client_id = ?", f.ClientID)
	}
	if f.Tag != "" {
		q = q.Where("CAST(tags AS TEXT) LIKE ?", `%"`+f.Tag+`"%`)
	}
	col, ok := projectSortColumns[f.SortBy]
	if !ok {
		col = "created_at"
	}
	projects := []models.Project{}
	if err := q.Preload("Client").Order(col + " " + sortDirection(f.SortOrder)).Order("id").Find(&projects).Error; err != nil {
		return nil, apperr.Dependency("failed to list projects", err)
	}
	return projects, nil
}

// Update applies in to an owned, non-archived project. A status change is recorded in history;
// entering Completed stamps completedAt and emits project_completed, leaving it clears completedAt.
func (s *ProjectService) Update(ctx context.Context, userID, id uint, in ProjectInput) (*models.Project, error) {
	now := s.Now()
	var p *models.Project
	var completed bool
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		p, err = s.load(tx, userID, id)
		if err != nil {
			return err
		}
		if p.IsArchived {
			return apperr.Invalid("Project is archived", nil)
		}
		prevStatus := p.Status
		prevClient := p.ClientID
		in.apply(p)
		if v := validateProject(p); !v.Empty() {
			return apperr.Invalid("Invalid project", v)
		}
		if p.ClientID != prevClient {
			if err := s.ownedClient(tx, userID, p.ClientID); err != nil {
				return err
			}
		}
		if p.Status != prevStatus {
			switch {
			case p.Status == models.ProjectStatusCompleted:
				p.CompletedAt = ptrTime(now)
				completed = true
			case prevStatus == models.ProjectStatusCompleted:
				p.CompletedAt = nil
			}
			desc := fmt.Sprintf("Status changed from %s to %s", prevStatus, p.Status)
			if err := appendHistory(tx, models.EntityProject, p.ID, models.ActionStatusChanged, desc, userID, now); err != nil {
				return apperr.Dependency("failed to record history", err)
			}
		} else if err := appendHistory(tx, models.EntityProject, p.ID, models.ActionUpdated, "Project updated", userID, now); err != nil {
			return apperr.Dependency("failed to record history", err)
		}
		if err := tx.Omit("Client", "Tasks", "History").Save(p).Error; err != nil {
			return apperr.Dependency("failed to update project", err)
		}
		if completed {
			return notify(tx, &models.Notification{
				UserID:        userID,
				Type:          models.NotificationProjectCompleted,
				Title:         "Project completed",
				Message:       fmt.Sprintf("Project %q was marked as completed", p.Name),
				RelatedEntity: models.EntityRef{Type: models.EntityProject, ID: p.ID},
				Priority:      models.NotificationPriorityMedium,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// AddNote appends a note to the project and records it in history.
func (s *ProjectService) AddNote(ctx context.Context, userID, id uint, content string) (*models.Project, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperr.Invalid("Note content is required", validation.Violations{"content": "required"})
	}
	now := s.Now()
	var p *models.Project
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if p, err = s.load(tx, userID, id); err != nil {
			return err
		}
		p.Notes = append(p.Notes, models.Note{Content: content, CreatedAt: now})
		if err := tx.Model(p).UpdateColumns(map[string]any{"notes": p.Notes, "updated_at": now}).Error; err != nil {
			return apperr.Dependency("failed to add note", err)
		}
		if err := appendHistory(tx, models.EntityProject, p.ID, models.ActionNoteAdded, "Note added", userID, now); err != nil {
			return apperr.Dependency("failed to record history", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ArchiveProject soft-archives a project and every non-archived task under it in one
// transaction, and returns how many tasks were archived. Nothing is written on failure.
func (s *ProjectService) ArchiveProject(ctx context.Context, userID, projectID uint) (int64, error) {
	now := s.Now()
	var archived int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.load(tx, userID, projectID)
		if err != nil {
			return err
		}
		if p.IsArchived {
			return apperr.Invalid("Project is already archived", nil)
		}
		err = tx.Model(&models.Project{}).Where("id = ?", p.ID).UpdateColumns(map[string]any{
			"is_archived": true,
			"archived_at": now,
			"archived_by": userID,
			"updated_at":  now,
		}).Error
		if err != nil {
			return apperr.Dependency("failed to archive project", err)
		}
		if err := appendHistory(tx, models.EntityProject, p.ID, models.ActionArchived, "Project archived", userID, now); err != nil {
			return apperr.Dependency("failed to record history", err)
		}

		var taskIDs []uint
		if err := tx.Model(&models.Task{}).
			Where("project_id = ? AND is_archived = ?", p.ID, false).
			Pluck("id", &taskIDs).Error; err != nil {
			return apperr.Dependency("failed to load project tasks", err)
		}
		if len(taskIDs) == 0 {
			return nil
		}
		entries := make([]models.HistoryEntry, 0, len(taskIDs))
		for _, id := range taskIDs {
			h := historyEntry(models.EntityTask, id, models.ActionArchived, "Task archived", userID, now)
			h.Reason = models.ReasonProjectArchived
			entries = append(entries, h)
		}
		if err := tx.CreateInBatches(&entries, 100).Error; err != nil {
			return apperr.Dependency("failed to record task history", err)
		}
		res := tx.Model(&models.Task{}).
			Where("project_id = ? AND is_archived = ?", p.ID, false).
			UpdateColumns(map[string]any{
				"is_archived": true,
				"archived_at": now,
				"archived_by": userID,
				"updated_at":  now,
			})
		if res.Error != nil {
			return apperr.Dependency("failed to archive project tasks", res.Error)
		}
		archived = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return archived, nil
}

// Progress is the rounded percentage of completed tasks; 0 when there are none.
func Progress(completed, total int64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

// ComputeProgress recounts the project's non-archived tasks and persists the progress cache.
func (s *ProjectService) ComputeProgress(ctx context.Context, userID, projectID uint) (int, error) {
	tx := s.DB.WithContext(ctx)
	var counts struct {
		Total     int64
		Completed int64
	}
	err := tx.Model(&models.Task{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN completed THEN 1 ELSE 0 END), 0) AS completed").
		Where("project_id = ? AND user_id = ? AND is_archived = ?", projectID, userID, false).
		Scan(&counts).Error
	if err != nil {
		return 0, apperr.Dependency("failed to count tasks", err)
	}
	progress := Progress(counts.Completed, counts.Total)
	err = tx.Model(&models.Project{}).
		Scopes(policy.ByIDOwnedBy(projectID, userID)).
		UpdateColumn("progress", progress).Error
	if err != nil {
		return 0, apperr.Dependency("failed to update progress", err)
	}
	return progress, nil
}
