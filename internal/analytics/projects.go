package analytics

import (
	"context"
	"math"
	"time"

	"github.com/diewo77/solodesk/internal/models"
	"gorm.io/gorm"
)

// DurationStats describes the planned length (start to due date) of completed projects.
type DurationStats struct {
	Projects    int     `json:"projects"`
	AverageDays float64 `json:"averageDays"`
	MinDays     float64 `json:"minDays"`
	MaxDays     float64 `json:"maxDays"`
}

// DeadlineStats counts completed projects finished on or before their due date.
type DeadlineStats struct {
	OnTime      int64   `json:"onTime"`
	Late        int64   `json:"late"`
	SuccessRate float64 `json:"successRate"`
}

// ProjectStats is the project section of the dashboard and report. Archived projects are excluded.
type ProjectStats struct {
	Total           int64            `json:"total"`
	ByStatus        map[string]int64 `json:"byStatus"`
	ByPriority      map[string]int64 `json:"byPriority"`
	Completed       int64            `json:"completed"`
	Active          int64            `json:"active"`
	Overdue         int64            `json:"overdue"`
	CompletionRate  float64          `json:"completionRate"`
	AverageProgress float64          `json:"averageProgress"`
	TotalBudget     float64          `json:"totalBudget"`
	Duration        DurationStats    `json:"duration"`
	Deadlines       DeadlineStats    `json:"deadlines"`
}

func (e *Engine) activeProjects(ctx context.Context, userID uint) *gorm.DB {
	return e.owned(ctx, userID, &models.Project{}).Where("is_archived = ?", false)
}

// ProjectDurationStats averages (dueDate - startDate) in days over completed projects that
// have both dates. Projects missing either date are left out.
func (e *Engine) ProjectDurationStats(ctx context.Context, userID uint) (DurationStats, error) {
	var projects []models.Project
	err := e.activeProjects(ctx, userID).
		Select("id, start_date, due_date").
		Where("status = ? AND start_date IS NOT NULL AND due_date IS NOT NULL", models.ProjectStatusCompleted).
		Find(&projects).Error
	if err != nil {
		return DurationStats{}, failed("project durations", err)
	}
	stats := DurationStats{}
	if len(projects) == 0 {
		return stats, nil
	}
	var total float64
	stats.MinDays = math.MaxFloat64
	for _, p := range projects {
		days := p.DueDate.Sub(*p.StartDate).Hours() / 24
		total += days
		stats.MinDays = math.Min(stats.MinDays, days)
		stats.MaxDays = math.Max(stats.MaxDays, days)
	}
	stats.Projects = len(projects)
	stats.AverageDays = round2(total / float64(len(projects)))
	stats.MinDays = round2(stats.MinDays)
	stats.MaxDays = round2(stats.MaxDays)
	return stats, nil
}

// DeadlineSuccessRate compares the completion time of completed projects with their due date.
// Projects completed before completedAt was tracked fall back to their last update.
func (e *Engine) DeadlineSuccessRate(ctx context.Context, userID uint) (DeadlineStats, error) {
	var projects []models.Project
	err := e.activeProjects(ctx, userID).
		Select("id, due_date, completed_at, updated_at").
		Where("status = ? AND due_date IS NOT NULL", models.ProjectStatusCompleted).
		Find(&projects).Error
	if err != nil {
		return DeadlineStats{}, failed("deadlines", err)
	}
	var stats DeadlineStats
	for _, p := range projects {
		finished := p.UpdatedAt
		if p.CompletedAt != nil {
			finished = *p.CompletedAt
		}
		if finished.After(*p.DueDate) {
			stats.Late++
		} else {
			stats.OnTime++
		}
	}
	stats.SuccessRate = CompletionRate(stats.OnTime, stats.OnTime+stats.Late)
	return stats, nil
}

// ProjectStats summarises the owner's non-archived projects.
func (e *Engine) ProjectStats(ctx context.Context, userID uint) (*ProjectStats, error) {
	now := e.now()
	stats := &ProjectStats{}
	var err error
	if stats.ByStatus, err = countBy(e.activeProjects(ctx, userID), "status"); err != nil {
		return nil, failed("projects", err)
	}
	if stats.ByPriority, err = countBy(e.activeProjects(ctx, userID), "priority"); err != nil {
		return nil, failed("projects", err)
	}
	stats.Total = sum(stats.ByStatus)
	stats.Completed = stats.ByStatus[string(models.ProjectStatusCompleted)]
	stats.Active = stats.ByStatus[string(models.ProjectStatusInProgress)]
	stats.CompletionRate = CompletionRate(stats.Completed, stats.Total)

	if err := e.activeProjects(ctx, userID).
		Where("due_date < ? AND status <> ?", now, models.ProjectStatusCompleted).
		Count(&stats.Overdue).Error; err != nil {
		return nil, failed("projects", err)
	}

	var totals struct {
		Progress float64
		Budget   float64
	}
	if err := e.activeProjects(ctx, userID).
		Select("COALESCE(AVG(progress), 0) AS progress, COALESCE(SUM(budget), 0) AS budget").
		Scan(&totals).Error; err != nil {
		return nil, failed("projects", err)
	}
	stats.AverageProgress = round2(totals.Progress)
	stats.TotalBudget = round2(totals.Budget)

	if stats.Duration, err = e.ProjectDurationStats(ctx, userID); err != nil {
		return nil, err
	}
	if stats.Deadlines, err = e.DeadlineSuccessRate(ctx, userID); err != nil {
		return nil, err
	}
	return stats, nil
}

// dueBetween restricts q to rows whose due date falls in [from, to].
func dueBetween(q *gorm.DB, from, to time.Time) *gorm.DB {
	return q.Where("due_date >= ? AND due_date <= ?", from, to)
}
