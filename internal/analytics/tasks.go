package analytics

import (
	"context"

	"github.com/diewo77/solodesk/internal/models"
	"gorm.io/gorm"
)

// TaskStats is the task section of the dashboard and report. Archived tasks are excluded.
type TaskStats struct {
	Total          int64            `json:"total"`
	Completed      int64            `json:"completed"`
	Pending        int64            `json:"pending"`
	Overdue        int64            `json:"overdue"`
	ByPriority     map[string]int64 `json:"byPriority"`
	ByType         map[string]int64 `json:"byType"`
	CompletionRate float64          `json:"completionRate"`
	EstimatedHours float64          `json:"estimatedHours"`
	ActualHours    float64          `json:"actualHours"`
}

// HoursBreakdown compares estimated and actual hours for one group of tasks.
type HoursBreakdown struct {
	Label     string  `json:"key"`
	Name      string  `json:"name,omitempty"`
	Tasks     int64   `json:"tasks"`
	Estimated float64 `json:"estimatedHours"`
	Actual    float64 `json:"actualHours"`
}

// TimeStats reports time tracking for tasks created inside the period window.
type TimeStats struct {
	Period     string           `json:"period"`
	Estimated  float64          `json:"estimatedHours"`
	Actual     float64          `json:"actualHours"`
	Efficiency float64          `json:"efficiency"`
	ByType     []HoursBreakdown `json:"byType"`
	ByProject  []HoursBreakdown `json:"byProject"`
}

// Deadlines lists open projects and tasks due soon, nearest first.
type Deadlines struct {
	Days     int              `json:"days"`
	Projects []models.Project `json:"projects"`
	Tasks    []models.Task    `json:"tasks"`
}

const deadlineLimit = 20

func (e *Engine) activeTasks(ctx context.Context, userID uint) *gorm.DB {
	return e.owned(ctx, userID, &models.Task{}).Where("is_archived = ?", false)
}

// TaskStats summarises the owner's non-archived tasks.
func (e *Engine) TaskStats(ctx context.Context, userID uint) (*TaskStats, error) {
	stats := &TaskStats{}
	var err error
	if stats.ByPriority, err = countBy(e.activeTasks(ctx, userID), "priority"); err != nil {
		return nil, failed("tasks", err)
	}
	if stats.ByType, err = countBy(e.activeTasks(ctx, userID), "type"); err != nil {
		return nil, failed("tasks", err)
	}
	stats.Total = sum(stats.ByType)

	if err := e.activeTasks(ctx, userID).Where("completed = ?", true).Count(&stats.Completed).Error; err != nil {
		return nil, failed("tasks", err)
	}
	stats.Pending = stats.Total - stats.Completed
	stats.CompletionRate = CompletionRate(stats.Completed, stats.Total)

	if err := e.activeTasks(ctx, userID).
		Where("completed = ? AND due_date < ?", false, e.now()).
		Count(&stats.Overdue).Error; err != nil {
		return nil, failed("tasks", err)
	}

	var hours struct {
		Estimated float64
		Actual    float64
	}
	if err := e.activeTasks(ctx, userID).
		Select("COALESCE(SUM(estimated_hours), 0) AS estimated, COALESCE(SUM(actual_hours), 0) AS actual").
		Scan(&hours).Error; err != nil {
		return nil, failed("tasks", err)
	}
	stats.EstimatedHours = round2(hours.Estimated)
	stats.ActualHours = round2(hours.Actual)
	return stats, nil
}

// TimeStats breaks estimated against actual hours down by task type and by project.
// Efficiency is estimated/actual as a percentage, 0 when no hours were logged.
func (e *Engine) TimeStats(ctx context.Context, userID uint, p Period) (*TimeStats, error) {
	start, end := p.Window(e.now())
	stats := &TimeStats{Period: p.String(), ByType: []HoursBreakdown{}, ByProject: []HoursBreakdown{}}

	err := e.activeTasks(ctx, userID).
		Select("type AS label, COUNT(*) AS tasks, COALESCE(SUM(estimated_hours), 0) AS estimated, COALESCE(SUM(actual_hours), 0) AS actual").
		Where("created_at >= ? AND created_at <= ?", start, end).
		Group("type").
		Order("type").
		Scan(&stats.ByType).Error
	if err != nil {
		return nil, failed("time by type", err)
	}

	err = e.db.WithContext(ctx).
		Table("tasks").
		Select("CAST(tasks.project_id AS TEXT) AS label, projects.name AS name, COUNT(*) AS tasks, "+
			"COALESCE(SUM(tasks.estimated_hours), 0) AS estimated, COALESCE(SUM(tasks.actual_hours), 0) AS actual").
		Joins("JOIN projects ON projects.id = tasks.project_id").
		Where("tasks.user_id = ? AND tasks.is_archived = ?", userID, false).
		Where("tasks.created_at >= ? AND tasks.created_at <= ?", start, end).
		Group("tasks.project_id, projects.name").
		Order("actual DESC").
		Scan(&stats.ByProject).Error
	if err != nil {
		return nil, failed("time by project", err)
	}

	for i := range stats.ByType {
		b := &stats.ByType[i]
		b.Estimated, b.Actual = round2(b.Estimated), round2(b.Actual)
		stats.Estimated += b.Estimated
		stats.Actual += b.Actual
	}
	for i := range stats.ByProject {
		b := &stats.ByProject[i]
		b.Estimated, b.Actual = round2(b.Estimated), round2(b.Actual)
	}
	stats.Estimated, stats.Actual = round2(stats.Estimated), round2(stats.Actual)
	if stats.Actual > 0 {
		stats.Efficiency = round2(stats.Estimated / stats.Actual * 100)
	}
	return stats, nil
}

// UpcomingDeadlines returns open, non-archived projects and tasks due within the next days.
func (e *Engine) UpcomingDeadlines(ctx context.Context, userID uint, days int) (*Deadlines, error) {
	if days <= 0 {
		days = 7
	}
	now := e.now()
	until := now.AddDate(0, 0, days)
	out := &Deadlines{Days: days, Projects: []models.Project{}, Tasks: []models.Task{}}

	err := dueBetween(e.activeProjects(ctx, userID), now, until).
		Where("status <> ?", models.ProjectStatusCompleted).
		Order("due_date").Limit(deadlineLimit).
		Find(&out.Projects).Error
	if err != nil {
		return nil, failed("deadlines", err)
	}
	err = dueBetween(e.activeTasks(ctx, userID), now, until).
		Where("completed = ?", false).
		Order("due_date").Limit(deadlineLimit).
		Find(&out.Tasks).Error
	if err != nil {
		return nil, failed("deadlines", err)
	}
	return out, nil
}
