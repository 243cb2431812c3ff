package analytics

import (
	"context"
	"time"

	"github.com/diewo77/solodesk/internal/models"
)

// GrowthPoint counts clients created in one month.
type GrowthPoint struct {
	Bucket string `json:"month"`
	Count  int64  `json:"count"`
}

// ClientStats is the client section of the dashboard and report.
type ClientStats struct {
	Total        int64            `json:"total"`
	ByStatus     map[string]int64 `json:"byStatus"`
	ByType       map[string]int64 `json:"byType"`
	NewThisMonth int64            `json:"newThisMonth"`
	Growth       []GrowthPoint    `json:"growth"`
	TopClients   []ClientRevenue  `json:"topClients"`
}

// ClientGrowth counts clients per creation month over the trailing 12 months.
func (e *Engine) ClientGrowth(ctx context.Context, userID uint) ([]GrowthPoint, error) {
	start, end := Period{Name: Month}.Window(e.now())
	expr := bucketExpr(e.dialect(), Month, "created_at")
	points := []GrowthPoint{}
	err := e.owned(ctx, userID, &models.Client{}).
		Select(expr+" AS bucket, COUNT(*) AS count").
		Where("created_at >= ? AND created_at <= ?", start, end).
		Group("bucket").
		Order("bucket").
		Scan(&points).Error
	if err != nil {
		return nil, failed("client growth", err)
	}
	return points, nil
}

// ClientStats summarises the owner's client base. Top clients are ranked over all time.
func (e *Engine) ClientStats(ctx context.Context, userID uint) (*ClientStats, error) {
	stats := &ClientStats{}
	var err error
	if stats.ByStatus, err = countBy(e.owned(ctx, userID, &models.Client{}), "status"); err != nil {
		return nil, failed("clients", err)
	}
	if stats.ByType, err = countBy(e.owned(ctx, userID, &models.Client{}), "type"); err != nil {
		return nil, failed("clients", err)
	}
	stats.Total = sum(stats.ByStatus)

	if err := e.owned(ctx, userID, &models.Client{}).
		Where("created_at >= ?", monthStart(e.now())).
		Count(&stats.NewThisMonth).Error; err != nil {
		return nil, failed("clients", err)
	}
	if stats.Growth, err = e.ClientGrowth(ctx, userID); err != nil {
		return nil, err
	}
	if stats.TopClients, err = e.TopClients(ctx, userID, 10, time.Time{}); err != nil {
		return nil, err
	}
	return stats, nil
}
