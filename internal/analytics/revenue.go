package analytics

import (
	"context"
	"time"

	"github.com/diewo77/solodesk/internal/models"
)

// RevenuePoint is one bucket of the revenue series.
type RevenuePoint struct {
	Bucket  string  `json:"period"`
	Revenue float64 `json:"revenue"`
	Count   int64   `json:"count"`
}

// ClientRevenue ranks a client by the receipts recorded against it.
type ClientRevenue struct {
	ClientID uint    `json:"clientId"`
	Name     string  `json:"name"`
	Revenue  float64 `json:"revenue"`
	Payments int64   `json:"payments"`
}

// RevenueStats is the revenue section of the dashboard and report.
type RevenueStats struct {
	Period         string             `json:"period"`
	Start          time.Time          `json:"start"`
	End            time.Time          `json:"end"`
	Total          float64            `json:"totalRevenue"`
	Payments       int64              `json:"paymentCount"`
	AveragePayment float64            `json:"averagePayment"`
	OverTime       []RevenuePoint     `json:"overTime"`
	TopClients     []ClientRevenue    `json:"topClients"`
	InvoiceTotals  map[string]float64 `json:"invoiceTotals"`
	Outstanding    float64            `json:"outstanding"`
}

// RevenueOverTime sums receipt amounts per bucket of the period window, ascending by bucket.
func (e *Engine) RevenueOverTime(ctx context.Context, userID uint, p Period) ([]RevenuePoint, error) {
	start, end := p.Window(e.now())
	expr := bucketExpr(e.dialect(), p.Granularity(), "payment_date")
	points := []RevenuePoint{}
	err := e.owned(ctx, userID, &models.Receipt{}).
		Select(expr+" AS bucket, COALESCE(SUM(amount), 0) AS revenue, COUNT(*) AS count").
		Where("payment_date >= ? AND payment_date <= ?", start, end).
		Group("bucket").
		Order("bucket").
		Scan(&points).Error
	if err != nil {
		return nil, failed("revenue", err)
	}
	return points, nil
}

// TopClients ranks clients by receipt revenue since the given time (zero means all time)
// and resolves their names in one query. Deleted clients become UnknownClient.
func (e *Engine) TopClients(ctx context.Context, userID uint, limit int, since time.Time) ([]ClientRevenue, error) {
	if limit <= 0 {
		limit = 5
	}
	q := e.owned(ctx, userID, &models.Receipt{}).
		Select("client_id, COALESCE(SUM(amount), 0) AS revenue, COUNT(*) AS payments")
	if !since.IsZero() {
		q = q.Where("payment_date >= ?", since)
	}
	ranked := []ClientRevenue{}
	if err := q.Group("client_id").Order("revenue DESC").Order("client_id").Limit(limit).Scan(&ranked).Error; err != nil {
		return nil, failed("top clients", err)
	}
	if len(ranked) == 0 {
		return ranked, nil
	}

	ids := make([]uint, len(ranked))
	for i, r := range ranked {
		ids[i] = r.ClientID
	}
	var clients []models.Client
	if err := e.owned(ctx, userID, &models.Client{}).Select("id, name").Where("id IN ?", ids).Find(&clients).Error; err != nil {
		return nil, failed("top clients", err)
	}
	names := make(map[uint]string, len(clients))
	for _, c := range clients {
		names[c.ID] = c.Name
	}
	for i := range ranked {
		ranked[i].Revenue = round2(ranked[i].Revenue)
		if name, ok := names[ranked[i].ClientID]; ok {
			ranked[i].Name = name
		} else {
			ranked[i].Name = UnknownClient
		}
	}
	return ranked, nil
}

// RevenueStats assembles the revenue series, totals, invoice sums by status and the top five clients.
func (e *Engine) RevenueStats(ctx context.Context, userID uint, p Period) (*RevenueStats, error) {
	start, end := p.Window(e.now())
	stats := &RevenueStats{Period: p.String(), Start: start, End: end, InvoiceTotals: map[string]float64{}}

	points, err := e.RevenueOverTime(ctx, userID, p)
	if err != nil {
		return nil, err
	}
	stats.OverTime = points
	for _, pt := range points {
		stats.Total += pt.Revenue
		stats.Payments += pt.Count
	}
	stats.Total = round2(stats.Total)
	if stats.Payments > 0 {
		stats.AveragePayment = round2(stats.Total / float64(stats.Payments))
	}

	var totals []struct {
		Status string
		Amount float64
	}
	err = e.owned(ctx, userID, &models.Invoice{}).
		Select("status, COALESCE(SUM(total), 0) AS amount").
		Group("status").
		Scan(&totals).Error
	if err != nil {
		return nil, failed("invoice totals", err)
	}
	for _, t := range totals {
		stats.InvoiceTotals[t.Status] = round2(t.Amount)
	}
	stats.Outstanding = round2(stats.InvoiceTotals[string(models.InvoiceStatusPending)] +
		stats.InvoiceTotals[string(models.InvoiceStatusOverdue)])

	if stats.TopClients, err = e.TopClients(ctx, userID, 5, start); err != nil {
		return nil, err
	}
	return stats, nil
}
