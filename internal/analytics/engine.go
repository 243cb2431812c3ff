// Package analytics computes the read-only dashboard and report figures: revenue series,
// client rankings and growth, project and task statistics. Every query is scoped to one
// owner and runs as SQL aggregation against the same store the services write.
package analytics

import (
	"context"
	"time"

	"github.com/diewo77/solodesk/internal/apperr"
	"github.com/diewo77/solodesk/internal/policy"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UnknownClient names receipts whose client no longer resolves.
const UnknownClient = "Unknown Client"

// Engine runs aggregations. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	db  *gorm.DB
	now func() time.Time
}

func New(db *gorm.DB) *Engine {
	return &Engine{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock returns a copy of e reading the current time from now.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	c := *e
	c.now = now
	return &c
}

func (e *Engine) dialect() string {
	return e.db.Dialector.Name()
}

// owned starts a query on model restricted to userID.
func (e *Engine) owned(ctx context.Context, userID uint, model any) *gorm.DB {
	return e.db.WithContext(ctx).Model(model).Scopes(policy.OwnedBy(userID))
}

func failed(what string, err error) error {
	return apperr.Dependency("failed to aggregate "+what, err)
}

// CompletionRate is completed/total as a percentage with two decimals; 0 when total is 0.
func CompletionRate(completed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	f, _ := decimal.NewFromInt(completed).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(total)).
		Round(2).Float64()
	return f
}

func round2(x float64) float64 {
	f, _ := decimal.NewFromFloat(x).Round(2).Float64()
	return f
}

type labelCount struct {
	Label string
	Count int64
}

// countBy groups the rows of q by column and returns the counts keyed by value.
func countBy(q *gorm.DB, column string) (map[string]int64, error) {
	var rows []labelCount
	if err := q.Select(column + " AS label, COUNT(*) AS count").Group(column).Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Label] = r.Count
	}
	return out, nil
}

func sum(m map[string]int64) int64 {
	var n int64
	for _, v := range m {
		n += v
	}
	return n
}
