package analytics

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Snapshot is the combined report behind the dashboard and the exportable report.
type Snapshot struct {
	Period      string        `json:"period"`
	GeneratedAt time.Time     `json:"generatedAt"`
	Revenue     *RevenueStats `json:"revenue"`
	Clients     *ClientStats  `json:"clients"`
	Projects    *ProjectStats `json:"projects"`
	Tasks       *TaskStats    `json:"tasks"`
}

// Snapshot runs the revenue, client, project and task aggregations concurrently.
// The first failure cancels the others and no partial snapshot is returned.
func (e *Engine) Snapshot(ctx context.Context, userID uint, p Period) (*Snapshot, error) {
	snap := &Snapshot{Period: p.String()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Revenue, err = e.RevenueStats(gctx, userID, p)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Clients, err = e.ClientStats(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Projects, err = e.ProjectStats(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Tasks, err = e.TaskStats(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	snap.GeneratedAt = e.now()
	return snap, nil
}
