package analytics

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/diewo77/solodesk/internal/apperr"
	"github.com/diewo77/solodesk/internal/db/dbtest"
	"github.com/diewo77/solodesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC)

type env struct {
	db     *gorm.DB
	engine *Engine
	ctx    context.Context
	user   models.User
	seq    int
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gdb := dbtest.New(t)
	e := &env{db: gdb, ctx: context.Background()}
	e.engine = New(gdb).WithClock(func() time.Time { return testNow })
	e.user = models.User{Email: "owner@example.com", Password: "hash"}
	require.NoError(t, gdb.Create(&e.user).Error)
	return e
}

func (e *env) client(t *testing.T, name string, created time.Time) models.Client {
	t.Helper()
	e.seq++
	c := models.Client{UserID: e.user.ID, Name: name, Email: fmt.Sprintf("c%d@example.com", e.seq), CreatedAt: created}
	require.NoError(t, e.db.Create(&c).Error)
	return c
}

func (e *env) receipt(t *testing.T, clientID uint, amount float64, paid time.Time) {
	t.Helper()
	e.seq++
	r := models.Receipt{
		UserID: e.user.ID, ReceiptNumber: fmt.Sprintf("RCP-T-%04d", e.seq), InvoiceID: uint(e.seq),
		ClientID: clientID, Amount: amount, Currency: "USD", PaymentMethod: "bank_transfer", PaymentDate: paid,
	}
	require.NoError(t, e.db.Create(&r).Error)
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		raw     string
		want    Period
		wantErr bool
	}{
		{"", Period{Name: Month}, false},
		{"Quarter", Period{Name: Quarter}, false},
		{"year", Period{Name: Year}, false},
		{"30", Period{Name: "30", Days: 30}, false},
		{"0", Period{}, true},
		{"-5", Period{}, true},
		{"week", Period{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParsePeriod(tt.raw)
			if tt.wantErr {
				assert.True(t, apperr.Is(err, apperr.CodeInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPeriodWindow(t *testing.T) {
	tests := []struct {
		p     Period
		start time.Time
	}{
		{Period{Name: Month}, time.Date(2023, time.April, 1, 0, 0, 0, 0, time.UTC)},
		{Period{Name: Quarter}, time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{Period{Name: Year}, time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{Period{Name: "10", Days: 10}, testNow.AddDate(0, 0, -10)},
	}
	for _, tt := range tests {
		start, end := tt.p.Window(testNow)
		assert.True(t, start.Equal(tt.start), "%s: got %s", tt.p, start)
		assert.True(t, end.Equal(testNow))
	}
}

func TestBucketKey(t *testing.T) {
	ts := time.Date(2024, time.August, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-08", bucketKey(ts, Month))
	assert.Equal(t, "2024-Q3", bucketKey(ts, Quarter))
	assert.Equal(t, "2024", bucketKey(ts, Year))
}

func TestCompletionRate(t *testing.T) {
	assert.Equal(t, 0.0, CompletionRate(0, 0))
	assert.Equal(t, 0.0, CompletionRate(5, 0))
	assert.Equal(t, 33.33, CompletionRate(1, 3))
	assert.Equal(t, 66.67, CompletionRate(2, 3))
	assert.Equal(t, 100.0, CompletionRate(4, 4))
}

func TestRevenueBucketsMatchReceiptSum(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, "Acme Co", testNow)
	paid := []struct {
		amount float64
		at     time.Time
	}{
		{100, time.Date(2023, time.March, 31, 23, 0, 0, 0, time.UTC)},
		{250.5, time.Date(2023, time.April, 1, 0, 0, 0, 0, time.UTC)},
		{80, time.Date(2023, time.December, 10, 12, 0, 0, 0, time.UTC)},
		{40, time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)},
		{60, time.Date(2024, time.March, 15, 8, 0, 0, 0, time.UTC)},
		{999, time.Date(2024, time.March, 16, 0, 0, 0, 0, time.UTC)},
	}
	for _, p := range paid {
		e.receipt(t, c.ID, p.amount, p.at)
	}

	for _, name := range []string{Month, Quarter, Year, "90"} {
		t.Run(name, func(t *testing.T) {
			p, err := ParsePeriod(name)
			require.NoError(t, err)
			start, end := p.Window(testNow)

			var want float64
			var wantCount int64
			keys := map[string]bool{}
			for _, r := range paid {
				if !r.at.Before(start) && !r.at.After(end) {
					want += r.amount
					wantCount++
					keys[bucketKey(r.at, p.Granularity())] = true
				}
			}

			points, err := e.engine.RevenueOverTime(e.ctx, e.user.ID, p)
			require.NoError(t, err)
			var got float64
			var gotCount int64
			for i, pt := range points {
				got += pt.Revenue
				gotCount += pt.Count
				assert.True(t, keys[pt.Bucket], "unexpected bucket %q", pt.Bucket)
				if i > 0 {
					assert.Less(t, points[i-1].Bucket, pt.Bucket)
				}
			}
			assert.InDelta(t, want, got, 0.001)
			assert.Equal(t, wantCount, gotCount)
			assert.Len(t, points, len(keys))
		})
	}
}

func TestRevenueMonthBuckets(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, "Acme Co", testNow)
	e.receipt(t, c.ID, 40, time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC))
	e.receipt(t, c.ID, 60, time.Date(2024, time.March, 15, 8, 0, 0, 0, time.UTC))
	e.receipt(t, c.ID, 80, time.Date(2023, time.December, 10, 12, 0, 0, 0, time.UTC))

	points, err := e.engine.RevenueOverTime(e.ctx, e.user.ID, Period{Name: Month})
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, RevenuePoint{Bucket: "2023-12", Revenue: 80, Count: 1}, points[0])
	assert.Equal(t, RevenuePoint{Bucket: "2024-03", Revenue: 100, Count: 2}, points[1])

	quarters, err := e.engine.RevenueOverTime(e.ctx, e.user.ID, Period{Name: Quarter})
	require.NoError(t, err)
	require.Len(t, quarters, 2)
	assert.Equal(t, "2023-Q4", quarters[0].Bucket)
	assert.Equal(t, "2024-Q1", quarters[1].Bucket)
}

func TestTopClientsUnknownFallback(t *testing.T) {
	e := newEnv(t)
	acme := e.client(t, "Acme Co", testNow)
	globex := e.client(t, "Globex", testNow)
	e.receipt(t, acme.ID, 100, testNow.Add(-time.Hour))
	e.receipt(t, acme.ID, 50, testNow.Add(-2*time.Hour))
	e.receipt(t, globex.ID, 500, testNow.Add(-3*time.Hour))
	e.receipt(t, 9999, 20, testNow.Add(-4*time.Hour))

	top, err := e.engine.TopClients(e.ctx, e.user.ID, 5, time.Time{})
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, ClientRevenue{ClientID: globex.ID, Name: "Globex", Revenue: 500, Payments: 1}, top[0])
	assert.Equal(t, ClientRevenue{ClientID: acme.ID, Name: "Acme Co", Revenue: 150, Payments: 2}, top[1])
	assert.Equal(t, UnknownClient, top[2].Name)

	limited, err := e.engine.TopClients(e.ctx, e.user.ID, 1, time.Time{})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestClientGrowth(t *testing.T) {
	e := newEnv(t)
	e.client(t, "Old", time.Date(2022, time.January, 5, 0, 0, 0, 0, time.UTC))
	e.client(t, "A", time.Date(2023, time.June, 5, 0, 0, 0, 0, time.UTC))
	e.client(t, "B", time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC))
	e.client(t, "C", time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC))

	growth, err := e.engine.ClientGrowth(e.ctx, e.user.ID)
	require.NoError(t, err)
	assert.Equal(t, []GrowthPoint{{Bucket: "2023-06", Count: 1}, {Bucket: "2024-03", Count: 2}}, growth)

	stats, err := e.engine.ClientStats(e.ctx, e.user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(2), stats.NewThisMonth)
	assert.Equal(t, int64(4), stats.ByStatus[string(models.ClientStatusLead)])
}

func (e *env) project(t *testing.T, p models.Project) models.Project {
	t.Helper()
	p.UserID = e.user.ID
	if p.Name == "" {
		p.Name = "Project"
	}
	if p.ClientID == 0 {
		p.ClientID = 1
	}
	require.NoError(t, e.db.Create(&p).Error)
	return p
}

func day(d int) *time.Time {
	t := testNow.AddDate(0, 0, d)
	return &t
}

func TestProjectDurationStats(t *testing.T) {
	e := newEnv(t)
	e.project(t, models.Project{Status: models.ProjectStatusCompleted, StartDate: day(-30), DueDate: day(-20)})
	e.project(t, models.Project{Status: models.ProjectStatusCompleted, StartDate: day(-30), DueDate: day(0)})
	e.project(t, models.Project{Status: models.ProjectStatusCompleted, DueDate: day(-5)})
	e.project(t, models.Project{Status: models.ProjectStatusInProgress, StartDate: day(-100), DueDate: day(0)})

	stats, err := e.engine.ProjectDurationStats(e.ctx, e.user.ID)
	require.NoError(t, err)
	assert.Equal(t, DurationStats{Projects: 2, AverageDays: 20, MinDays: 10, MaxDays: 30}, stats)
}

func TestDeadlineSuccessRate(t *testing.T) {
	e := newEnv(t)
	empty, err := e.engine.DeadlineSuccessRate(e.ctx, e.user.ID)
	require.NoError(t, err)
	assert.Zero(t, empty.SuccessRate)

	e.project(t, models.Project{Status: models.ProjectStatusCompleted, DueDate: day(-1), CompletedAt: day(-2)})
	e.project(t, models.Project{Status: models.ProjectStatusCompleted, DueDate: day(-1), CompletedAt: day(-1)})
	e.project(t, models.Project{Status: models.ProjectStatusCompleted, DueDate: day(-10), CompletedAt: day(-3)})
	e.project(t, models.Project{Status: models.ProjectStatusInProgress, DueDate: day(-10)})

	stats, err := e.engine.DeadlineSuccessRate(e.ctx, e.user.ID)
	require.NoError(t, err)
	assert.Equal(t, DeadlineStats{OnTime: 2, Late: 1, SuccessRate: 66.67}, stats)
}

func TestProjectAndTaskStats(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, models.Project{Status: models.ProjectStatusInProgress, DueDate: day(-1), Budget: 1000, Progress: 50})
	e.project(t, models.Project{Status: models.ProjectStatusCompleted, Budget: 500, Progress: 100})
	e.project(t, models.Project{Status: models.ProjectStatusNotStarted, IsArchived: true})

	tasks := []models.Task{
		{Name: "a", Completed: true, Type: models.TaskTypeBug, EstimatedHours: 2, ActualHours: 3},
		{Name: "b", DueDate: day(-2), EstimatedHours: 4, ActualHours: 1},
		{Name: "c", DueDate: day(2)},
		{Name: "d", IsArchived: true, EstimatedHours: 100},
	}
	for i := range tasks {
		tasks[i].UserID, tasks[i].ProjectID = e.user.ID, p.ID
		require.NoError(t, e.db.Create(&tasks[i]).Error)
	}

	ps, err := e.engine.ProjectStats(e.ctx, e.user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ps.Total)
	assert.Equal(t, int64(1), ps.Completed)
	assert.Equal(t, int64(1), ps.Active)
	assert.Equal(t, int64(1), ps.Overdue)
	assert.Equal(t, 50.0, ps.CompletionRate)
	assert.Equal(t, 75.0, ps.AverageProgress)
	assert.Equal(t, 1500.0, ps.TotalBudget)

	ts, err := e.engine.TaskStats(e.ctx, e.user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), ts.Total)
	assert.Equal(t, int64(1), ts.Completed)
	assert.Equal(t, int64(2), ts.Pending)
	assert.Equal(t, int64(1), ts.Overdue)
	assert.Equal(t, 33.33, ts.CompletionRate)
	assert.Equal(t, 6.0, ts.EstimatedHours)
	assert.Equal(t, 4.0, ts.ActualHours)
	assert.Equal(t, int64(1), ts.ByType[string(models.TaskTypeBug)])

	upcoming, err := e.engine.UpcomingDeadlines(e.ctx, e.user.ID, 7)
	require.NoError(t, err)
	require.Len(t, upcoming.Tasks, 1)
	assert.Equal(t, "c", upcoming.Tasks[0].Name)
	assert.Empty(t, upcoming.Projects)
}

func TestTimeStats(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, models.Project{Name: "Website"})
	for _, task := range []models.Task{
		{Name: "a", Type: models.TaskTypeBug, EstimatedHours: 2, ActualHours: 4},
		{Name: "b", Type: models.TaskTypeFeature, EstimatedHours: 6, ActualHours: 4},
	} {
		task.UserID, task.ProjectID, task.CreatedAt = e.user.ID, p.ID, testNow.Add(-time.Hour)
		require.NoError(t, e.db.Create(&task).Error)
	}

	stats, err := e.engine.TimeStats(e.ctx, e.user.ID, Period{Name: Month})
	require.NoError(t, err)
	assert.Equal(t, 8.0, stats.Estimated)
	assert.Equal(t, 8.0, stats.Actual)
	assert.Equal(t, 100.0, stats.Efficiency)
	require.Len(t, stats.ByType, 2)
	assert.Equal(t, string(models.TaskTypeBug), stats.ByType[0].Label)
	require.Len(t, stats.ByProject, 1)
	assert.Equal(t, "Website", stats.ByProject[0].Name)
	assert.Equal(t, int64(2), stats.ByProject[0].Tasks)
}

func TestSnapshot(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, "Acme Co", testNow.Add(-time.Hour))
	e.receipt(t, c.ID, 120, testNow.Add(-time.Hour))
	e.project(t, models.Project{ClientID: c.ID, Status: models.ProjectStatusInProgress})

	snap, err := e.engine.Snapshot(e.ctx, e.user.ID, Period{Name: Month})
	require.NoError(t, err)
	assert.True(t, snap.GeneratedAt.Equal(testNow))
	assert.Equal(t, 120.0, snap.Revenue.Total)
	assert.Equal(t, int64(1), snap.Revenue.Payments)
	require.Len(t, snap.Revenue.TopClients, 1)
	assert.Equal(t, "Acme Co", snap.Revenue.TopClients[0].Name)
	assert.Equal(t, int64(1), snap.Clients.Total)
	assert.Equal(t, int64(1), snap.Projects.Total)
	assert.Zero(t, snap.Tasks.Total)
}

func TestSnapshotScopedToOwner(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, "Acme Co", testNow)
	e.receipt(t, c.ID, 120, testNow.Add(-time.Hour))

	other := models.User{Email: "other@example.com", Password: "hash"}
	require.NoError(t, e.db.Create(&other).Error)
	snap, err := e.engine.Snapshot(e.ctx, other.ID, Period{Name: Year})
	require.NoError(t, err)
	assert.Zero(t, snap.Revenue.Total)
	assert.Empty(t, snap.Revenue.OverTime)
	assert.Zero(t, snap.Clients.Total)
}

func TestSnapshotFailsWholeOnError(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, "Acme Co", testNow.AddDate(0, 0, -3))
	e.receipt(t, c.ID, 100, testNow.AddDate(0, 0, -1))
	require.NoError(t, e.db.Migrator().DropTable(&models.Receipt{}))

	snap, err := e.engine.Snapshot(e.ctx, e.user.ID, Period{Name: Month})
	require.Error(t, err)
	assert.Nil(t, snap, "no partial snapshot on failure")
	assert.True(t, apperr.Is(err, apperr.CodeDatabase))
	assert.Equal(t, http.StatusInternalServerError, apperr.HTTPStatus(err))
}
