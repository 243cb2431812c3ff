package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/diewo77/solodesk/internal/config"
	"github.com/diewo77/solodesk/internal/db/dbtest"
	"github.com/diewo77/solodesk/internal/models"
	"github.com/diewo77/solodesk/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	mu       sync.Mutex
	sweeps   []time.Time
	cleanups []time.Time
	err      error
}

func (f *fakeSweeper) Sweep(_ context.Context, now time.Time) (services.SweepResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps = append(f.sweeps, now)
	return services.SweepResult{ProjectsDueSoon: 1}, f.err
}

func (f *fakeSweeper) ArchiveRead(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanups = append(f.cleanups, now)
	return 2, f.err
}

func (f *fakeSweeper) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sweeps), len(f.cleanups)
}

func TestNewDefaultsInterval(t *testing.T) {
	s := New(&fakeSweeper{}, config.SchedulerConfig{})
	assert.Equal(t, time.Hour, s.interval)
	assert.Equal(t, 0, s.cleanupHour)
}

func TestRunOnceCleanupAtConfiguredHour(t *testing.T) {
	f := &fakeSweeper{}
	s := New(f, config.SchedulerConfig{CleanupHour: 3})

	s.now = func() time.Time { return time.Date(2024, 3, 15, 2, 0, 0, 0, time.UTC) }
	s.RunOnce(context.Background())
	sweeps, cleanups := f.counts()
	assert.Equal(t, 1, sweeps)
	assert.Equal(t, 0, cleanups)

	s.now = func() time.Time { return time.Date(2024, 3, 15, 3, 0, 0, 0, time.UTC) }
	s.RunOnce(context.Background())
	s.RunOnce(context.Background())
	sweeps, cleanups = f.counts()
	assert.Equal(t, 3, sweeps)
	assert.Equal(t, 1, cleanups, "cleanup runs once per day")

	s.now = func() time.Time { return time.Date(2024, 3, 16, 3, 30, 0, 0, time.UTC) }
	s.RunOnce(context.Background())
	_, cleanups = f.counts()
	assert.Equal(t, 2, cleanups)
}

func TestRunOnceSurvivesErrors(t *testing.T) {
	f := &fakeSweeper{err: errors.New("db down")}
	s := New(f, config.SchedulerConfig{})
	s.now = func() time.Time { return time.Date(2024, 3, 15, 0, 5, 0, 0, time.UTC) }

	assert.NotPanics(t, func() { s.RunOnce(context.Background()) })
	sweeps, cleanups := f.counts()
	assert.Equal(t, 1, sweeps)
	assert.Equal(t, 1, cleanups)
}

func TestStartSweepsImmediatelyAndStops(t *testing.T) {
	f := &fakeSweeper{}
	s := New(f, config.SchedulerConfig{Interval: 10 * time.Millisecond, CleanupHour: -1})
	s.Start(context.Background())
	s.Start(context.Background())

	require.Eventually(t, func() bool {
		sweeps, _ := f.counts()
		return sweeps >= 3
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	after, _ := f.counts()
	time.Sleep(30 * time.Millisecond)
	final, cleanups := f.counts()
	assert.Equal(t, after, final, "no sweep after Stop returns")
	assert.Zero(t, cleanups)

	s.Stop()
}

func TestStopOnContextCancel(t *testing.T) {
	f := &fakeSweeper{}
	s := New(f, config.SchedulerConfig{Interval: time.Hour, CleanupHour: -1})
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	require.Eventually(t, func() bool {
		sweeps, _ := f.counts()
		return sweeps == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	s.Stop()
}

func TestSchedulerWithNotificationService(t *testing.T) {
	gdb := dbtest.New(t)
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	user := models.User{Email: "owner@example.com", Password: "hash"}
	require.NoError(t, gdb.Create(&user).Error)
	due := now.Add(6 * time.Hour)
	require.NoError(t, gdb.Create(&models.Project{UserID: user.ID, ClientID: 1, Name: "Website", DueDate: &due}).Error)

	svc := services.NewNotificationService(gdb)
	s := New(svc, config.SchedulerConfig{CleanupHour: -1})
	s.now = func() time.Time { return now }

	s.RunOnce(context.Background())
	s.now = func() time.Time { return now.Add(time.Hour) }
	s.RunOnce(context.Background())

	var n int64
	require.NoError(t, gdb.Model(&models.Notification{}).
		Where("type = ?", models.NotificationProjectDueSoon).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}
