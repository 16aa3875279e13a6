package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/cubscope/pkg/domain"
	"github.com/umputun/cubscope/pkg/scheduler/mocks"
)

// startScheduler runs the owner loop in background, returned func stops it and waits for exit
func startScheduler(t *testing.T, cfg Config) (*Scheduler, func()) {
	t.Helper()
	s, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	stop := func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("scheduler didn't stop")
		}
	}
	t.Cleanup(stop)
	return s, stop
}

func hasItems(v bool) *mocks.ArtifactMock {
	return &mocks.ArtifactMock{HasItemsFunc: func() bool { return v }}
}

func resultWith(count int) *domain.Result {
	return &domain.Result{Count: count, Items: make([]domain.Item, count),
		Meta: domain.Meta{RunID: "run-1", SourcesTotal: 2, SourcesOK: 1, SourcesFailed: 1,
			Sources: []domain.SourceReport{{Name: "a"}, {Name: "b", Error: "timeout"}}}}
}

func TestScheduler_Trigger(t *testing.T) {
	release := make(chan struct{})
	coll := &mocks.CollectorMock{RunFunc: func(ctx context.Context, sources []domain.Source) (*domain.Result, error) {
		<-release
		return resultWith(3), nil
	}}
	sources := []domain.Source{{Name: "a", URL: "http://a"}}
	s, _ := startScheduler(t, Config{Collector: coll, Artifact: hasItems(true), Sources: sources})

	res, err := s.Trigger(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Started, res)

	st := s.Status()
	assert.True(t, st.Running)
	assert.False(t, st.LastStart.IsZero())
	assert.True(t, st.NextRun.IsZero(), "no schedule configured")

	res, err = s.Trigger(context.Background())
	require.NoError(t, err)
	assert.Equal(t, AlreadyRunning, res)

	close(release)
	require.Eventually(t, func() bool { return !s.Status().Running }, time.Second, 10*time.Millisecond)

	st = s.Status()
	assert.Equal(t, 1, st.Runs)
	assert.Equal(t, 3, st.LastCount)
	assert.Empty(t, st.LastError)
	assert.False(t, st.LastEnd.Before(st.LastStart))

	require.Len(t, coll.RunCalls(), 1, "second trigger didn't start another run")
	assert.Equal(t, sources, coll.RunCalls()[0].Sources)

	// idle again, next trigger starts a new run
	res, err = s.Trigger(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Started, res)
	require.Eventually(t, func() bool { return s.Status().Runs == 2 }, time.Second, 10*time.Millisecond)
}

func TestScheduler_FailedRunKeepsLastCount(t *testing.T) {
	var calls int32
	coll := &mocks.CollectorMock{RunFunc: func(ctx context.Context, sources []domain.Source) (*domain.Result, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return resultWith(2), nil
		}
		return resultWith(0), errors.New("save result: disk full")
	}}
	s, _ := startScheduler(t, Config{Collector: coll, Artifact: hasItems(true)})

	_, err := s.Trigger(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.Status().Runs == 1 }, time.Second, 10*time.Millisecond)

	_, err = s.Trigger(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.Status().Runs == 2 }, time.Second, 10*time.Millisecond)

	st := s.Status()
	assert.Equal(t, 2, st.LastCount, "failed run doesn't replace last count")
	assert.Equal(t, "save result: disk full", st.LastError)
	assert.False(t, st.Running)
}

func TestScheduler_StartupRun(t *testing.T) {
	t.Run("collects when no stored items", func(t *testing.T) {
		coll := &mocks.CollectorMock{RunFunc: func(ctx context.Context, sources []domain.Source) (*domain.Result, error) {
			return resultWith(1), nil
		}}
		s, _ := startScheduler(t, Config{Collector: coll, Artifact: hasItems(false)})
		require.Eventually(t, func() bool { return s.Status().Runs == 1 }, time.Second, 10*time.Millisecond)
		assert.Len(t, coll.RunCalls(), 1)
	})

	t.Run("skips when items stored", func(t *testing.T) {
		coll := &mocks.CollectorMock{RunFunc: func(ctx context.Context, sources []domain.Source) (*domain.Result, error) {
			return resultWith(1), nil
		}}
		artifact := hasItems(true)
		s, _ := startScheduler(t, Config{Collector: coll, Artifact: artifact})
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, 0, s.Status().Runs)
		assert.Empty(t, coll.RunCalls())
		assert.Len(t, artifact.HasItemsCalls(), 1)
	})
}

func TestScheduler_History(t *testing.T) {
	coll := &mocks.CollectorMock{RunFunc: func(ctx context.Context, sources []domain.Source) (*domain.Result, error) {
		return resultWith(4), nil
	}}
	hist := &mocks.HistoryMock{SaveRunFunc: func(ctx context.Context, rec domain.RunRecord, sources []domain.SourceReport) error {
		return errors.New("database is locked")
	}}
	s, _ := startScheduler(t, Config{Collector: coll, Artifact: hasItems(true), History: hist})

	_, err := s.Trigger(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.Status().Runs == 1 }, time.Second, 10*time.Millisecond)

	st := s.Status()
	assert.Empty(t, st.LastError, "history failure doesn't fail the run")
	assert.Equal(t, 4, st.LastCount)

	require.Len(t, hist.SaveRunCalls(), 1)
	call := hist.SaveRunCalls()[0]
	assert.Equal(t, "run-1", call.Rec.ID)
	assert.Equal(t, "manual", call.Rec.Trigger)
	assert.Equal(t, 4, call.Rec.Count)
	assert.Equal(t, 1, call.Rec.SourcesOK)
	assert.Equal(t, 1, call.Rec.SourcesFailed)
	assert.Empty(t, call.Rec.Error)
	assert.Len(t, call.Sources, 2)
}

func TestScheduler_HistoryOnError(t *testing.T) {
	coll := &mocks.CollectorMock{RunFunc: func(ctx context.Context, sources []domain.Source) (*domain.Result, error) {
		return nil, errors.New("boom")
	}}
	hist := &mocks.HistoryMock{SaveRunFunc: func(ctx context.Context, rec domain.RunRecord, sources []domain.SourceReport) error {
		return nil
	}}
	s, _ := startScheduler(t, Config{Collector: coll, Artifact: hasItems(false), History: hist})
	require.Eventually(t, func() bool { return s.Status().Runs == 1 }, time.Second, 10*time.Millisecond)

	require.Len(t, hist.SaveRunCalls(), 1)
	rec := hist.SaveRunCalls()[0].Rec
	assert.Equal(t, "startup", rec.Trigger)
	assert.Equal(t, "boom", rec.Error)
	assert.NotEmpty(t, rec.ID, "id generated without result")
	assert.Nil(t, hist.SaveRunCalls()[0].Sources)
}

func TestScheduler_StopWaitsForRun(t *testing.T) {
	var finished atomic.Bool
	coll := &mocks.CollectorMock{RunFunc: func(ctx context.Context, sources []domain.Source) (*domain.Result, error) {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		return resultWith(0), ctx.Err()
	}}
	histCtxErr := make(chan error, 1)
	hist := &mocks.HistoryMock{SaveRunFunc: func(ctx context.Context, rec domain.RunRecord, sources []domain.SourceReport) error {
		histCtxErr <- ctx.Err()
		return nil
	}}
	s, stop := startScheduler(t, Config{Collector: coll, Artifact: hasItems(false), History: hist})
	require.Eventually(t, func() bool { return s.Status().Running }, time.Second, 10*time.Millisecond)

	stop()
	assert.True(t, finished.Load(), "run completed before scheduler returned")

	st := s.Status()
	assert.False(t, st.Running)
	assert.Equal(t, 1, st.Runs)
	assert.Contains(t, st.LastError, "context canceled")

	require.Len(t, hist.SaveRunCalls(), 1)
	assert.NoError(t, <-histCtxErr, "history written with live context")

	_, err := s.Trigger(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
}

func TestScheduler_StatusWhileStopping(t *testing.T) {
	release := make(chan struct{})
	coll := &mocks.CollectorMock{RunFunc: func(ctx context.Context, sources []domain.Source) (*domain.Result, error) {
		<-release
		return resultWith(2), nil
	}}
	s, stop := startScheduler(t, Config{Collector: coll, Artifact: hasItems(false)})
	require.Eventually(t, func() bool { return s.Status().Running }, time.Second, 10*time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		stop()
		close(stopped)
	}()
	time.Sleep(50 * time.Millisecond) // let the loop see cancellation

	// loop is waiting for the run, status and trigger must not block
	statusCh := make(chan domain.RunStatus, 1)
	go func() { statusCh <- s.Status() }()
	select {
	case st := <-statusCh:
		assert.True(t, st.Running)
	case <-time.After(time.Second):
		t.Fatal("status blocked while stopping")
	}

	res, err := s.Trigger(context.Background())
	if err == nil {
		assert.Equal(t, AlreadyRunning, res)
	} else {
		assert.ErrorIs(t, err, ErrStopped)
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler didn't stop")
	}
	st := s.Status()
	assert.False(t, st.Running)
	assert.Equal(t, 2, st.LastCount)
	assert.Len(t, coll.RunCalls(), 1)
}

func TestScheduler_Schedule(t *testing.T) {
	coll := &mocks.CollectorMock{RunFunc: func(ctx context.Context, sources []domain.Source) (*domain.Result, error) {
		return resultWith(1), nil
	}}
	s, _ := startScheduler(t, Config{Collector: coll, Artifact: hasItems(true), Interval: time.Second})

	st := s.Status()
	assert.False(t, st.NextRun.IsZero())
	assert.WithinDuration(t, time.Now().Add(time.Second), st.NextRun, 2*time.Second)

	require.Eventually(t, func() bool { return s.Status().Runs >= 1 }, 3*time.Second, 20*time.Millisecond)
}

func TestScheduler_PeriodicDisabled(t *testing.T) {
	coll := &mocks.CollectorMock{RunFunc: func(ctx context.Context, sources []domain.Source) (*domain.Result, error) {
		return resultWith(1), nil
	}}
	s, _ := startScheduler(t, Config{Collector: coll, Artifact: hasItems(true), Interval: -time.Minute})

	st := s.Status()
	assert.True(t, st.NextRun.IsZero())
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, coll.RunCalls())

	res, err := s.Trigger(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Started, res)
	require.Eventually(t, func() bool { return s.Status().Runs == 1 }, time.Second, 10*time.Millisecond)
}

func TestNew(t *testing.T) {
	coll := &mocks.CollectorMock{}

	tbl := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "interval", cfg: Config{Collector: coll, Interval: 30 * time.Minute}},
		{name: "cron spec", cfg: Config{Collector: coll, Schedule: "*/15 * * * *"}},
		{name: "descriptor", cfg: Config{Collector: coll, Schedule: "@hourly", Interval: time.Minute}},
		{name: "manual only", cfg: Config{Collector: coll}},
		{name: "bad spec", cfg: Config{Collector: coll, Schedule: "every now and then"}, wantErr: "parse schedule"},
		{name: "no collector", cfg: Config{}, wantErr: "collector is required"},
	}

	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cfg.Interval == 0 && tt.cfg.Schedule == "", s.schedule == nil)
		})
	}
}
