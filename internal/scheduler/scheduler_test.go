package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := New(zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

// noopTask builds a registration with a cron that will not fire during
// the test. Tests override Func when they need to observe execution.
func noopTask(id string) TaskConfig {
	return TaskConfig{
		ID:   id,
		Name: id,
		Cron: "0 0 1 1 *",
		Func: func(ctx context.Context) error { return nil },
	}
}

func TestRegisterTaskDuplicate(t *testing.T) {
	s := newTestScheduler(t)

	require.NoError(t, s.RegisterTask(noopTask("alpha")))

	err := s.RegisterTask(noopTask("alpha"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegisterTaskInvalidCron(t *testing.T) {
	s := newTestScheduler(t)

	cfg := noopTask("bad")
	cfg.Cron = "not a cron"
	require.Error(t, s.RegisterTask(cfg))
}

func TestRunNowExecutesTask(t *testing.T) {
	s := newTestScheduler(t)

	ran := make(chan struct{})
	cfg := noopTask("manual")
	cfg.Func = func(ctx context.Context) error {
		close(ran)
		return nil
	}
	require.NoError(t, s.RegisterTask(cfg))

	require.NoError(t, s.RunNow("manual"))

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}

	require.Eventually(t, func() bool {
		tasks := s.ListTasks()
		return len(tasks) == 1 && tasks[0].LastRun != nil && !tasks[0].Running
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRunNowUnknownTask(t *testing.T) {
	s := newTestScheduler(t)

	err := s.RunNow("ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRunNowWhileRunning(t *testing.T) {
	s := newTestScheduler(t)

	release := make(chan struct{})
	cfg := noopTask("slow")
	cfg.Func = func(ctx context.Context) error {
		<-release
		return nil
	}
	require.NoError(t, s.RegisterTask(cfg))
	require.NoError(t, s.RunNow("slow"))

	require.Eventually(t, func() bool {
		tasks := s.ListTasks()
		return len(tasks) == 1 && tasks[0].Running
	}, 2*time.Second, 10*time.Millisecond)

	err := s.RunNow("slow")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	close(release)
}

func TestStartRunsOnStartTasks(t *testing.T) {
	s := newTestScheduler(t)

	ran := make(chan struct{})
	cfg := noopTask("boot")
	cfg.RunOnStart = true
	cfg.Func = func(ctx context.Context) error {
		close(ran)
		return nil
	}
	require.NoError(t, s.RegisterTask(cfg))
	require.NoError(t, s.Start())

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("run-on-start task did not fire")
	}
}

func TestTaskFailureStillRecordsLastRun(t *testing.T) {
	s := newTestScheduler(t)

	cfg := noopTask("flaky")
	cfg.Func = func(ctx context.Context) error {
		return errors.New("boom")
	}
	require.NoError(t, s.RegisterTask(cfg))
	require.NoError(t, s.RunNow("flaky"))

	require.Eventually(t, func() bool {
		tasks := s.ListTasks()
		return len(tasks) == 1 && tasks[0].LastRun != nil && !tasks[0].Running
	}, 2*time.Second, 10*time.Millisecond)
}

func TestListTasksSorted(t *testing.T) {
	s := newTestScheduler(t)

	for _, id := range []string{"charlie", "alpha", "bravo"} {
		require.NoError(t, s.RegisterTask(noopTask(id)))
	}

	tasks := s.ListTasks()
	require.Len(t, tasks, 3)
	assert.Equal(t, "alpha", tasks[0].ID)
	assert.Equal(t, "bravo", tasks[1].ID)
	assert.Equal(t, "charlie", tasks[2].ID)
	assert.Equal(t, "0 0 1 1 *", tasks[0].Cron)
	assert.False(t, tasks[0].Running)
	assert.Nil(t, tasks[0].LastRun)
}
