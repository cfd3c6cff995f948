package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryu111/stock-health-bot-sub001/pkg/logger"
)

type fakeJob struct {
	name     string
	schedule string
	fails    int32 // first n runs fail
	runs     atomic.Int32
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return j.schedule }

func (j *fakeJob) Run(ctx context.Context) error {
	if n := j.runs.Add(1); n <= j.fails {
		return errors.New("upstream unavailable")
	}
	return nil
}

type recordingObserver struct {
	mu   sync.Mutex
	runs map[string][]error
}

func (r *recordingObserver) JobRun(job string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runs == nil {
		r.runs = make(map[string][]error)
	}
	r.runs[job] = append(r.runs[job], err)
}

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s := New(logger.Nop())
	s.SetRetry(2, time.Millisecond)
	return s
}

func TestScheduler_AddJob(t *testing.T) {
	s := newTestScheduler(t)

	require.NoError(t, s.AddJob(&fakeJob{name: "b", schedule: "@daily"}))
	require.NoError(t, s.AddJob(&fakeJob{name: "a", schedule: "0 18 * * 1-5"}))

	err := s.AddJob(&fakeJob{name: "a", schedule: "@hourly"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	err = s.AddJob(&fakeJob{name: "c", schedule: "whenever"})
	require.Error(t, err)

	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())
}

func TestScheduler_RemoveJob(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.AddJob(&fakeJob{name: "a", schedule: "@daily"}))

	require.NoError(t, s.RemoveJob("a"))
	assert.Empty(t, s.GetAllJobs())
	assert.Error(t, s.RemoveJob("a"))

	_, err := s.GetJobHistory("a")
	assert.Error(t, err)
}

func TestScheduler_RunNow(t *testing.T) {
	tests := []struct {
		name         string
		fails        int32
		wantErr      bool
		wantAttempts int
	}{
		{"first try", 0, false, 1},
		{"recovers after retries", 2, false, 3},
		{"retries exhausted", 5, true, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScheduler(t)
			obs := &recordingObserver{}
			s.SetObserver(obs)

			job := &fakeJob{name: "watch", schedule: "@daily", fails: tt.fails}
			require.NoError(t, s.AddJob(job))

			err := s.RunNow(context.Background(), "watch")
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "upstream unavailable")
			} else {
				require.NoError(t, err)
			}

			history, err := s.GetJobHistory("watch")
			require.NoError(t, err)
			require.Len(t, history, 1)
			assert.Equal(t, tt.wantAttempts, history[0].Attempts)
			assert.Equal(t, !tt.wantErr, history[0].Success)

			require.Len(t, obs.runs["watch"], 1)
			assert.Equal(t, tt.wantErr, obs.runs["watch"][0] != nil)
		})
	}
}

func TestScheduler_RunNowUnknownJob(t *testing.T) {
	s := newTestScheduler(t)
	err := s.RunNow(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestScheduler_RunNowStopsOnCancel(t *testing.T) {
	s := New(logger.Nop())
	s.SetRetry(3, time.Hour)
	job := &fakeJob{name: "slow", schedule: "@daily", fails: 10}
	require.NoError(t, s.AddJob(job))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := s.RunNow(ctx, "slow")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, int32(1), job.runs.Load())
}

func TestScheduler_Stats(t *testing.T) {
	s := newTestScheduler(t)
	s.SetRetry(0, 0)

	require.NoError(t, s.AddJob(&fakeJob{name: "flaky", schedule: "@daily", fails: 1}))
	_ = s.RunNow(context.Background(), "flaky")
	_ = s.RunNow(context.Background(), "flaky")

	stats := s.GetJobStats()
	st, ok := stats["flaky"]
	require.True(t, ok)
	assert.Equal(t, "@daily", st.Schedule)
	assert.Equal(t, 2, st.TotalRuns)
	assert.Equal(t, 1, st.SuccessCount)
	assert.Equal(t, 1, st.FailureCount)
	assert.InDelta(t, 0.5, st.SuccessRate, 1e-9)
	require.NotNil(t, st.LastRun)
	assert.NotNil(t, st.LastSuccess)
	assert.Nil(t, st.LastFailure)
}

func TestScheduler_FiresOnSchedule(t *testing.T) {
	s := newTestScheduler(t)
	obs := &recordingObserver{}
	s.SetObserver(obs)

	job := &fakeJob{name: "tick", schedule: "* * * * * *"}
	require.NoError(t, s.AddJob(job))

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return job.runs.Load() > 0
	}, 3*time.Second, 20*time.Millisecond)

	st := s.GetJobStats()["tick"]
	assert.NotNil(t, st.NextRun)
}

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		spec  string
		valid bool
	}{
		{"0 18 * * 1-5", true},
		{"30 0 18 * * 1-5", true},
		{"@daily", true},
		{"@every 15m", true},
		{"", false},
		{"61 * * * *", false},
		{"tomorrow", false},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			err := ValidateSchedule(tt.spec)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < maxHistory+20; i++ {
		h.AddResult(JobResult{JobName: "j", Success: i%4 != 0, Attempts: i})
	}

	require.Len(t, h.Results, maxHistory)
	assert.Equal(t, 20, h.Results[0].Attempts)

	latest := h.Latest(3)
	require.Len(t, latest, 3)
	assert.Equal(t, maxHistory+19, latest[2].Attempts)

	assert.Equal(t, maxHistory/4, h.FailureCount())
	assert.InDelta(t, 0.75, h.SuccessRate(), 1e-9)

	empty := &JobHistory{}
	assert.Empty(t, empty.Latest(5))
	assert.Zero(t, empty.SuccessRate())
}
