package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingWarmer struct {
	calls atomic.Int32
	err   error
}

func (w *countingWarmer) Warm(context.Context) error {
	w.calls.Add(1)
	return w.err
}

func TestSchedulerRunsWarmer(t *testing.T) {
	s := NewScheduler(time.Second)
	w := &countingWarmer{}
	require.NoError(t, s.AddWarmer("@every 1s", "tags", w))
	s.Start()

	assert.Eventually(t, func() bool { return w.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestSchedulerInvalidSpec(t *testing.T) {
	s := NewScheduler(0)
	err := s.AddWarmer("not a spec", "tags", &countingWarmer{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "schedule tags")
}

func TestRunSwallowsWarmError(t *testing.T) {
	s := NewScheduler(time.Second)
	w := &countingWarmer{err: errors.New("boom")}
	s.run("tags", w)
	assert.Equal(t, int32(1), w.calls.Load())
}
