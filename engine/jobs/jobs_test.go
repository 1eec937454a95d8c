package jobs

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	core.SetLogOutput(io.Discard)
}

func TestNewJobSystemRejectsBadSizes(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	assert.ErrorIs(t, err, ErrNoWorkers)
	_, err = NewJobSystem(1, -1)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)
}

func TestJobsRunCallbacks(t *testing.T) {
	js, err := NewJobSystem(4, 2)
	require.NoError(t, err)

	var done atomic.Int32
	var mu sync.Mutex
	var failures []string
	for i := 0; i < 10; i++ {
		fail := i%5 == 0
		js.Submit(Task{
			Name: "job",
			Run: func() error {
				if fail {
					return errors.New("boom")
				}
				return nil
			},
			OnComplete: func() { done.Add(1) },
			OnFailure: func(err error) {
				mu.Lock()
				failures = append(failures, err.Error())
				mu.Unlock()
			},
		})
	}
	js.Shutdown()
	js.Shutdown()

	assert.Equal(t, int32(8), done.Load())
	assert.Equal(t, []string{"boom", "boom"}, failures)
}
