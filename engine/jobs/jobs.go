// Package jobs runs independent pieces of work on a fixed set of workers.
package jobs

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/anima-gfx/engine/core"
)

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")

// Task is one unit of work. OnComplete and OnFailure run on the worker that
// ran the task.
type Task struct {
	Name       string
	Run        func() error
	OnComplete func()
	OnFailure  func(err error)
}

type JobSystem struct {
	numWorkers int
	jobQueue   chan Task
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan Task, channelSize),
	}
	js.start()
	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				js.run(job)
			}
		}()
	}
}

func (js *JobSystem) run(job Task) {
	if job.Run == nil {
		return
	}
	if err := job.Run(); err != nil {
		core.LogDebug("job `%s` failed: %s", job.Name, err)
		if job.OnFailure != nil {
			job.OnFailure(err)
		}
		return
	}
	if job.OnComplete != nil {
		job.OnComplete()
	}
}

/**
 * @brief Submits the provided job to be queued for execution. Blocks while
 * the queue is full. Must not be called after Shutdown.
 */
func (js *JobSystem) Submit(job Task) {
	js.jobQueue <- job
}

/**
 * @brief Stops accepting work and waits for the queued jobs to finish.
 */
func (js *JobSystem) Shutdown() {
	js.closeOnce.Do(func() { close(js.jobQueue) })
	js.wg.Wait()
}
