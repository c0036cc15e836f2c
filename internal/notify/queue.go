// Package notify provides the asynchronous delivery queue for knowledge
// base watchers. Mutators enqueue committed change events here; callbacks
// run on dedicated workers so a slow or panicking watcher never blocks a
// transaction.
package notify

import (
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
)

// Config holds queue tuning knobs. Zero values pick sensible defaults.
type Config struct {
	// Workers is the number of delivery goroutines. Defaults to NumCPU,
	// capped at 4; watcher callbacks are expected to be light.
	Workers int

	// QueueSize is the buffered backlog of pending deliveries. When the
	// backlog is full, Submit falls back to a one-off goroutine instead of
	// blocking the caller. Defaults to 256.
	QueueSize int

	// Logger receives delivery panics. Defaults to the standard logger.
	Logger *logrus.Entry
}

// Queue dispatches callbacks on a fixed pool of workers.
type Queue struct {
	tasks chan func()
	stop  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
	log   *logrus.Entry
}

// New creates and starts a delivery queue.
func New(cfg Config) *Queue {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers > 4 {
			workers = 4
		}
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 256
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	q := &Queue{
		tasks: make(chan func(), size),
		stop:  make(chan struct{}),
		log:   log,
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case task := <-q.tasks:
			q.run(task)
		case <-q.stop:
			// Drain the backlog before exiting.
			for {
				select {
				case task := <-q.tasks:
					q.run(task)
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			q.log.WithField("panic", r).Error("watcher callback panicked")
		}
	}()
	task()
}

// Submit enqueues a delivery. It never blocks: when the backlog is full the
// task runs on its own goroutine. Returns false after Shutdown.
func (q *Queue) Submit(task func()) bool {
	select {
	case <-q.stop:
		return false
	default:
	}
	select {
	case q.tasks <- task:
	default:
		go q.run(task)
	}
	return true
}

// Shutdown stops the workers after draining queued deliveries.
func (q *Queue) Shutdown() {
	q.once.Do(func() {
		close(q.stop)
	})
	q.wg.Wait()
}
