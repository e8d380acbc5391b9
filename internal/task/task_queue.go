package task

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Common errors returned by the TaskQueue
var (
	ErrQueueClosed = errors.New("task queue is closed")
	ErrQueueFull   = errors.New("task queue is full")
)

// TaskQueue is a FIFO queue that satisfies both TaskQueueReader and
// TaskQueueWriter. Pending tasks are held in a slice and handed one at a time
// to the channel returned by GetChannel by a single pump goroutine, so the
// queue is unbounded unless a capacity is given and consumers simply block on
// the channel while it is empty.
type TaskQueue struct {
	mu       sync.Mutex
	pending  []Task
	capacity int
	closed   bool

	wake chan struct{}
	done chan struct{}
	out  chan Task

	logger *slog.Logger
}

// NewTaskQueue creates a queue and starts its pump. A capacity of zero or
// less means unbounded.
func NewTaskQueue(capacity int, logger *slog.Logger) *TaskQueue {
	if capacity < 0 {
		capacity = 0
	}
	q := &TaskQueue{
		capacity: capacity,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		out:      make(chan Task),
		logger:   logger,
	}
	go q.pump()
	return q
}

// Enqueue adds a task to the back of the queue.
// Returns an error if the queue is full or closed
func (q *TaskQueue) Enqueue(task Task) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	if q.capacity > 0 && len(q.pending) >= q.capacity {
		q.mu.Unlock()
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, q.capacity)
	}
	q.pending = append(q.pending, task)
	depth := len(q.pending)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}

	q.logger.Debug("task enqueued",
		"task_id", task.ID(),
		"task_type", task.Type(),
		"queue_len", depth)
	return nil
}

// Close closes the task queue, preventing further task submission.
// Tasks still waiting in the queue are dropped and the consumer channel is
// closed once the pump exits.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	dropped := len(q.pending)
	q.pending = nil
	q.mu.Unlock()

	close(q.done)
	q.logger.Info("task queue closed", "dropped_tasks", dropped)
}

// GetChannel returns a read-only channel for consuming tasks
func (q *TaskQueue) GetChannel() <-chan Task {
	return q.out
}

// Len returns the number of tasks waiting to be handed to a consumer.
func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *TaskQueue) pump() {
	defer close(q.out)

	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return
		}
		if len(q.pending) == 0 {
			q.mu.Unlock()
			select {
			case <-q.wake:
				continue
			case <-q.done:
				return
			}
		}
		next := q.pending[0]
		q.mu.Unlock()

		select {
		case q.out <- next:
			q.mu.Lock()
			if len(q.pending) > 0 {
				q.pending[0] = nil
				q.pending = q.pending[1:]
			}
			q.mu.Unlock()
		case <-q.done:
			return
		}
	}
}
