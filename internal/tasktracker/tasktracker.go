// Package tasktracker provides a lock-free, thread-safe aggregator of
// per-task status and progress for a fixed-size batch of concurrent work,
// which forwards each change to a progress listener as it happens.
package tasktracker

import (
	"math"
	"sync/atomic"
)

// Status is one task's lifecycle state.
type Status uint32

const (
	StatusTodo Status = iota
	StatusInProgress
	StatusError
	StatusDone
)

// Listener receives tracker events. All methods must be cheap and
// non-blocking; they may be called from any worker goroutine.
type Listener interface {
	SummaryChanged(Summary)
	TotalProgressed(fraction float64)
	TaskStarted(id int, label string)
	TaskProgressed(id int, fraction float64)
	TaskFinished(id int)
}

// NopListener discards all events.
type NopListener struct{}

func (NopListener) SummaryChanged(Summary)             {}
func (NopListener) TotalProgressed(float64)            {}
func (NopListener) TaskStarted(int, string)            {}
func (NopListener) TaskProgressed(int, float64)        {}
func (NopListener) TaskFinished(int)                   {}

// Summary is a point-in-time aggregate over all tracked tasks.
type Summary struct {
	InProgress    int
	Success       int
	Error         int
	Total         int
	TotalProgress float64
}

// Done reports whether every task has finished (successfully or with an error).
func (s Summary) Done() bool {
	return s.Success+s.Error == s.Total
}

type taskRecord struct {
	label    string
	status   atomic.Uint32
	progress atomic.Uint64 // bits of a float64 in [0,1]
}

func (t *taskRecord) setProgress(f float64) {
	t.progress.Store(math.Float64bits(f))
}

func (t *taskRecord) getProgress() float64 {
	return math.Float64frombits(t.progress.Load())
}

// Tracker is bounded to a fixed number of tasks known at construction time.
type Tracker struct {
	tasks    []*taskRecord
	listener Listener
}

// New creates a Tracker for the given task labels. The index of each label
// is its task id.
func New(labels []string, listener Listener) *Tracker {
	if listener == nil {
		listener = NopListener{}
	}
	tasks := make([]*taskRecord, len(labels))
	for i, label := range labels {
		tasks[i] = &taskRecord{label: label}
	}
	return &Tracker{tasks: tasks, listener: listener}
}

// Start marks a task in-progress and notifies the listener.
func (t *Tracker) Start(id int) {
	t.tasks[id].status.Store(uint32(StatusInProgress))
	t.listener.TaskStarted(id, t.tasks[id].label)
	t.emitSummary()
}

// SetProgress updates a task's fractional progress in [0,1].
func (t *Tracker) SetProgress(id int, fraction float64) {
	t.tasks[id].setProgress(fraction)
	t.listener.TaskProgressed(id, fraction)
	t.emitSummary()
}

// Finish marks a task successfully complete.
func (t *Tracker) Finish(id int) {
	t.tasks[id].setProgress(1.0)
	t.tasks[id].status.Store(uint32(StatusDone))
	t.listener.TaskFinished(id)
	t.emitSummary()
}

// Fail marks a task as failed.
func (t *Tracker) Fail(id int) {
	t.tasks[id].status.Store(uint32(StatusError))
	t.listener.TaskFinished(id)
	t.emitSummary()
}

// Summary computes a lock-free, eventually-consistent snapshot over all
// tracked tasks' atomics.
func (t *Tracker) Summary() Summary {
	var s Summary
	s.Total = len(t.tasks)
	if s.Total == 0 {
		return s
	}
	var progressSum float64
	for _, task := range t.tasks {
		switch Status(task.status.Load()) {
		case StatusInProgress:
			s.InProgress++
		case StatusDone:
			s.Success++
		case StatusError:
			s.Error++
		}
		progressSum += task.getProgress()
	}
	s.TotalProgress = progressSum / float64(s.Total)
	return s
}

// Done reports whether every task has reached a terminal state.
func (t *Tracker) Done() bool {
	return t.Summary().Done()
}

func (t *Tracker) emitSummary() {
	s := t.Summary()
	t.listener.SummaryChanged(s)
	t.listener.TotalProgressed(s.TotalProgress)
}
