// Package multidownloader runs many downloads with bounded concurrency and
// a coherent progress stream reported through a tasktracker, the Go
// analogue of a buffered unordered stream join.
package multidownloader

import (
	"context"
	"sync"
	"time"

	"github.com/dawkit/dawkit/internal/downloader"
	"github.com/dawkit/dawkit/internal/tasktracker"
	"golang.org/x/sync/semaphore"
)

// pollInterval is how often the watcher goroutine in Run polls the tracker
// for completion; the tracker must be cheap enough to poll this often. The
// loop publishes no progress itself: listener events come straight from
// the tracker on every task update.
const pollInterval = 20 * time.Millisecond

// DefaultConcurrency is the default bound on simultaneous downloads.
const DefaultConcurrency = 5

// Item is one requested download paired with an opaque payload carried
// through to the corresponding Result so callers can recover identity.
type Item[P any] struct {
	Request downloader.Request
	Label   string
	Payload P
}

// Result is the outcome of one Item's download.
type Result[P any] struct {
	Payload P
	Err     error
}

// Options configures a run.
type Options struct {
	// Concurrency bounds simultaneous downloads. Default: DefaultConcurrency.
	Concurrency int
	Listener    tasktracker.Listener
}

// Run executes all items with bounded concurrency, returning exactly one
// Result per input Item in input order. Cancelling ctx cancels in-flight
// downloads; partial files may remain on disk.
func Run[P any](ctx context.Context, d *downloader.Downloader, items []Item[P], opts Options) []Result[P] {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	labels := make([]string, len(items))
	for i, it := range items {
		labels[i] = it.Label
	}
	tracker := tasktracker.New(labels, opts.Listener)

	results := make([]Result[P], len(items))
	sem := semaphore.NewWeighted(int64(concurrency))

	done := make(chan struct{})
	var pollWg sync.WaitGroup
	pollWg.Add(1)
	go func() {
		defer pollWg.Done()
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if tracker.Done() {
					return
				}
			}
		}
	}()

	var wg sync.WaitGroup
	for i, item := range items {
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = Result[P]{Payload: item.Payload, Err: err}
			continue
		}
		wg.Add(1)
		go func(i int, item Item[P]) {
			defer wg.Done()
			defer sem.Release(1)

			tracker.Start(i)
			err := d.Download(ctx, item.Request, func(p downloader.Progress) {
				tracker.SetProgress(i, p.Fraction)
			})
			if err != nil {
				tracker.Fail(i)
			} else {
				tracker.Finish(i)
			}
			results[i] = Result[P]{Payload: item.Payload, Err: err}
		}(i, item)
	}
	wg.Wait()
	close(done)
	pollWg.Wait()

	return results
}
