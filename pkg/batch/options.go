package batch

import (
	"time"

	"github.com/bft-labs/querybatch/pkg/log"
)

// Option configures optional behavior of a Batcher.
type Option func(*options)

type options struct {
	scheduler     Scheduler
	logger        log.Logger
	eventHandler  EventHandler
	maxConcurrent int
}

func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
	}
}

// WithScheduler sets the scheduler used to debounce flushes.
// The default is a zero-delay TimerScheduler.
func WithScheduler(s Scheduler) Option {
	return func(o *options) {
		o.scheduler = s
	}
}

// WithWindow debounces flushes with a TimerScheduler of the given delay.
func WithWindow(d time.Duration) Option {
	return func(o *options) {
		o.scheduler = NewTimerScheduler(d)
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEventHandler receives flush statistics.
// It is called synchronously at the end of every non-empty flush.
func WithEventHandler(h EventHandler) Option {
	return func(o *options) {
		o.eventHandler = h
	}
}

// WithMaxConcurrentRequests caps the requests one flush has in flight.
// Zero or a negative value means no limit.
func WithMaxConcurrentRequests(n int) Option {
	return func(o *options) {
		o.maxConcurrent = n
	}
}
