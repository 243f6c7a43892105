// Package events runs post-commit consumers of domain events detached from the caller.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hackgods/care-scheduling/internal/apperr"
)

// Handler consumes one event. Returned errors are logged, never propagated.
type Handler[E any] func(ctx context.Context, ev E) error

type subscription[E any] struct {
	name    string
	handler Handler[E]
}

// Dispatcher fans events out to subscribers, each in its own goroutine. The caller's
// context values are kept but its cancellation is not, so a request that finishes does not
// abort its side effects.
type Dispatcher[E any] struct {
	mu       sync.RWMutex
	subs     map[string][]subscription[E]
	wildcard []subscription[E]
	log      logrus.FieldLogger
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewDispatcher[E any](log logrus.FieldLogger, timeout time.Duration) *Dispatcher[E] {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher[E]{
		subs:    make(map[string][]subscription[E]),
		log:     log,
		timeout: timeout,
	}
}

// Subscribe registers h for topic. The name identifies the consumer in logs.
func (d *Dispatcher[E]) Subscribe(topic, name string, h Handler[E]) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs[topic] = append(d.subs[topic], subscription[E]{name: name, handler: h})
}

// SubscribeAll registers h for every topic.
func (d *Dispatcher[E]) SubscribeAll(name string, h Handler[E]) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.wildcard = append(d.wildcard, subscription[E]{name: name, handler: h})
}

// Publish starts the consumers of topic and returns immediately.
func (d *Dispatcher[E]) Publish(ctx context.Context, topic string, ev E) {
	d.mu.RLock()
	subs := make([]subscription[E], 0, len(d.subs[topic])+len(d.wildcard))
	subs = append(subs, d.subs[topic]...)
	subs = append(subs, d.wildcard...)
	d.mu.RUnlock()

	base := context.WithoutCancel(ctx)
	for _, sub := range subs {
		d.wg.Add(1)
		go d.run(base, topic, sub, ev)
	}
}

// Wait blocks until every consumer started so far has returned.
func (d *Dispatcher[E]) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher[E]) run(ctx context.Context, topic string, sub subscription[E], ev E) {
	defer d.wg.Done()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	fields := logrus.Fields{"topic": topic, "consumer": sub.name}

	defer func() {
		if r := recover(); r != nil {
			err := apperr.Dependency(sub.name, fmt.Errorf("panic: %v", r))
			d.log.WithFields(fields).WithError(err).Error("event consumer panicked")
		}
	}()

	start := time.Now()
	if err := sub.handler(ctx, ev); err != nil {
		d.log.WithFields(fields).WithError(apperr.Dependency(sub.name, err)).Warn("event consumer failed")
		return
	}
	d.log.WithFields(fields).WithField("duration", time.Since(start)).Debug("event consumer done")
}
