// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Broadcast cadence: every Friday at 10:00 UTC.
const (
	broadcastWeekday = time.Friday
	broadcastHourUTC = 10
)

// Weekly drives the Smell of the Week broadcast. Each fire picks a random
// catalog entry and hands it to the publisher. Fires never overlap: the
// loop publishes synchronously, and a fire that was missed while a slow
// delivery was in flight is skipped rather than replayed. A failed
// delivery is logged and retried no earlier than the next scheduled fire.
type Weekly struct {
	publisher Publisher
	smells    []Smell
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
	pick      func(n int) int

	mu      sync.Mutex
	started bool
	next    time.Time

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// WeeklyOption represents an option for configuring the [Weekly] scheduler.
type WeeklyOption func(*Weekly)

// WithWeeklyLogger sets the [*slog.Logger] for the [Weekly] scheduler.
func WithWeeklyLogger(logger *slog.Logger) WeeklyOption {
	return func(w *Weekly) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithWeeklyTracer sets the [trace.Tracer] for the [Weekly] scheduler.
func WithWeeklyTracer(tracer trace.Tracer) WeeklyOption {
	return func(w *Weekly) {
		if tracer != nil {
			w.tracer = tracer
		}
	}
}

// NewWeekly creates a Weekly scheduler over the embedded catalog.
func NewWeekly(publisher Publisher, opts ...WeeklyOption) (*Weekly, error) {
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	smells, err := LoadSmells()
	if err != nil {
		return nil, err
	}
	w := &Weekly{
		publisher: publisher,
		smells:    smells,
		logger:    slog.Default(),
		tracer:    otel.GetTracerProvider().Tracer("github.com/telexintegrations/sniffbot/scheduler"),
		now:       time.Now,
		pick:      rand.IntN,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// NextBroadcast returns the first Friday 10:00 UTC strictly after now.
func NextBroadcast(now time.Time) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), broadcastHourUTC, 0, 0, 0, time.UTC)
	for !next.After(now) || next.Weekday() != broadcastWeekday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Start launches the broadcast loop. It returns immediately; the loop runs
// until Stop is called or ctx is cancelled.
func (w *Weekly) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return fmt.Errorf("scheduler already started")
	}
	w.started = true
	w.next = NextBroadcast(w.now())

	w.logger.InfoContext(ctx, "weekly broadcast scheduled",
		slog.Time("next_run", w.next),
		slog.Int("catalog_size", len(w.smells)),
	)

	go w.run(ctx)
	return nil
}

func (w *Weekly) run(ctx context.Context) {
	defer close(w.done)

	for {
		w.mu.Lock()
		next := w.next
		w.mu.Unlock()

		timer := time.NewTimer(next.Sub(w.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-w.stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		w.publishOnce(ctx)

		w.mu.Lock()
		w.next = NextBroadcast(w.now())
		w.mu.Unlock()
	}
}

// publishOnce delivers one randomly chosen smell. Failures are logged and
// swallowed so the loop survives to the next fire.
func (w *Weekly) publishOnce(ctx context.Context) {
	ctx, span := w.tracer.Start(ctx, "sniffbot.scheduler.publishOnce")
	defer span.End()

	smell := w.smells[w.pick(len(w.smells))]
	span.SetAttributes(
		attribute.String("smell.title", smell.Title),
		attribute.String("smell.tag", smell.Tag),
	)

	start := w.now()
	if err := w.publisher.Publish(ctx, BuildSmellMessage(smell)); err != nil {
		w.logger.ErrorContext(ctx, "weekly broadcast failed",
			slog.String("smell", smell.Title),
			slog.String("error", err.Error()),
		)
		return
	}

	w.logger.InfoContext(ctx, "weekly broadcast published",
		slog.String("smell", smell.Title),
		slog.Duration("elapsed", w.now().Sub(start)),
	)
}

// Stop halts the loop and waits for an in-flight delivery to finish, or
// for ctx to expire.
func (w *Weekly) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	w.stopOnce.Do(func() { close(w.stop) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ActiveJobs reports how many jobs the scheduler is running.
func (w *Weekly) ActiveJobs() int {
	select {
	case <-w.done:
		return 0
	default:
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return 1
	}
	return 0
}

// NextRun reports the next scheduled fire time, or the zero time before
// Start.
func (w *Weekly) NextRun() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.next
}
