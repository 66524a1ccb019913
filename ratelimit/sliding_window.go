// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"sync"
	"time"
)

// DefaultLimit is the per-caller quota applied when none is configured.
const DefaultLimit = 10

// DefaultWindow is the sliding window length.
const DefaultWindow = time.Minute

// idleEvictAfter is how long a caller entry may sit with no attempts
// before the janitor drops it.
const idleEvictAfter = 5 * time.Minute

// janitorInterval is how often idle caller entries are swept.
const janitorInterval = time.Minute

// SlidingWindow is an in-memory Limiter that admits at most limit attempts
// per caller within a rolling window. Timestamps are pruned lazily on each
// attempt, so a caller's quota frees up continuously rather than at fixed
// window boundaries.
//
// The check-then-record step is atomic per caller: concurrent attempts for
// the same key serialize on the caller's entry lock, so the limit cannot be
// oversubscribed by racing requests.
type SlidingWindow struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*callerEntry

	stop chan struct{}
	done chan struct{}
}

type callerEntry struct {
	mu       sync.Mutex
	attempts []time.Time
}

// NewSlidingWindow creates a SlidingWindow admitting limit attempts per
// caller per [DefaultWindow]. A non-positive limit falls back to
// [DefaultLimit]. The returned limiter runs a janitor goroutine; call Close
// to stop it.
func NewSlidingWindow(limit int) *SlidingWindow {
	if limit <= 0 {
		limit = DefaultLimit
	}
	l := &SlidingWindow{
		limit:   limit,
		window:  DefaultWindow,
		now:     time.Now,
		entries: make(map[string]*callerEntry),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go l.janitor()
	return l
}

// Limit returns the configured per-caller quota.
func (l *SlidingWindow) Limit() int {
	return l.limit
}

// Allow records an attempt for key if the caller is within quota.
func (l *SlidingWindow) Allow(key string) (bool, time.Duration) {
	entry := l.entry(key)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	kept := entry.attempts[:0]
	for _, at := range entry.attempts {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	entry.attempts = kept

	if len(entry.attempts) >= l.limit {
		oldest := entry.attempts[0]
		return false, oldest.Add(l.window).Sub(now)
	}

	entry.attempts = append(entry.attempts, now)
	return true, 0
}

// Close stops the janitor goroutine and waits for it to exit.
func (l *SlidingWindow) Close() {
	close(l.stop)
	<-l.done
}

func (l *SlidingWindow) entry(key string) *callerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		entry = &callerEntry{}
		l.entries[key] = entry
	}
	return entry
}

// janitor periodically drops caller entries whose attempts have all aged
// out, bounding memory when the caller population churns.
func (l *SlidingWindow) janitor() {
	defer close(l.done)

	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *SlidingWindow) sweep() {
	cutoff := l.now().Add(-idleEvictAfter)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, entry := range l.entries {
		entry.mu.Lock()
		idle := len(entry.attempts) == 0 ||
			entry.attempts[len(entry.attempts)-1].Before(cutoff)
		entry.mu.Unlock()
		if idle {
			delete(l.entries, key)
		}
	}
}
