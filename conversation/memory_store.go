// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/telexintegrations/sniffbot"
)

// DefaultTTL is how long an untouched conversation is retained before the
// janitor evicts it.
const DefaultTTL = 24 * time.Hour

// sweepInterval is how often expired conversations are swept.
const sweepInterval = 10 * time.Minute

// MemoryStore is an in-memory implementation of Store. Each context has its
// own lock, so appends to distinct conversations never contend, while
// appends within one conversation serialize and keep their order.
//
// Conversations untouched for the TTL are evicted by a janitor goroutine;
// call Close to stop it.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu            sync.RWMutex
	conversations map[string]*memoryConversation

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

type memoryConversation struct {
	mu      sync.Mutex
	turns   []*sniffbot.A2AMessage
	touched time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore evicting conversations untouched for
// ttl. A non-positive ttl falls back to [DefaultTTL].
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &MemoryStore{
		ttl:           ttl,
		now:           time.Now,
		conversations: make(map[string]*memoryConversation),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	go s.janitor()
	return s
}

// History returns the ordered turns recorded for a context.
func (s *MemoryStore) History(ctx context.Context, contextID string) ([]*sniffbot.A2AMessage, error) {
	if contextID == "" {
		return nil, fmt.Errorf("context ID cannot be empty")
	}

	s.mu.RLock()
	conv, ok := s.conversations[contextID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()

	conv.touched = s.now()
	// Snapshot so callers never observe a later append.
	turns := make([]*sniffbot.A2AMessage, len(conv.turns))
	copy(turns, conv.turns)
	return turns, nil
}

// Append records turns at the end of a context's history.
func (s *MemoryStore) Append(ctx context.Context, contextID string, messages ...*sniffbot.A2AMessage) error {
	if contextID == "" {
		return fmt.Errorf("context ID cannot be empty")
	}
	for i, msg := range messages {
		if msg == nil {
			return fmt.Errorf("message at index %d cannot be nil", i)
		}
	}

	conv := s.conversation(contextID)

	conv.mu.Lock()
	defer conv.mu.Unlock()

	conv.turns = append(conv.turns, messages...)
	conv.touched = s.now()
	return nil
}

// Close stops the janitor goroutine and waits for it to exit.
func (s *MemoryStore) Close(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of live conversations.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

func (s *MemoryStore) conversation(contextID string) *memoryConversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[contextID]
	if !ok {
		conv = &memoryConversation{touched: s.now()}
		s.conversations[contextID] = conv
	}
	return conv
}

func (s *MemoryStore) janitor() {
	defer close(s.done)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	for contextID, conv := range s.conversations {
		conv.mu.Lock()
		expired := conv.touched.Before(cutoff)
		conv.mu.Unlock()
		if expired {
			delete(s.conversations, contextID)
		}
	}
}
