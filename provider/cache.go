package provider

import (
	"fmt"
	"sync"
	"sync/atomic"

	"genadapter/config"
)

type slotState uint32

const (
	slotUninitialized slotState = iota
	slotInitializing
	slotReady
)

func (s slotState) String() string {
	switch s {
	case slotUninitialized:
		return "uninitialized"
	case slotInitializing:
		return "initializing"
	case slotReady:
		return "ready"
	default:
		return fmt.Sprintf("slotState(%d)", uint32(s))
	}
}

// clientSlot holds at most one client for a single modality.
//
// client is written under mu before state is set to slotReady, and state is
// only read or written atomically. A reader that observes slotReady therefore
// also observes the fully built client, without taking mu.
type clientSlot struct {
	modality Modality

	mu     sync.Mutex
	state  atomic.Uint32
	client Client

	attempts  atomic.Int64
	successes atomic.Int64
}

func newClientSlot(m Modality) *clientSlot {
	return &clientSlot{modality: m}
}

func (s *clientSlot) load() slotState {
	return slotState(s.state.Load())
}

// getOrInit returns the slot's client, calling build at most once per cold
// slot. A failed build leaves the slot uninitialized so a later call may try
// again.
func (s *clientSlot) getOrInit(build func() (Client, error)) (Client, error) {
	if s.load() == slotReady {
		return s.client, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.load() == slotReady {
		return s.client, nil
	}

	s.state.Store(uint32(slotInitializing))
	s.attempts.Add(1)

	published := false
	defer func() {
		// also covers a panicking build
		if !published {
			s.state.Store(uint32(slotUninitialized))
		}
	}()

	c, err := build()
	if err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Cache] %s client construction failed: %v", s.modality, err)
		}
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w: factory returned a nil %s client", ErrBackendInvocation, s.modality)
	}

	s.client = c
	s.state.Store(uint32(slotReady))
	published = true
	s.successes.Add(1)

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Cache] %s client ready", s.modality)
	}
	return c, nil
}

// SlotStats is a snapshot of one modality slot.
type SlotStats struct {
	State     string
	Attempts  int64
	Successes int64
}

func (s *clientSlot) stats() SlotStats {
	return SlotStats{
		State:     s.load().String(),
		Attempts:  s.attempts.Load(),
		Successes: s.successes.Load(),
	}
}

// clientCache owns one slot per modality. The set of slots is fixed when the
// cache is created, so the map itself is never written afterwards.
type clientCache struct {
	slots map[Modality]*clientSlot
}

func newClientCache(modalities ...Modality) *clientCache {
	c := &clientCache{slots: make(map[Modality]*clientSlot, len(modalities))}
	for _, m := range modalities {
		c.slots[m] = newClientSlot(m)
	}
	return c
}

func (c *clientCache) get(m Modality, build func() (Client, error)) (Client, error) {
	slot, ok := c.slots[m]
	if !ok {
		return nil, fmt.Errorf("%w: no client slot for modality %q", ErrConfiguration, m)
	}
	return slot.getOrInit(build)
}

func (c *clientCache) stats() map[Modality]SlotStats {
	out := make(map[Modality]SlotStats, len(c.slots))
	for m, slot := range c.slots {
		out[m] = slot.stats()
	}
	return out
}
